// Package serverpackets собирает пакеты логин-сервера для char-server линка.
package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/protocol"
)

const AuthAckOpcode = 0x2713

// AuthAck [0x2713] — ответ на запрос погашения талона авторизации.
//
// Format:
//   [W opcode] [L accountID] [B result 0=ok 1=fail] [40B email] [L connectUntil]
//
// Returns: number of bytes written to buf (51).
func AuthAck(buf []byte, accountID int64, ok bool, email string, connectUntil int64) int {
	binary.LittleEndian.PutUint16(buf[0:], AuthAckOpcode)
	binary.LittleEndian.PutUint32(buf[2:], uint32(accountID))
	if ok {
		buf[6] = 0
	} else {
		buf[6] = 1
	}
	protocol.PutFixedString(buf, 7, email, constants.EmailLength)
	binary.LittleEndian.PutUint32(buf[47:], uint32(connectUntil))
	return 51
}
