package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/protocol"
)

const EmailInfoOpcode = 0x2717

// EmailInfo [0x2717] — e-mail и срок действия аккаунта по запросу 0x2716.
//
// Format:
//   [W opcode] [L accountID] [40B email] [L connectUntil]
//
// Returns: number of bytes written to buf (50).
func EmailInfo(buf []byte, accountID int64, email string, connectUntil int64) int {
	binary.LittleEndian.PutUint16(buf[0:], EmailInfoOpcode)
	binary.LittleEndian.PutUint32(buf[2:], uint32(accountID))
	protocol.PutFixedString(buf, 6, email, constants.EmailLength)
	binary.LittleEndian.PutUint32(buf[46:], uint32(connectUntil))
	return 50
}
