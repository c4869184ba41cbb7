package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/model"
)

const SexChangedOpcode = 0x2723

// SexChanged [0x2723] — уведомление всем char-server о смене пола аккаунта.
//
// Format:
//   [W opcode] [L accountID] [B sex]
//
// Returns: number of bytes written to buf (7).
func SexChanged(buf []byte, accountID int64, sex model.Sex) int {
	binary.LittleEndian.PutUint16(buf[0:], SexChangedOpcode)
	binary.LittleEndian.PutUint32(buf[2:], uint32(accountID))
	buf[6] = byte(sex)
	return 7
}
