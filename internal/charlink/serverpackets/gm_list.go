package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/model"
)

const GMListOpcode = 0x2732

// GMList [0x2732] — список GM-аккаунтов для char-server.
//
// Format:
//   [W opcode] [W length] затем [L accountID][B level] на каждый аккаунт
//
// Пакет обрезается на constants.GMListPacketLimit: больше в один кадр
// не влезает. Returns: bytes written and whether the list was truncated.
func GMList(buf []byte, gms []model.GMAccount) (int, bool) {
	binary.LittleEndian.PutUint16(buf[0:], GMListOpcode)
	pos := 4
	truncated := false
	for _, gm := range gms {
		if gm.Level <= 0 {
			continue
		}
		binary.LittleEndian.PutUint32(buf[pos:], uint32(gm.AccountID))
		buf[pos+4] = byte(gm.Level)
		pos += 5
		if pos >= constants.GMListPacketLimit {
			truncated = true
			break
		}
	}
	binary.LittleEndian.PutUint16(buf[2:], uint16(pos))
	return pos, truncated
}
