package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/model"
)

const RegistryReplyOpcode = 0x2729

// registryPayloadCap ограничивает суммарный размер пар имя/значение.
const registryPayloadCap = 9000

// RegistryReply [0x2729] — набор account-переменных для персонажа.
//
// Format:
//   [W opcode] [W length] [L accountID] [L charID] [B type=1]
//   затем пары "имя\0значение\0" до исчерпания или лимита
//
// Returns: number of bytes written to buf, and whether the set was truncated.
func RegistryReply(buf []byte, accountID int64, charID int64, vars []model.Variable) (int, bool) {
	binary.LittleEndian.PutUint16(buf[0:], RegistryReplyOpcode)
	binary.LittleEndian.PutUint32(buf[4:], uint32(accountID))
	binary.LittleEndian.PutUint32(buf[8:], uint32(charID))
	buf[12] = 1

	pos := 13
	truncated := false
	for _, v := range vars {
		if v.Name == "" {
			continue
		}
		if pos+len(v.Name)+len(v.Value)+2 > registryPayloadCap {
			truncated = true
			break
		}
		pos += copy(buf[pos:], v.Name)
		buf[pos] = 0
		pos++
		pos += copy(buf[pos:], v.Value)
		buf[pos] = 0
		pos++
	}
	binary.LittleEndian.PutUint16(buf[2:], uint16(pos))
	return pos, truncated
}
