package serverpackets

import "encoding/binary"

const KickOpcode = 0x2734

// Kick [0x2734] — требование выбросить аккаунт со всех char-server.
//
// Format:
//   [W opcode] [L accountID]
//
// Returns: number of bytes written to buf (6).
func Kick(buf []byte, accountID int64) int {
	binary.LittleEndian.PutUint16(buf[0:], KickOpcode)
	binary.LittleEndian.PutUint32(buf[2:], uint32(accountID))
	return 6
}
