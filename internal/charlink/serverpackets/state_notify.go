package serverpackets

import "encoding/binary"

const StateNotifyOpcode = 0x2731

// Notification kinds for StateNotify.
const (
	NotifyStateChange = 0
	NotifyBan         = 1
)

// StateNotify [0x2731] — рассылка смены статуса или бана.
//
// Format:
//   [W opcode] [L accountID] [B kind 0=state 1=ban] [L value]
//
// value — новый state либо unix-время окончания бана.
// Returns: number of bytes written to buf (11).
func StateNotify(buf []byte, accountID int64, kind byte, value uint32) int {
	binary.LittleEndian.PutUint16(buf[0:], StateNotifyOpcode)
	binary.LittleEndian.PutUint32(buf[2:], uint32(accountID))
	buf[6] = kind
	binary.LittleEndian.PutUint32(buf[7:], value)
	return 11
}
