package serverpackets

import "encoding/binary"

const UserCountAckOpcode = 0x2718

// UserCountAck [0x2718] — подтверждение приёма счётчика игроков.
func UserCountAck(buf []byte) int {
	binary.LittleEndian.PutUint16(buf[0:], UserCountAckOpcode)
	return 2
}
