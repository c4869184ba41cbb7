package serverpackets

import "encoding/binary"

const ServerClosedOpcode = 0x0081

// Reasons for ServerClosed.
const ServerClosedReasonClosed = 1

// ServerClosed [0x0081] — сервер закрыт: нет char-server'ов либо не хватает
// GM-уровня при поднятом min_level_to_connect.
//
// Format:
//   [W opcode] [B reason]
//
// Returns: number of bytes written to buf (3).
func ServerClosed(buf []byte, reason byte) int {
	binary.LittleEndian.PutUint16(buf[0:], ServerClosedOpcode)
	buf[2] = reason
	return 3
}
