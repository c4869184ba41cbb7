package serverpackets

import "encoding/binary"

const HandshakeResultOpcode = 0x2711

// Handshake results.
const (
	HandshakeAccepted = 0
	HandshakeRejected = 3
)

// HandshakeResult [0x2711] — ответ на заявку char-server'а (0x2710).
//
// Format:
//   [W opcode] [B result]
//
// Returns: number of bytes written to buf (3).
func HandshakeResult(buf []byte, result byte) int {
	binary.LittleEndian.PutUint16(buf[0:], HandshakeResultOpcode)
	buf[2] = result
	return 3
}
