package serverpackets

import "encoding/binary"

const LoginRefusedOpcode = 0x006a

// LoginRefused [0x006a] — вход отклонён.
//
// Format:
//   [W opcode] [B rcode] [20B banDate]
//
// banDate заполняется только для rcode 6 ("запрещено до...").
// Returns: number of bytes written to buf (23).
func LoginRefused(buf []byte, rcode byte, banDate string) int {
	clear(buf[:23])
	binary.LittleEndian.PutUint16(buf[0:], LoginRefusedOpcode)
	buf[2] = rcode
	if rcode == 6 {
		// без гарантии NUL-терминатора: поле ровно 20 байт
		copy(buf[3:23], banDate)
	}
	return 23
}
