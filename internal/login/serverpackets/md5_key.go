package serverpackets

import "encoding/binary"

const MD5KeyOpcode = 0x01dc

// MD5Key [0x01dc] — соль для шифрованного входа 0x01dd.
//
// Format:
//   [W opcode] [W length=4+len(key)] [key]
//
// Returns: number of bytes written to buf.
func MD5Key(buf []byte, key []byte) int {
	total := 4 + len(key)
	binary.LittleEndian.PutUint16(buf[0:], MD5KeyOpcode)
	binary.LittleEndian.PutUint16(buf[2:], uint16(total))
	copy(buf[4:], key)
	return total
}
