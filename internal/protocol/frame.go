// Package protocol implements the cleartext packet framing shared by the
// client listener and the char-server link: a 2-byte little-endian opcode
// followed by a body whose size is either fixed per opcode or carried in a
// 2-byte length word at offset 2.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/udisondev/athlogin/internal/constants"
)

// ErrUnknownOpcode is returned for an opcode absent from the frame table.
// The caller is expected to close the connection.
var ErrUnknownOpcode = errors.New("unknown opcode")

// VarLength marks a variable-length opcode in a Table: the total frame length
// is the little-endian word at offset 2, and only the 4-byte header is
// guaranteed. Handlers reading fixed offsets past the header register their
// floor with VarLengthMin instead.
const VarLength = -4

// VarLengthMin returns the Table entry for a variable-length opcode whose
// frame must be at least min bytes long.
func VarLengthMin(min int) int { return -min }

// Table maps opcode → total frame length in bytes (opcode included).
// Negative entries are variable-length; see VarLength/VarLengthMin.
type Table map[uint16]int

// ReadFrame reads exactly one frame from r and returns it, opcode bytes
// included, so body offsets match the wire layout. Ждёт полный кадр: handler
// никогда не видит усечённый пакет.
func ReadFrame(r io.Reader, table Table) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:2]); err != nil {
		return nil, err
	}
	opcode := binary.LittleEndian.Uint16(head[:2])

	size, ok := table[opcode]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnknownOpcode, opcode)
	}

	if size < 0 {
		min := -size
		if _, err := io.ReadFull(r, head[2:4]); err != nil {
			return nil, fmt.Errorf("reading length of 0x%04x: %w", opcode, err)
		}
		total := int(binary.LittleEndian.Uint16(head[2:4]))
		if total < min || total > constants.MaxFrameSize {
			return nil, fmt.Errorf("invalid length %d for 0x%04x", total, opcode)
		}
		frame := make([]byte, total)
		copy(frame, head[:4])
		if _, err := io.ReadFull(r, frame[4:]); err != nil {
			return nil, fmt.Errorf("reading body of 0x%04x: %w", opcode, err)
		}
		return frame, nil
	}

	if size < 2 || size > constants.MaxFrameSize {
		return nil, fmt.Errorf("invalid table entry %d for 0x%04x", size, opcode)
	}
	frame := make([]byte, size)
	copy(frame, head[:2])
	if _, err := io.ReadFull(r, frame[2:]); err != nil {
		return nil, fmt.Errorf("reading body of 0x%04x: %w", opcode, err)
	}
	return frame, nil
}

// Opcode returns the frame's opcode.
func Opcode(frame []byte) uint16 {
	return binary.LittleEndian.Uint16(frame[:2])
}

// FormatIPv4 renders four address bytes in wire order as dotted quad.
func FormatIPv4(ip [4]byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}
