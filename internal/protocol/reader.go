package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Reader предоставляет курсорное чтение полей пакета.
// Little-Endian для всех многобайтовых значений.
type Reader struct {
	data []byte
	pos  int
}

// NewReader создаёт Reader поверх кадра, пропуская n байт заголовка.
func NewReader(frame []byte, skip int) *Reader {
	return &Reader{data: frame, pos: skip}
}

// Uint8 читает 1 байт.
func (r *Reader) Uint8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("uint8: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Uint16 читает 2 байта LE.
func (r *Reader) Uint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("uint16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// Uint32 читает 4 байта LE.
func (r *Reader) Uint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("uint32: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// Bytes читает n байт.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("bytes: not enough data (pos=%d, n=%d, len=%d)", r.pos, n, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// FixedString читает поле фиксированной ширины n, отбрасывая NUL-паддинг.
func (r *Reader) FixedString(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return TrimFixed(b), nil
}

// CString reads a NUL-terminated string from the current position.
func (r *Reader) CString() (string, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			s := string(r.data[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("cstring: unterminated (pos=%d, len=%d)", r.pos, len(r.data))
}

// Remaining возвращает число непрочитанных байт.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Pos returns the cursor position.
func (r *Reader) Pos() int { return r.pos }

// TrimFixed strips everything from the first NUL of a fixed-width field.
func TrimFixed(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}

// PutFixedString writes s NUL-padded into a width-n window of buf at off.
func PutFixedString(buf []byte, off int, s string, n int) {
	window := buf[off : off+n]
	clear(window)
	copy(window[:n-1], s) // always NUL-terminated
}
