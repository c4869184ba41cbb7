package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderScalars(t *testing.T) {
	data := []byte{
		0xAA, 0xBB, // header, skipped
		0x07,       // uint8
		0x34, 0x12, // uint16 LE
		0x78, 0x56, 0x34, 0x12, // uint32 LE
	}
	r := NewReader(data, 2)

	b, err := r.Uint8()
	require.NoError(t, err)
	assert.Equal(t, byte(0x07), b)

	w, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), w)

	l, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), l)

	assert.Equal(t, 0, r.Remaining())

	_, err = r.Uint8()
	assert.Error(t, err)
}

func TestReaderFixedString(t *testing.T) {
	data := append([]byte("gandalf"), make([]byte, 17)...) // 24-byte window
	r := NewReader(data, 0)

	s, err := r.FixedString(24)
	require.NoError(t, err)
	assert.Equal(t, "gandalf", s)
	assert.Equal(t, 24, r.Pos())
}

func TestReaderCString(t *testing.T) {
	r := NewReader([]byte("name\x00value\x00"), 0)

	name, err := r.CString()
	require.NoError(t, err)
	assert.Equal(t, "name", name)

	value, err := r.CString()
	require.NoError(t, err)
	assert.Equal(t, "value", value)
	assert.Equal(t, 0, r.Remaining())

	_, err = r.CString()
	assert.Error(t, err)
}

func TestReaderCStringUnterminated(t *testing.T) {
	r := NewReader([]byte("dangling"), 0)
	_, err := r.CString()
	assert.Error(t, err)
}

func TestTrimFixed(t *testing.T) {
	assert.Equal(t, "abc", TrimFixed([]byte("abc\x00\x00\x00")))
	assert.Equal(t, "abc", TrimFixed([]byte("abc")))
	assert.Equal(t, "", TrimFixed([]byte("\x00junk")))
}

func TestPutFixedString(t *testing.T) {
	buf := make([]byte, 30)
	for i := range buf {
		buf[i] = 0xFF
	}

	PutFixedString(buf, 2, "hero", 24)

	assert.Equal(t, byte(0xFF), buf[0])
	assert.Equal(t, byte(0xFF), buf[1])
	assert.Equal(t, "hero", TrimFixed(buf[2:26]))
	// window is fully cleared past the value
	assert.Equal(t, byte(0), buf[25])
	assert.Equal(t, byte(0xFF), buf[26])

	// over-long values are clipped and stay NUL-terminated
	PutFixedString(buf, 2, "0123456789012345678901234567", 24)
	assert.Equal(t, byte(0), buf[25])
	assert.Equal(t, "01234567890123456789012", TrimFixed(buf[2:26]))
}
