package serverpackets

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/athlogin/internal/protocol"
)

func TestLoginRefused(t *testing.T) {
	tests := []struct {
		name    string
		rcode   byte
		banDate string
		want    string // expected banDate field content
	}{
		{"wrong password", 1, "", ""},
		{"rejected from server", 3, "", ""},
		{"temporary ban carries date", 6, "2026-08-24 12:00:00", "2026-08-24 12:00:00"},
		{"date ignored for other codes", 1, "2026-08-24 12:00:00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 32)
			n := LoginRefused(buf, tt.rcode, tt.banDate)
			require.Equal(t, 23, n)

			assert.Equal(t, uint16(0x006a), binary.LittleEndian.Uint16(buf[0:]))
			assert.Equal(t, tt.rcode, buf[2])
			assert.Equal(t, tt.want, protocol.TrimFixed(buf[3:23]))
		})
	}
}

func TestMD5Key(t *testing.T) {
	buf := make([]byte, 32)
	key := []byte{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15}

	n := MD5Key(buf, key)

	require.Equal(t, 4+len(key), n)
	assert.Equal(t, uint16(0x01dc), binary.LittleEndian.Uint16(buf[0:]))
	assert.Equal(t, uint16(n), binary.LittleEndian.Uint16(buf[2:]))
	assert.Equal(t, key, buf[4:n])
}

func TestServerClosed(t *testing.T) {
	buf := make([]byte, 8)

	n := ServerClosed(buf, ServerClosedReasonClosed)

	require.Equal(t, 3, n)
	assert.Equal(t, uint16(0x0081), binary.LittleEndian.Uint16(buf[0:]))
	assert.Equal(t, byte(1), buf[2])
}

func TestHandshakeResult(t *testing.T) {
	buf := make([]byte, 8)

	n := HandshakeResult(buf, HandshakeRejected)

	require.Equal(t, 3, n)
	assert.Equal(t, uint16(0x2711), binary.LittleEndian.Uint16(buf[0:]))
	assert.Equal(t, byte(3), buf[2])
}

func TestVersionInfo(t *testing.T) {
	buf := make([]byte, 16)

	n := VersionInfo(buf)

	require.Equal(t, 10, n)
	assert.Equal(t, uint16(0x7531), binary.LittleEndian.Uint16(buf[0:]))
	// login server identity byte
	assert.Equal(t, byte(1), buf[7])
}
