package serverpackets

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/athlogin/internal/model"
	"github.com/udisondev/athlogin/internal/protocol"
)

func TestLoginAccepted(t *testing.T) {
	buf := make([]byte, 512)

	servers := []ServerEntry{
		{IP: [4]byte{192, 168, 1, 20}, Port: 6121, Name: "Chaos", Users: 150, Maintenance: 0, New: 0},
		{IP: [4]byte{203, 0, 113, 8}, Port: 6122, Name: "Loki", Users: 7, Maintenance: 1, New: 1},
	}

	n := LoginAccepted(buf, 0x11223344, 2000000, 0x55667788, model.SexMale, servers)
	require.Equal(t, 47+32*2, n)

	assert.Equal(t, uint16(0x0069), binary.LittleEndian.Uint16(buf[0:]))
	assert.Equal(t, uint16(n), binary.LittleEndian.Uint16(buf[2:]))
	assert.Equal(t, uint32(0x11223344), binary.LittleEndian.Uint32(buf[4:]))
	assert.Equal(t, uint32(2000000), binary.LittleEndian.Uint32(buf[8:]))
	assert.Equal(t, uint32(0x55667788), binary.LittleEndian.Uint32(buf[12:]))
	assert.Equal(t, byte(model.SexMale), buf[46])

	// first server row
	assert.Equal(t, []byte{192, 168, 1, 20}, buf[47:51])
	assert.Equal(t, uint16(6121), binary.LittleEndian.Uint16(buf[51:]))
	assert.Equal(t, "Chaos", protocol.TrimFixed(buf[53:73]))
	assert.Equal(t, uint16(150), binary.LittleEndian.Uint16(buf[73:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(buf[75:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(buf[77:]))

	// second server row
	off := 47 + 32
	assert.Equal(t, []byte{203, 0, 113, 8}, buf[off:off+4])
	assert.Equal(t, uint16(6122), binary.LittleEndian.Uint16(buf[off+4:]))
	assert.Equal(t, "Loki", protocol.TrimFixed(buf[off+6:off+26]))
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(buf[off+26:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[off+28:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[off+30:]))
}

func TestLoginAcceptedNoServers(t *testing.T) {
	buf := make([]byte, 64)

	n := LoginAccepted(buf, 1, 2000001, 2, model.SexFemale, nil)

	assert.Equal(t, 47, n)
	assert.Equal(t, uint16(47), binary.LittleEndian.Uint16(buf[2:]))
	assert.Equal(t, byte(model.SexFemale), buf[46])
}
