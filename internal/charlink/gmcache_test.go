package charlink

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/athlogin/internal/model"
)

type fakeGMLoader struct {
	gms []model.GMAccount
	err error
}

func (f *fakeGMLoader) LoadGMList(context.Context) ([]model.GMAccount, error) {
	return f.gms, f.err
}

func TestGMCacheReload(t *testing.T) {
	loader := &fakeGMLoader{gms: []model.GMAccount{
		{AccountID: 2000000, Level: 99},
		{AccountID: 2000002, Level: 60},
	}}
	cache := NewGMCache(true, loader, slog.Default())

	require.NoError(t, cache.Reload(context.Background()))
	assert.Len(t, cache.Snapshot(), 2)

	pkt := cache.Packet()
	require.NotNil(t, pkt)
	assert.Equal(t, uint16(0x2732), binary.LittleEndian.Uint16(pkt[0:]))
	assert.Equal(t, 4+2*5, len(pkt))
}

func TestGMCacheDisabled(t *testing.T) {
	loader := &fakeGMLoader{err: errors.New("must not be called")}
	cache := NewGMCache(false, loader, slog.Default())

	assert.NoError(t, cache.Reload(context.Background()))
	assert.Nil(t, cache.Packet())

	// SendAll на выключенном кэше ничего не шлёт
	tbl := NewTable()
	var conn bytes.Buffer
	tbl.Claim(0, testServer(0, "Chaos", &conn))
	cache.SendAll(tbl)
	assert.Empty(t, conn.Bytes())
}

func TestGMCacheSendTo(t *testing.T) {
	loader := &fakeGMLoader{gms: []model.GMAccount{{AccountID: 2000000, Level: 99}}}
	cache := NewGMCache(true, loader, slog.Default())
	require.NoError(t, cache.Reload(context.Background()))

	var conn bytes.Buffer
	srv := testServer(0, "Chaos", &conn)

	require.NoError(t, cache.SendTo(srv))
	assert.Equal(t, uint16(0x2732), binary.LittleEndian.Uint16(conn.Bytes()))
}
