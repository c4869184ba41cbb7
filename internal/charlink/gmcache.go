package charlink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/udisondev/athlogin/internal/charlink/serverpackets"
	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/model"
)

// GMLoader reads the GM account list from storage.
type GMLoader interface {
	LoadGMList(ctx context.Context) ([]model.GMAccount, error)
}

// GMCache держит список GM-аккаунтов в памяти и умеет рассылать его
// char-server'ам. При выключенном gm_read кэш пуст и молчит.
type GMCache struct {
	mu      sync.Mutex
	enabled bool
	loader  GMLoader
	gms     []model.GMAccount
	log     *slog.Logger
}

// NewGMCache builds the cache; call Reload before first use.
func NewGMCache(enabled bool, loader GMLoader, log *slog.Logger) *GMCache {
	return &GMCache{enabled: enabled, loader: loader, log: log}
}

// Reload re-reads the GM list from storage.
func (c *GMCache) Reload(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	gms, err := c.loader.LoadGMList(ctx)
	if err != nil {
		return fmt.Errorf("reloading gm list: %w", err)
	}
	c.mu.Lock()
	c.gms = gms
	c.mu.Unlock()
	c.log.Info("gm list reloaded", "accounts", len(gms))
	return nil
}

// Snapshot returns a copy of the cached list.
func (c *GMCache) Snapshot() []model.GMAccount {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.GMAccount, len(c.gms))
	copy(out, c.gms)
	return out
}

// Packet builds the 0x2732 frame, or nil when gm_read is off.
func (c *GMCache) Packet() []byte {
	if !c.enabled {
		return nil
	}
	gms := c.Snapshot()
	buf := make([]byte, constants.MaxFrameSize)
	n, truncated := serverpackets.GMList(buf, gms)
	if truncated {
		c.log.Warn("gm list does not fit in one packet, tail dropped", "accounts", len(gms))
	}
	return buf[:n]
}

// SendTo pushes the list to one freshly linked char-server.
func (c *GMCache) SendTo(s *CharServer) error {
	pkt := c.Packet()
	if pkt == nil {
		return nil
	}
	return s.Send(pkt)
}

// SendAll pushes the list to every linked char-server.
func (c *GMCache) SendAll(t *Table) {
	pkt := c.Packet()
	if pkt == nil {
		return
	}
	t.Broadcast(pkt, BroadcastAll)
}
