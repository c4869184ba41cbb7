// Package ipban решает, пускать ли клиента по его адресу: таблица банов
// в базе плюс опциональная проверка DNSBL.
package ipban

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/model"
)

// BanStore is the slice of the ipbanlist repository the gate needs.
type BanStore interface {
	IsBanned(ctx context.Context, a, b, c, d byte) (bool, error)
	Add(ctx context.Context, pattern string, d time.Duration, reason string) error
}

// Auditor appends loginlog rows.
type Auditor interface {
	Append(ctx context.Context, ip uint32, user string, rcode int, msg string) error
}

// Gate gates incoming client connections by source address. DNSBL не здесь:
// чёрный список отвечает клиенту кодом отказа, а не молчаливым обрывом,
// поэтому живёт в движке авторизации.
type Gate struct {
	cfg   *config.Config
	bans  BanStore
	audit Auditor
	log   *slog.Logger
}

// NewGate wires the gate.
func NewGate(cfg *config.Config, bans BanStore, audit Auditor, log *slog.Logger) *Gate {
	return &Gate{cfg: cfg, bans: bans, audit: audit, log: log}
}

// Allow reports whether the address may proceed to authentication.
// При ошибке базы отвечаем "забанен": лучше отказать, чем пропустить.
func (g *Gate) Allow(ctx context.Context, a, b, c, d byte) bool {
	if g.cfg.IPBan {
		banned, err := g.bans.IsBanned(ctx, a, b, c, d)
		if err != nil {
			g.log.Error("ip ban lookup failed, refusing connection", "error", err)
			return false
		}
		if banned {
			ip := uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
			if err := g.audit.Append(ctx, ip, "unknown", int(model.StateBanned), "ip banned"); err != nil {
				g.log.Error("audit append failed", "error", err)
			}
			g.log.Info("connection refused, ip banned",
				"ip", fmt.Sprintf("%d.%d.%d.%d", a, b, c, d))
			return false
		}
	}

	return true
}

// AddDynamic bans the /24 around the offending address.
func (g *Gate) AddDynamic(ctx context.Context, a, b, c byte, d time.Duration, reason string) error {
	pattern := fmt.Sprintf("%d.%d.%d.*", a, b, c)
	if err := g.bans.Add(ctx, pattern, d, reason); err != nil {
		return fmt.Errorf("adding dynamic ban %s: %w", pattern, err)
	}
	g.log.Info("dynamic ip ban added", "pattern", pattern, "duration", d, "reason", reason)
	return nil
}
