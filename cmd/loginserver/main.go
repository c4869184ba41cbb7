package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/athlogin/internal/authfifo"
	"github.com/udisondev/athlogin/internal/charlink"
	"github.com/udisondev/athlogin/internal/charlink/serverpackets"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/db"
	"github.com/udisondev/athlogin/internal/ipban"
	"github.com/udisondev/athlogin/internal/lan"
	"github.com/udisondev/athlogin/internal/login"
	"github.com/udisondev/athlogin/internal/presence"
	"github.com/udisondev/athlogin/internal/scheduler"
)

// Default configuration paths; overridable by positional arguments.
const (
	loginConfPath = "conf/login_athena.conf"
	lanConfPath   = "conf/subnet_athena.conf"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("login server starting")

	cfgPath := loginConfPath
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	lanPath := lanConfPath
	if len(os.Args) > 2 {
		lanPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindIP, "port", cfg.LoginPort,
		"new_account", cfg.NewAccount, "online_check", cfg.OnlineCheck)

	lanMap, err := lan.Load(lanPath)
	if err != nil {
		return fmt.Errorf("loading lan config: %w", err)
	}

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	accounts := db.NewAccountRepository(database.Pool(), cfg.Tables)
	audit := db.NewAuditRepository(database.Pool(), cfg.Tables)
	bans := db.NewIPBanRepository(database.Pool(), cfg.Tables)
	regs := db.NewRegRepository(database.Pool(), cfg.Tables)
	status := db.NewStatusRepository(database.Pool(), cfg.Tables)

	log := slog.Default()

	gate := ipban.NewGate(&cfg, bans, audit, log)
	var dnsbl login.DNSBLChecker
	if cfg.UseDNSBL {
		probe, err := ipban.NewDNSBL(cfg.DNSBLServers, log)
		if err != nil {
			return fmt.Errorf("initializing dnsbl: %w", err)
		}
		dnsbl = probe
	}

	registry := presence.New(cfg.OnlineCheck)
	fifo := authfifo.New()
	table := charlink.NewTable()
	gmcache := charlink.NewGMCache(cfg.GMReadEnabled, accounts, log)
	if err := gmcache.Reload(ctx); err != nil {
		slog.Error("initial gm list read failed", "error", err)
	}

	sched := scheduler.New(log)
	registerTimers(ctx, &cfg, sched, database, bans, registry, table)

	engine := login.NewEngine(&cfg, accounts, dnsbl, registry, table, mintMD5Key(),
		func(accountID int64) {
			sched.Once(30*time.Second, "waiting_disconnect_timer", accountID)
		}, log)

	linkHandler := charlink.NewHandler(&cfg, accounts, regs, status, audit,
		registry, fifo, gmcache, table, log)
	handler := login.NewHandler(&cfg, engine, gate, lanMap, fifo, table, status,
		audit, gmcache, log)
	server := login.NewServer(&cfg, handler, linkHandler, table, registry, status)

	if cfg.LogLogin {
		if err := audit.Append(ctx, 0, "lserver", 100, "login server started"); err != nil {
			slog.Error("startup audit failed", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("login server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})

	err = g.Wait()

	// Завершение: строка аудита и чистка sstatus, чтобы после рестарта не
	// оставалось фантомных char-server'ов.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cfg.LogLogin {
		if aerr := audit.Append(shutdownCtx, 0, "lserver", 100, "login server shutdown"); aerr != nil {
			slog.Error("shutdown audit failed", "error", aerr)
		}
	}
	if serr := status.DeleteAll(shutdownCtx); serr != nil {
		slog.Error("sstatus shutdown cleanup failed", "error", serr)
	}

	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// registerTimers wires the periodic jobs.
func registerTimers(
	ctx context.Context,
	cfg *config.Config,
	sched *scheduler.Scheduler,
	database *db.DB,
	bans *db.IPBanRepository,
	registry *presence.Registry,
	table *charlink.Table,
) {
	sched.Register("waiting_disconnect_timer", func(_ scheduler.TimerID, _ time.Time, arg int64) {
		if registry.DropIfWaiting(arg) {
			slog.Info("ghost session dropped", "account", arg)
		}
	})

	sched.Register("login_sql_ping", func(_ scheduler.TimerID, _ time.Time, _ int64) {
		if err := database.Ping(ctx); err != nil {
			slog.Error("database keepalive failed", "error", err)
		}
	})
	sched.Interval(database.KeepaliveInterval(ctx), "login_sql_ping", 0)

	sched.Register("ip_ban_flush", func(_ scheduler.TimerID, _ time.Time, _ int64) {
		n, err := bans.FlushExpired(ctx)
		if err != nil {
			slog.Error("ip ban flush failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("expired ip bans removed", "count", n)
		}
	})
	sched.Interval(time.Minute, "ip_ban_flush", 0)

	sched.Register("online_data_cleanup", func(_ scheduler.TimerID, _ time.Time, _ int64) {
		registry.Cleanup()
	})
	sched.Interval(10*time.Minute, "online_data_cleanup", 0)

	if cfg.IPSyncInterval > 0 {
		sched.Register("sync_ip_addresses", func(_ scheduler.TimerID, _ time.Time, _ int64) {
			slog.Info("ip sync in progress")
			buf := make([]byte, 2)
			n := serverpackets.IPSyncRequest(buf)
			table.Broadcast(buf[:n], charlink.BroadcastAll)
		})
		sched.Interval(cfg.IPSyncInterval, "sync_ip_addresses", 0)
	}
}

// mintMD5Key generates the per-process salt: 12..15 bytes, values 1..255.
func mintMD5Key() []byte {
	n := constants.MD5KeyMinLength + rand.IntN(constants.MD5KeyMaxLength-constants.MD5KeyMinLength+1)
	key := make([]byte, n)
	for i := range key {
		key[i] = byte(rand.IntN(255) + 1)
	}
	return key
}
