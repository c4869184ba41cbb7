package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/athlogin/internal/charlink"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/presence"
	"github.com/udisondev/athlogin/internal/protocol"
)

// Server accepts client connections on login_port. Одно и то же соединение
// начинает жизнь игровым клиентом и может повыситься до линка char-server
// после рукопожатия 0x2710.
type Server struct {
	cfg         *config.Config
	handler     *Handler
	linkHandler *charlink.Handler
	table       *charlink.Table
	registry    *presence.Registry
	status      StatusStore

	listener net.Listener
	mu       sync.Mutex
}

// NewServer wires the listener.
func NewServer(
	cfg *config.Config,
	handler *Handler,
	linkHandler *charlink.Handler,
	table *charlink.Table,
	registry *presence.Registry,
	status StatusStore,
) *Server {
	return &Server{
		cfg:         cfg,
		handler:     handler,
		linkHandler: linkHandler,
		table:       table,
		registry:    registry,
		status:      status,
	}
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener и останавливает сервер.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run begins listening for connections.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindIP, s.cfg.LoginPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("login server is ready", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()
	return nil
}

func acceptLoop(ctx context.Context, wg *sync.WaitGroup, srv *Server, ln net.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept new connection", "error", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	cli, err := NewClient(conn)
	if err != nil {
		slog.Error("failed to create client", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	slog.Info("new connection", "remote", cli.Addr())

	for {
		frame, err := protocol.ReadFrame(conn, ClientFrameTable)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownOpcode) {
				slog.Warn("abnormal end of connection", "remote", cli.Addr(), "error", err)
			} else {
				slog.Debug("connection closed", "remote", cli.Addr(), "error", err)
			}
			return
		}

		disp, err := srv.handler.Handle(ctx, cli, frame)
		if err != nil {
			slog.Error("failed to handle packet", "remote", cli.Addr(), "error", err)
			return
		}
		if disp.Promoted != nil {
			serveLink(ctx, srv, cli, disp.Promoted)
			return
		}
		if disp.Close {
			return
		}
	}
}

// serveLink reads char-link frames until the connection drops, then cleans
// up the slot state.
func serveLink(ctx context.Context, srv *Server, cli *Client, link *charlink.CharServer) {
	defer func() {
		slog.Info("char-server has disconnected", "server", link.Name, "slot", link.Slot)
		srv.table.Release(link.Slot)
		srv.registry.MarkOrphaned(link.Slot)
		if err := srv.status.Delete(ctx, link.Slot); err != nil {
			slog.Error("sstatus cleanup failed", "slot", link.Slot, "error", err)
		}
	}()

	for {
		frame, err := protocol.ReadFrame(cli.conn, charlink.FrameTable)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownOpcode) {
				slog.Error("unknown packet from char-server", "server", link.Name, "error", err)
			}
			return
		}
		if err := srv.linkHandler.Handle(ctx, link, frame, cli.IPHost()); err != nil {
			slog.Error("failed to handle char-server packet",
				"server", link.Name, "error", err)
			return
		}
	}
}
