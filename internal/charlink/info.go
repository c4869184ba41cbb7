// Package charlink обслуживает линк с char-server'ами: таблица слотов,
// кэш GM-аккаунтов и разбор межсерверных пакетов.
package charlink

import (
	"fmt"
	"io"
	"sync"
)

// CharServer is one linked char-server occupying a slot.
type CharServer struct {
	Slot        int
	Name        string
	IP          [4]byte // WAN address announced at handshake
	Port        uint16
	Maintenance uint16
	New         uint16

	mu    sync.Mutex
	users int
	conn  io.Writer
}

// NewCharServer binds a slot descriptor to its connection.
func NewCharServer(slot int, name string, ip [4]byte, port, maintenance, isNew uint16, conn io.Writer) *CharServer {
	return &CharServer{
		Slot:        slot,
		Name:        name,
		IP:          ip,
		Port:        port,
		Maintenance: maintenance,
		New:         isNew,
		conn:        conn,
	}
}

// Send writes one packet to the link. Потокобезопасно: пакеты от
// обработчика и от таймеров не должны перемешиваться.
func (s *CharServer) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("writing to char-server %q: %w", s.Name, err)
	}
	return nil
}

// Users returns the last reported player count.
func (s *CharServer) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users
}

// SetUsers stores the reported player count; reports whether it changed.
func (s *CharServer) SetUsers(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == n {
		return false
	}
	s.users = n
	return true
}

// SetIP rewrites the WAN address after a 0x2736 update.
func (s *CharServer) SetIP(ip [4]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IP = ip
}

// Addr returns the announced WAN address.
func (s *CharServer) Addr() [4]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.IP
}
