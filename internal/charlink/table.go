package charlink

import (
	"sync"

	"github.com/udisondev/athlogin/internal/constants"
)

// BroadcastAll passes as exceptSlot when the packet goes to every link.
const BroadcastAll = -1

// Table holds the char-server slots. Номер слота равен account_id
// серверного аккаунта, поэтому он всегда мал.
type Table struct {
	mu      sync.Mutex
	servers [constants.MaxServers]*CharServer
}

// NewTable returns an empty slot table.
func NewTable() *Table {
	return &Table{}
}

// Claim occupies a slot. Fails when the slot is out of range or busy.
func (t *Table) Claim(slot int, s *CharServer) bool {
	if slot < 0 || slot >= constants.MaxServers {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.servers[slot] != nil {
		return false
	}
	t.servers[slot] = s
	return true
}

// Release frees a slot.
func (t *Table) Release(slot int) {
	if slot < 0 || slot >= constants.MaxServers {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.servers[slot] = nil
}

// Get returns the occupant of a slot, or nil.
func (t *Table) Get(slot int) *CharServer {
	if slot < 0 || slot >= constants.MaxServers {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.servers[slot]
}

// List returns the connected servers in slot order.
func (t *Table) List() []*CharServer {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*CharServer
	for _, s := range t.servers {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Connected reports whether any char-server is linked.
func (t *Table) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.servers {
		if s != nil {
			return true
		}
	}
	return false
}

// Broadcast sends the packet to every linked server except exceptSlot.
// Возвращает число получателей. Ошибки записи только считаются потерями:
// оборвавшийся линк добьёт его собственный читающий цикл.
func (t *Table) Broadcast(data []byte, exceptSlot int) int {
	t.mu.Lock()
	targets := make([]*CharServer, 0, constants.MaxServers)
	for slot, s := range t.servers {
		if s != nil && slot != exceptSlot {
			targets = append(targets, s)
		}
	}
	t.mu.Unlock()

	n := 0
	for _, s := range targets {
		if err := s.Send(data); err == nil {
			n++
		}
	}
	return n
}
