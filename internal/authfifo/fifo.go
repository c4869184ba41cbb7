// Package authfifo держит кольцо одноразовых талонов авторизации:
// логин-сервер кладёт талон после успешного входа, char-server гасит его
// при переходе клиента.
package authfifo

import (
	"sync"

	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/model"
)

// Entry is one auth ticket.
type Entry struct {
	AccountID int64
	LoginID1  uint32
	LoginID2  uint32
	Sex       model.Sex
	IP        [4]byte
	consumed  bool
}

// Fifo is a fixed ring of tickets. Переполнение затирает самые старые —
// так же устроен и лимит в 256 одновременно ожидающих входов.
type Fifo struct {
	mu      sync.Mutex
	entries [constants.AuthFifoSize]Entry
	pos     int
}

// New returns an empty ring.
func New() *Fifo {
	f := &Fifo{}
	for i := range f.entries {
		f.entries[i].consumed = true
	}
	return f
}

// Push adds a fresh ticket. Any still-unconsumed ticket of the same account
// is invalidated first: у аккаунта живёт ровно один талон.
func (f *Fifo) Push(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if !f.entries[i].consumed && f.entries[i].AccountID == e.AccountID {
			f.entries[i].consumed = true
		}
	}
	e.consumed = false
	f.entries[f.pos] = e
	f.pos = (f.pos + 1) % len(f.entries)
}

// Consume burns the ticket matching the full tuple. Returns false when no
// live ticket matches.
func (f *Fifo) Consume(accountID int64, id1, id2 uint32, sex model.Sex, ip [4]byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		e := &f.entries[i]
		if e.consumed {
			continue
		}
		if e.AccountID == accountID && e.LoginID1 == id1 && e.LoginID2 == id2 &&
			e.Sex == sex && e.IP == ip {
			e.consumed = true
			return true
		}
	}
	return false
}

// Invalidate burns every live ticket of the account (kick, ban, state change).
func (f *Fifo) Invalidate(accountID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if !f.entries[i].consumed && f.entries[i].AccountID == accountID {
			f.entries[i].consumed = true
		}
	}
}

// Live returns the number of unconsumed tickets (for status reporting).
func (f *Fifo) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.entries {
		if !f.entries[i].consumed {
			n++
		}
	}
	return n
}
