// Package presence хранит в памяти, кто из аккаунтов сейчас онлайн и на
// каком char-server. Это справка, а не источник истины: при выключенном
// online_check реестр почти полностью бездействует.
package presence

import (
	"sync"

	"github.com/udisondev/athlogin/internal/constants"
)

// Server id markers inside the registry.
const (
	// ServerNone means the account is known but attached to no server.
	ServerNone = -1
	// ServerOrphaned marks users of a char-server that dropped its link;
	// the periodic cleanup sweeps them.
	ServerOrphaned = -2
)

type entry struct {
	server  int
	waiting bool // pending forced-disconnect watchdog
}

// Registry is the in-memory online map guarded by a mutex.
type Registry struct {
	mu      sync.Mutex
	enabled bool
	users   map[int64]*entry
}

// New builds the registry. enabled mirrors the online_check setting.
func New(enabled bool) *Registry {
	return &Registry{
		enabled: enabled,
		users:   make(map[int64]*entry),
	}
}

// Enabled reports whether presence tracking is on.
func (r *Registry) Enabled() bool { return r.enabled }

// MarkOnline attaches the account to a server. Resets the watchdog flag:
// аккаунт объявился, принудительный дисконнект больше не нужен.
func (r *Registry) MarkOnline(accountID int64, server int) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[accountID]
	if !ok {
		e = &entry{}
		r.users[accountID] = e
	}
	e.server = server
	e.waiting = false
}

// Lookup returns the server the account is attached to. online is false for
// unknown accounts; a known account may still report ServerNone or
// ServerOrphaned.
func (r *Registry) Lookup(accountID int64) (server int, online bool) {
	if !r.enabled {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[accountID]
	if !ok {
		return 0, false
	}
	return e.server, true
}

// SetOffline drops the account. The sentinel id wipes the whole registry —
// так команда полной очистки ездит по обычному "offline" пакету.
func (r *Registry) SetOffline(accountID int64) {
	if !r.enabled {
		return
	}
	if accountID == constants.PurgeSentinelAccountID {
		r.PurgeAll()
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, accountID)
}

// DetachAll resets every account to ServerNone and disarms watchdogs.
// Entries survive: the accounts are still "known online", just serverless.
func (r *Registry) DetachAll() {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		e.server = ServerNone
		e.waiting = false
	}
}

// MarkOrphaned re-tags users of one char-server; cleanup will sweep them
// even if the server never comes back.
func (r *Registry) MarkOrphaned(server int) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		if e.server == server {
			e.server = ServerOrphaned
		}
	}
}

// ApplySnapshot replaces the online set of one server with the authoritative
// list it just reported. Former users of the server not in the list are left
// orphaned for the cleanup to collect.
func (r *Registry) ApplySnapshot(server int, accountIDs []int64) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		if e.server == server {
			e.server = ServerOrphaned
		}
	}
	for _, id := range accountIDs {
		e, ok := r.users[id]
		if !ok {
			e = &entry{}
			r.users[id] = e
		}
		e.server = server
	}
}

// Cleanup sweeps every serverless entry: orphans of dead char-servers and
// stale grants that never reached one.
func (r *Registry) Cleanup() {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.users {
		if e.server < 0 {
			delete(r.users, id)
		}
	}
}

// SetWaitingDisconnect arms the ghost watchdog for the account.
func (r *Registry) SetWaitingDisconnect(accountID int64) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.users[accountID]; ok {
		e.waiting = true
	}
}

// WaitingDisconnect reports whether the watchdog is already armed.
func (r *Registry) WaitingDisconnect(accountID int64) bool {
	if !r.enabled {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[accountID]
	return ok && e.waiting
}

// DropIfWaiting removes the account iff its watchdog flag is still armed.
// Возвращает true, если призрак действительно был удалён.
func (r *Registry) DropIfWaiting(accountID int64) bool {
	if !r.enabled {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[accountID]
	if !ok || !e.waiting {
		return false
	}
	delete(r.users, accountID)
	return true
}

// PurgeAll wipes the registry regardless of the enabled flag.
func (r *Registry) PurgeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = make(map[int64]*entry)
}

// Count returns the number of tracked accounts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
