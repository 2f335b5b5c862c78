package registry

import (
	"log/slog"
	"sync"

	"peerdrop/contract"
	"peerdrop/domain"
)

// Registry owns the connection <-> username binding. All mutations are
// serialized behind a single mutex so each inbound event observes a
// consistent view.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	names    map[domain.ConnID]domain.Username
	conns    map[domain.Username]domain.ConnID
	order    []domain.ConnID // bind order, drives the snapshot ordering
	notifier contract.PresenceNotifier
}

func NewRegistry(log *slog.Logger, notifier contract.PresenceNotifier) *Registry {
	return &Registry{
		log:      log,
		names:    make(map[domain.ConnID]domain.Username),
		conns:    make(map[domain.Username]domain.ConnID),
		notifier: notifier,
	}
}

// Bind registers the connection under the given name, last-bind-wins: a
// later join with a name held by another live connection silently steals
// it, so the snapshot never shows duplicate names. Binding is
// fire-and-forget, there is no error on conflict. Always followed by a
// presence broadcast.
func (r *Registry) Bind(conn domain.ConnID, name domain.Username) {
	r.mu.Lock()

	if prev, ok := r.conns[name]; ok && prev != conn {
		delete(r.names, prev)
		r.dropFromOrder(prev)
		r.log.Debug("Username stolen by a newer connection",
			"username", name, "previous_conn", prev, "conn", conn)
	}
	if old, ok := r.names[conn]; ok && old != name {
		delete(r.conns, old)
	}

	r.names[conn] = name
	r.conns[name] = conn
	if !r.inOrder(conn) {
		r.order = append(r.order, conn)
	}

	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.notifier.PresenceChanged(snapshot)
}

// Unbind removes the connection's binding. A never-bound connection is a
// no-op, but the presence broadcast fires regardless: the user list goes
// out on every disconnect.
func (r *Registry) Unbind(conn domain.ConnID) {
	r.mu.Lock()

	if name, ok := r.names[conn]; ok {
		delete(r.names, conn)
		if r.conns[name] == conn {
			delete(r.conns, name)
		}
		r.dropFromOrder(conn)
	}

	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.notifier.PresenceChanged(snapshot)
}

// Resolve returns the connection currently bound to the given name.
func (r *Registry) Resolve(name domain.Username) (domain.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[name]
	return conn, ok
}

// NameOf is the reverse lookup used to stamp outgoing messages with the
// sender identity.
func (r *Registry) NameOf(conn domain.ConnID) (domain.Username, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[conn]
	return name, ok
}

// Snapshot returns all currently-bound usernames in bind order.
func (r *Registry) Snapshot() []domain.Username {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.Username {
	users := make([]domain.Username, 0, len(r.order))
	for _, conn := range r.order {
		if name, ok := r.names[conn]; ok {
			users = append(users, name)
		}
	}
	return users
}

func (r *Registry) inOrder(conn domain.ConnID) bool {
	for _, c := range r.order {
		if c == conn {
			return true
		}
	}
	return false
}

func (r *Registry) dropFromOrder(conn domain.ConnID) {
	for i, c := range r.order {
		if c == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
