package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// Registry hands out instance identifiers that are unique among the live
// instances it tracks. Many instances may share one registry and one render
// worker.
//
// Thread-safety: This implementation is thread-safe.
type Registry struct {
	mu    sync.Mutex
	ids   map[domain.InstanceID]struct{}
	newID func() string
}

// NewRegistry creates an empty registry issuing random UUIDs.
func NewRegistry() *Registry {
	return &Registry{
		ids:   make(map[domain.InstanceID]struct{}),
		newID: uuid.NewString,
	}
}

// Register reserves a fresh identifier.
func (r *Registry) Register() domain.InstanceID {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id := domain.InstanceID(r.newID())
		if _, taken := r.ids[id]; !taken {
			r.ids[id] = struct{}{}
			return id
		}
	}
}

// Release frees an identifier for reuse. Unknown identifiers are ignored.
func (r *Registry) Release(id domain.InstanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, id)
}

// Contains reports whether id is reserved.
func (r *Registry) Contains(id domain.InstanceID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of reserved identifiers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
