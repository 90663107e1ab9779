package http_server

import (
	"errors"
	"sync"
	"time"

	"github.com/danthegoodman1/idhash/hasher"
	"github.com/danthegoodman1/idhash/utils"
)

var (
	ErrHasherNotFound = errors.New("hasher not found")
	ErrTooManyHashers = errors.New("too many open hashers")
)

type (
	hasherSession struct {
		ID      string
		Created time.Time
		Hasher  *hasher.IDHasher
	}

	// hasherRegistry holds the open incremental hashers, in memory only
	hasherRegistry struct {
		mu       sync.Mutex
		sessions map[string]*hasherSession
		max      int
	}
)

func newHasherRegistry(max int) *hasherRegistry {
	return &hasherRegistry{
		sessions: make(map[string]*hasherSession),
		max:      max,
	}
}

func (r *hasherRegistry) Open(h *hasher.IDHasher) (*hasherSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, ErrTooManyHashers
	}
	sess := &hasherSession{
		ID:      utils.GenKSortedID("hsh_"),
		Created: time.Now(),
		Hasher:  h,
	}
	r.sessions[sess.ID] = sess
	return sess, nil
}

func (r *hasherRegistry) Get(id string) (*hasherSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrHasherNotFound
	}
	return sess, nil
}

func (r *hasherRegistry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrHasherNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *hasherRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
