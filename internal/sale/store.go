package sale

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds open sale sessions in memory. Sessions are till-local and
// short-lived; the durable record only exists once the gateway accepts the
// finalized document. Expired sessions are dropped lazily and by Sweep.
type Store struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.Mutex
	sales map[uuid.UUID]*entry
}

type entry struct {
	sale     *Sale
	lastUsed time.Time
}

// NewStore constructs a session store with the given idle TTL. A zero TTL
// disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		TTL:   ttl,
		Now:   time.Now,
		sales: make(map[uuid.UUID]*entry),
	}
}

func (st *Store) now() time.Time {
	if st.Now != nil {
		return st.Now()
	}
	return time.Now()
}

func (st *Store) expired(e *entry, now time.Time) bool {
	return st.TTL > 0 && now.Sub(e.lastUsed) > st.TTL
}

// Put registers a sale session.
func (st *Store) Put(s *Sale) {
	if st == nil || s == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sales[s.ID] = &entry{sale: s, lastUsed: st.now()}
}

// lookup returns the live entry for id, dropping it when expired. Callers
// must hold st.mu.
func (st *Store) lookup(id uuid.UUID) (*entry, error) {
	e, ok := st.sales[id]
	now := st.now()
	if !ok || st.expired(e, now) {
		delete(st.sales, id)
		return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	e.lastUsed = now
	return e, nil
}

// Get returns a deep copy of the sale with the given id and refreshes its
// idle timer. The copy is safe to read while other goroutines edit the
// session.
func (st *Store) Get(id uuid.UUID) (*Sale, error) {
	if st == nil {
		return nil, ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.sale.Clone(), nil
}

// Mutate applies fn to the sale under the store lock, serializing concurrent
// edits to the same session.
func (st *Store) Mutate(id uuid.UUID, fn func(*Sale) error) error {
	if st == nil {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return err
	}
	return fn(e.sale)
}

// View runs fn against the live sale under the store lock. fn must not
// retain the *Sale or anything reachable from it past the call.
func (st *Store) View(id uuid.UUID, fn func(*Sale) error) error {
	if st == nil {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return err
	}
	return fn(e.sale)
}

// Finish runs fn against the live sale under the store lock and removes the
// session when fn returns nil. Finalizing is thereby atomic with respect to
// concurrent edits: no line can be added between computing the document and
// dropping the session.
func (st *Store) Finish(id uuid.UUID, fn func(*Sale) error) error {
	if st == nil {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e, err := st.lookup(id)
	if err != nil {
		return err
	}
	if err := fn(e.sale); err != nil {
		return err
	}
	delete(st.sales, id)
	return nil
}

// Delete removes a sale session. Deleting an unknown id is not an error.
func (st *Store) Delete(id uuid.UUID) {
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sales, id)
}

// Sweep drops all expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	removed := 0
	for id, e := range st.sales {
		if st.expired(e, now) {
			delete(st.sales, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sales)
}
