package repository

import (
	"slices"
	"sync"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/lifecycle"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// newID returns an ObjectID hex so memory and Mongo ids look alike
func newID() string {
	return primitive.NewObjectID().Hex()
}

// table is a mutex-guarded, insertion-ordered set of owned records. It gives
// the memory repositories the same conditional-write semantics as the
// Mongo filters: scope by owner, then require the status to be allowed.
type table[T any] struct {
	mu     sync.RWMutex
	rows   map[string]*T
	order  []string
	owner  func(*T) string
	status func(*T) lifecycle.Status
	clone  func(*T) *T
}

func newTable[T any](owner func(*T) string, status func(*T) lifecycle.Status, clone func(*T) *T) *table[T] {
	return &table[T]{
		rows:   make(map[string]*T),
		owner:  owner,
		status: status,
		clone:  clone,
	}
}

func (t *table[T]) insert(id string, row *T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = t.clone(row)
	t.order = append(t.order, id)
}

// lookup must be called with the lock held
func (t *table[T]) lookup(id, ownerID string) (*T, error) {
	row, ok := t.rows[id]
	if !ok || (ownerID != "" && t.owner(row) != ownerID) {
		return nil, domain.ErrNotFound
	}
	return row, nil
}

func (t *table[T]) get(id, ownerID string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, err := t.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	return t.clone(row), nil
}

// list returns copies of the owner's rows accepted by match. Descending
// lists walk newest insertions first so equal sort keys tie-break like _id.
func (t *table[T]) list(ownerID string, desc bool, match func(*T) bool) []*T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := t.order
	if desc {
		ids = slices.Clone(ids)
		slices.Reverse(ids)
	}
	out := make([]*T, 0)
	for _, id := range ids {
		row := t.rows[id]
		if t.owner(row) != ownerID || !match(row) {
			continue
		}
		out = append(out, t.clone(row))
	}
	return out
}

func (t *table[T]) checkAllowed(row *T, allowed []lifecycle.Status) error {
	current := t.status(row)
	if !slices.Contains(allowed, current) {
		return &domain.StaleStatusError{Current: current}
	}
	return nil
}

// mutate applies fn to the stored row if its status is in allowed
func (t *table[T]) mutate(id, ownerID string, allowed []lifecycle.Status, fn func(*T)) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, err := t.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := t.checkAllowed(row, allowed); err != nil {
		return nil, err
	}
	fn(row)
	return t.clone(row), nil
}

// remove deletes the row if its status is in allowed and returns it
func (t *table[T]) remove(id, ownerID string, allowed []lifecycle.Status) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, err := t.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := t.checkAllowed(row, allowed); err != nil {
		return nil, err
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(v string) bool { return v == id })
	return row, nil
}
