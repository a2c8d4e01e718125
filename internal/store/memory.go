// Package store holds the order repositories. The memory variant is
// the default: order state is process-scoped and the chat history is
// the real record, so losing it on restart is accepted.
package store

import (
	"errors"
	"sync"
	"time"

	"stars-shop-backend/internal/domain"
)

var (
	// ErrNotFound reports an unknown order id.
	ErrNotFound = errors.New("order not found")
	// ErrDecided reports a transition attempt on an order that is no
	// longer pending. The current order accompanies the error so the
	// caller can tell a repeat of the same decision from a conflict.
	ErrDecided = errors.New("order already decided")
)

type Memory struct {
	mu sync.RWMutex
	m  map[string]*domain.Order
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]*domain.Order)}
}

func (r *Memory) Put(o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.m[o.OrderID] = &cp
	return nil
}

func (r *Memory) Get(id string) (*domain.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.m[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (r *Memory) List() []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Order, 0, len(r.m))
	for _, o := range r.m {
		out = append(out, *o)
	}
	return out
}

// Transition is the only way an order's status changes. The
// check-and-set runs under the write lock, so concurrent decisions on
// the same order resolve first-writer-wins: the loser gets ErrDecided
// and the state the winner left behind.
func (r *Memory) Transition(id string, to domain.OrderStatus, reason string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != domain.StatusPending {
		cp := *o
		return &cp, ErrDecided
	}
	o.Status = to
	o.RejectReason = reason
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}
