// Package registry holds the in-process pledge registry.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/animaisueg/pledge-service/internal/domain"
)

type entry struct {
	mu     sync.Mutex
	pledge domain.Pledge
}

// Memory is a domain.PledgeStore backed by a map. The map lock only guards
// membership; each record carries its own mutex for status changes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*entry), now: time.Now}
}

func (m *Memory) Insert(_ context.Context, p *domain.Pledge) error {
	if p == nil || p.PaymentID == "" {
		return fmt.Errorf("%w: payment id is required", domain.ErrInvalidInput)
	}
	now := m.now()
	record := *p
	record.Status = domain.PledgeStatusPending
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[record.PaymentID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, record.PaymentID)
	}
	m.entries[record.PaymentID] = &entry{pledge: record}
	*p = record
	return nil
}

func (m *Memory) Get(_ context.Context, paymentID string) (*domain.Pledge, error) {
	e, ok := m.lookup(paymentID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.mu.Lock()
	out := e.pledge
	e.mu.Unlock()
	return &out, nil
}

func (m *Memory) Transition(_ context.Context, paymentID string, next domain.PledgeStatus) (*domain.Pledge, error) {
	e, ok := m.lookup(paymentID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.pledge.Status
	if !current.CanTransition(next) {
		out := e.pledge
		return &out, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, next)
	}
	if current != next {
		e.pledge.Status = next
		e.pledge.UpdatedAt = m.now()
	}
	out := e.pledge
	return &out, nil
}

// MarkApproved is Transition to approved; approving twice is a no-op.
func (m *Memory) MarkApproved(ctx context.Context, paymentID string) (*domain.Pledge, error) {
	return m.Transition(ctx, paymentID, domain.PledgeStatusApproved)
}

// ListByStatus returns copies ordered by creation time.
func (m *Memory) ListByStatus(_ context.Context, status domain.PledgeStatus) ([]domain.Pledge, error) {
	m.mu.RLock()
	candidates := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		candidates = append(candidates, e)
	}
	m.mu.RUnlock()

	var out []domain.Pledge
	for _, e := range candidates {
		e.mu.Lock()
		if e.pledge.Status == status {
			out = append(out, e.pledge)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len reports how many pledges are held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) lookup(paymentID string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[paymentID]
	return e, ok
}
