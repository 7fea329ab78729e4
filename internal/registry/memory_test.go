package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/animaisueg/pledge-service/internal/domain"
)

func newPledge(id string) *domain.Pledge {
	return &domain.Pledge{PaymentID: id, ContributorName: "Ana", Amount: domain.MustAmount("50.00")}
}

func TestInsertStartsPending(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := newPledge("pay-1")
	p.Status = domain.PledgeStatusApproved
	require.NoError(t, m.Insert(ctx, p))

	got, err := m.Get(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PledgeStatusPending, got.Status)
	require.Equal(t, "Ana", got.ContributorName)
	require.Equal(t, "50.00", got.Amount.String())
	require.False(t, got.CreatedAt.IsZero())
}

func TestInsertRejectsDuplicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, newPledge("pay-1")))
	_, err := m.MarkApproved(ctx, "pay-1")
	require.NoError(t, err)

	dup := newPledge("pay-1")
	dup.ContributorName = "Bruno"
	err = m.Insert(ctx, dup)
	require.True(t, errors.Is(err, domain.ErrDuplicateID), "got %v", err)

	got, err := m.Get(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, "Ana", got.ContributorName)
	require.Equal(t, domain.PledgeStatusApproved, got.Status)
}

func TestMarkApprovedIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, newPledge("pay-1")))

	first, err := m.MarkApproved(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PledgeStatusApproved, first.Status)

	second, err := m.MarkApproved(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PledgeStatusApproved, second.Status)
	require.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestMarkApprovedUnknown(t *testing.T) {
	_, err := NewMemory().MarkApproved(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTerminalStatesAreMonotonic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, newPledge("pay-1")))
	_, err := m.MarkApproved(ctx, "pay-1")
	require.NoError(t, err)

	for _, next := range []domain.PledgeStatus{domain.PledgeStatusPending, domain.PledgeStatusRejected, domain.PledgeStatusExpired} {
		_, err := m.Transition(ctx, "pay-1", next)
		require.True(t, errors.Is(err, domain.ErrInvalidTransition), "to %s: %v", next, err)
	}
	got, err := m.Get(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PledgeStatusApproved, got.Status)
}

func TestExpiredPledgeCanStillBeApproved(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, newPledge("pay-1")))
	_, err := m.Transition(ctx, "pay-1", domain.PledgeStatusExpired)
	require.NoError(t, err)

	_, err = m.Transition(ctx, "pay-1", domain.PledgeStatusRejected)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := m.MarkApproved(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, domain.PledgeStatusApproved, got.Status)

	_, err = m.Transition(ctx, "pay-1", domain.PledgeStatusExpired)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, newPledge("pay-1")))

	got, err := m.Get(ctx, "pay-1")
	require.NoError(t, err)
	got.ContributorName = "mutated"
	got.Status = domain.PledgeStatusApproved

	again, err := m.Get(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, "Ana", again.ContributorName)
	require.Equal(t, domain.PledgeStatusPending, again.Status)
}

func TestListByStatusOrdersByCreation(t *testing.T) {
	m := NewMemory()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, id := range []string{"c", "a", "b"} {
		p := newPledge(id)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.Insert(ctx, p))
	}
	_, err := m.MarkApproved(ctx, "a")
	require.NoError(t, err)

	pending, err := m.ListByStatus(ctx, domain.PledgeStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "c", pending[0].PaymentID)
	require.Equal(t, "b", pending[1].PaymentID)
}

func TestConcurrentInsertSameID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok, dup int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Insert(ctx, newPledge("pay-1"))
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrDuplicateID):
				atomic.AddInt32(&dup, 1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, ok)
	require.EqualValues(t, 31, dup)
	require.Equal(t, 1, m.Len())
}

func TestConcurrentMarkApproved(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Insert(ctx, newPledge("pay-1")))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.MarkApproved(ctx, "pay-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
