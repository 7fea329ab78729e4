package pledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/animaisueg/pledge-service/internal/domain"
)

func TestSweepSettlesAndExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paid, err := f.svc.CreatePledge(ctx, CreateInput{Amount: "10", ContributorName: "Ana"})
	require.NoError(t, err)
	stale, err := f.svc.CreatePledge(ctx, CreateInput{Amount: "10", ContributorName: "Bruno"})
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	fresh, err := f.svc.CreatePledge(ctx, CreateInput{Amount: "10", ContributorName: "Carla"})
	require.NoError(t, err)
	require.NoError(t, f.gateway.Approve(paid.PaymentID))

	f.now = f.now.Add(25 * time.Minute)
	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, SweepResult{Checked: 3, Settled: 1, Expired: 1}, res)

	assertStatus := func(id string, want domain.PledgeStatus) {
		t.Helper()
		p, err := f.store.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, p.Status)
	}
	assertStatus(paid.PaymentID, domain.PledgeStatusApproved)
	assertStatus(stale.PaymentID, domain.PledgeStatusExpired)
	assertStatus(fresh.PaymentID, domain.PledgeStatusPending)
}

func TestSweepCountsGatewayFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePledge(ctx, CreateInput{Amount: "10", ContributorName: "Ana"})
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	f.gateway.FailNext(domain.ErrGatewayUnavailable)
	res, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, SweepResult{Checked: 1, Failed: 1}, res)
}

func TestCountsByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.CreatePledge(ctx, CreateInput{Amount: "10", ContributorName: "Ana"})
	require.NoError(t, err)
	_, err = f.svc.CreatePledge(ctx, CreateInput{Amount: "10", ContributorName: "Bruno"})
	require.NoError(t, err)
	require.NoError(t, f.gateway.SetStatus(a.PaymentID, "rejected"))
	_, err = f.svc.CheckStatus(ctx, a.PaymentID)
	require.NoError(t, err)

	counts, err := f.svc.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, map[domain.PledgeStatus]int{
		domain.PledgeStatusPending:  1,
		domain.PledgeStatusApproved: 0,
		domain.PledgeStatusRejected: 1,
		domain.PledgeStatusExpired:  0,
	}, counts)
}
