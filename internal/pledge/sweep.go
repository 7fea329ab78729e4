package pledge

import (
	"context"
	"errors"
	"time"

	"github.com/animaisueg/pledge-service/internal/domain"
)

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Checked int
	Settled int
	Expired int
	Failed  int
}

// Sweep re-checks every pending pledge with the gateway and expires those
// still pending after the pledge TTL. Expiry only follows a fresh check that
// did not settle the pledge.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	pending, err := s.store.ListByStatus(ctx, domain.PledgeStatusPending)
	if err != nil {
		return res, err
	}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		report, err := s.CheckStatus(ctx, p.PaymentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			res.Failed++
			continue
		}
		if err == nil && report.Terminal() {
			res.Settled++
			continue
		}
		if s.now().Sub(p.CreatedAt) < s.pledgeTTL {
			continue
		}
		if _, err := s.store.Transition(ctx, p.PaymentID, domain.PledgeStatusExpired); err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) {
				res.Failed++
			}
			continue
		}
		res.Expired++
		s.logger.Info().Str("payment_id", p.PaymentID).Msg("pending pledge expired")
	}
	if res.Checked > 0 {
		s.logger.Debug().
			Int("checked", res.Checked).
			Int("settled", res.Settled).
			Int("expired", res.Expired).
			Int("failed", res.Failed).
			Msg("pledge sweep finished")
	}
	return res, nil
}

// SweepJob runs Sweep on a fixed interval.
type SweepJob struct {
	Service *Service
	Every   time.Duration
}

func (j SweepJob) Name() string { return "pledge-sweep" }

func (j SweepJob) Interval() time.Duration { return j.Every }

func (j SweepJob) Run(ctx context.Context) error {
	_, err := j.Service.Sweep(ctx)
	return err
}

// Counts reports how many pledges the registry holds in each state.
func (s *Service) Counts(ctx context.Context) (map[domain.PledgeStatus]int, error) {
	out := make(map[domain.PledgeStatus]int, 4)
	for _, st := range []domain.PledgeStatus{
		domain.PledgeStatusPending,
		domain.PledgeStatusApproved,
		domain.PledgeStatusRejected,
		domain.PledgeStatusExpired,
	} {
		list, err := s.store.ListByStatus(ctx, st)
		if err != nil {
			return nil, err
		}
		out[st] = len(list)
	}
	return out, nil
}
