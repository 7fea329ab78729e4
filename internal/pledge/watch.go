package pledge

import (
	"context"
	"errors"
	"time"

	"github.com/animaisueg/pledge-service/internal/domain"
)

// Watch polls the gateway for paymentID until the pledge settles, ctx is
// cancelled, or the watch timeout elapses. onUpdate, when set, is called for
// the first observation and for every change after it.
func (s *Service) Watch(ctx context.Context, paymentID string, onUpdate func(StatusReport)) (StatusReport, error) {
	if _, err := s.store.Get(ctx, paymentID); err != nil {
		return StatusReport{PaymentID: paymentID}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.watchTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last StatusReport
	observed := false
	for {
		report, err := s.CheckStatus(ctx, paymentID)
		switch {
		case err == nil:
			if !observed || report != last {
				observed = true
				last = report
				if onUpdate != nil {
					onUpdate(report)
				}
			}
			if report.Terminal() {
				return report, nil
			}
		case errors.Is(err, domain.ErrNotFound):
			return last, err
		case ctx.Err() != nil:
			// handled below
		default:
			s.logger.Warn().Err(err).Str("payment_id", paymentID).Msg("status check failed during watch")
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return last, domain.ErrWatchTimeout
			}
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// HandleNotification reacts to a gateway push. The payload is never
// trusted: the status is re-read from the gateway. Unknown ids are ignored.
func (s *Service) HandleNotification(ctx context.Context, paymentID string) (StatusReport, error) {
	if _, err := s.store.Get(ctx, paymentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug().Str("payment_id", paymentID).Msg("notification for unknown pledge ignored")
			return StatusReport{PaymentID: paymentID}, nil
		}
		return StatusReport{PaymentID: paymentID}, err
	}
	return s.CheckStatus(ctx, paymentID)
}
