// Package pledge coordinates the payment gateway and the pledge registry:
// create, check, confirm and issue. A certificate is only ever produced for a
// pledge that a status check observed as approved.
package pledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/infra"
)

// Options tunes the orchestrator. Zero values fall back to defaults.
type Options struct {
	Description  string
	PollInterval time.Duration
	WatchTimeout time.Duration
	PledgeTTL    time.Duration
	Logger       *infra.Logger
	Now          func() time.Time
}

// Service is the payment orchestrator.
type Service struct {
	store    domain.PledgeStore
	gateway  domain.PaymentGateway
	renderer domain.CertificateRenderer

	description  string
	pollInterval time.Duration
	watchTimeout time.Duration
	pledgeTTL    time.Duration
	logger       *infra.Logger
	now          func() time.Time

	checks singleflight.Group
}

// CreateInput is the raw pledge as submitted by a caller.
type CreateInput struct {
	Amount          string
	ContributorName string
}

// CreateResult carries the payment instructions for the payer.
type CreateResult struct {
	PaymentID    string
	QRCodeBase64 string
	CopyPaste    string
	Pledge       domain.Pledge
}

// StatusReport is what a status check observed. PledgeStatus is empty when
// the gateway knows the payment but the registry does not.
type StatusReport struct {
	PaymentID     string
	GatewayStatus string
	PledgeStatus  domain.PledgeStatus
}

// Terminal reports whether polling this pledge can stop.
func (r StatusReport) Terminal() bool { return r.PledgeStatus.Terminal() }

// Certificate is a rendered proof of contribution.
type Certificate struct {
	PaymentID       string
	ContributorName string
	Amount          domain.Amount
	IssuedAt        time.Time
	PDF             []byte
}

// NewService wires the orchestrator.
func NewService(store domain.PledgeStore, gateway domain.PaymentGateway, renderer domain.CertificateRenderer, opts Options) *Service {
	s := &Service{
		store:        store,
		gateway:      gateway,
		renderer:     renderer,
		description:  opts.Description,
		pollInterval: opts.PollInterval,
		watchTimeout: opts.WatchTimeout,
		pledgeTTL:    opts.PledgeTTL,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 5 * time.Second
	}
	if s.watchTimeout <= 0 {
		s.watchTimeout = 15 * time.Minute
	}
	if s.pledgeTTL <= 0 {
		s.pledgeTTL = 30 * time.Minute
	}
	if s.logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		s.logger = &l
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreatePledge validates the input, opens a payment with the gateway and
// registers the pledge as pending. Nothing is registered if the gateway fails.
func (s *Service) CreatePledge(ctx context.Context, in CreateInput) (*CreateResult, error) {
	name, err := domain.NormalizeContributorName(in.ContributorName)
	if err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	createdAt := s.now()
	payment, err := s.gateway.CreatePayment(ctx, domain.PaymentRequest{
		Amount:          amount,
		ContributorName: name,
		Description:     s.description,
		IdempotencyKey:  uuid.NewString(),
		ExpiresAt:       createdAt.Add(s.pledgeTTL),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("amount", amount.String()).Msg("gateway create payment failed")
		return nil, gatewayError(err)
	}

	p := &domain.Pledge{
		PaymentID:       payment.ID,
		ContributorName: name,
		Amount:          amount,
		CreatedAt:       createdAt,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("payment_id", payment.ID).Msg("register pledge failed")
		return nil, err
	}
	s.logger.Info().
		Str("payment_id", p.PaymentID).
		Str("amount", amount.String()).
		Msg("pledge created")

	return &CreateResult{
		PaymentID:    payment.ID,
		QRCodeBase64: payment.QRCodeBase64,
		CopyPaste:    payment.CopyPaste,
		Pledge:       *p,
	}, nil
}

// CheckStatus asks the gateway for the payment status and, when the answer
// settles the pledge, records it. Safe to call repeatedly.
func (s *Service) CheckStatus(ctx context.Context, paymentID string) (StatusReport, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return StatusReport{}, fmt.Errorf("%w: payment id is required", domain.ErrInvalidInput)
	}

	gatewayStatus, err := s.fetchStatus(ctx, id)
	if err != nil {
		return StatusReport{PaymentID: id}, err
	}
	report := StatusReport{PaymentID: id, GatewayStatus: gatewayStatus}

	next, settles := domain.PledgeStatusFromGateway(gatewayStatus)
	if !settles {
		p, err := s.store.Get(ctx, id)
		if err == nil {
			report.PledgeStatus = p.Status
		}
		return report, nil
	}

	before, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return report, nil
	}
	if err != nil {
		return report, err
	}

	after, err := s.store.Transition(ctx, id, next)
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		if after == nil {
			after = before
		}
		s.logger.Warn().
			Str("payment_id", id).
			Str("pledge_status", string(after.Status)).
			Str("gateway_status", gatewayStatus).
			Msg("gateway status conflicts with settled pledge")
		report.PledgeStatus = after.Status
		return report, nil
	case err != nil:
		return report, err
	}
	if before.Status == domain.PledgeStatusExpired && after.Status == domain.PledgeStatusApproved {
		s.logger.Warn().
			Str("payment_id", id).
			Msg("payment approved after local expiry; pledge approved")
	} else if before.Status != after.Status {
		s.logger.Info().
			Str("payment_id", id).
			Str("from", string(before.Status)).
			Str("to", string(after.Status)).
			Msg("pledge status changed")
	}
	report.PledgeStatus = after.Status
	return report, nil
}

// IssueCertificate renders the certificate for an approved pledge. Unknown
// and unapproved ids both fail with ErrForbidden.
func (s *Service) IssueCertificate(ctx context.Context, paymentID string) (*Certificate, error) {
	p, err := s.store.Get(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: payment not confirmed", domain.ErrForbidden)
		}
		return nil, err
	}
	if p.Status != domain.PledgeStatusApproved {
		return nil, fmt.Errorf("%w: payment not confirmed", domain.ErrForbidden)
	}

	issuedAt := s.now()
	pdf, err := s.renderer.Render(p.ContributorName, p.Amount, issuedAt)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", p.PaymentID).Msg("render certificate failed")
		if !errors.Is(err, domain.ErrRender) {
			err = fmt.Errorf("%w: %v", domain.ErrRender, err)
		}
		return nil, err
	}
	return &Certificate{
		PaymentID:       p.PaymentID,
		ContributorName: p.ContributorName,
		Amount:          p.Amount,
		IssuedAt:        issuedAt,
		PDF:             pdf,
	}, nil
}

// Lookup returns the registry record for paymentID.
func (s *Service) Lookup(ctx context.Context, paymentID string) (*domain.Pledge, error) {
	return s.store.Get(ctx, strings.TrimSpace(paymentID))
}

// fetchStatus collapses concurrent lookups of the same id into one gateway
// call. The shared call is detached from any single caller's cancellation.
func (s *Service) fetchStatus(ctx context.Context, id string) (string, error) {
	ch := s.checks.DoChan(id, func() (any, error) {
		return s.gateway.GetPaymentStatus(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, domain.ErrNotFound) {
				return "", res.Err
			}
			s.logger.Error().Err(res.Err).Str("payment_id", id).Msg("gateway status lookup failed")
			return "", gatewayError(res.Err)
		}
		return res.Val.(string), nil
	}
}

// gatewayError makes sure every gateway failure carries a gateway kind.
func gatewayError(err error) error {
	switch {
	case errors.Is(err, domain.ErrGatewayRejected),
		errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, domain.ErrNotFound):
		return err
	case errors.Is(err, domain.ErrInvalidInput):
		return fmt.Errorf("%w: %v", domain.ErrGatewayRejected, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
}
