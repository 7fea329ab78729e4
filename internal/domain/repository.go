package domain

import (
	"context"
	"time"
)

// PledgeStore is the pledge registry. Implementations must serialize
// Insert and Transition per payment id.
type PledgeStore interface {
	Insert(ctx context.Context, pledge *Pledge) error
	Get(ctx context.Context, paymentID string) (*Pledge, error)
	// Transition moves the record to next. Re-applying the current state is a
	// no-op; leaving a terminal state fails with ErrInvalidTransition.
	Transition(ctx context.Context, paymentID string, next PledgeStatus) (*Pledge, error)
	ListByStatus(ctx context.Context, status PledgeStatus) ([]Pledge, error)
}

// PaymentRequest is what the orchestrator asks the gateway to charge.
type PaymentRequest struct {
	Amount          Amount
	ContributorName string
	Description     string
	IdempotencyKey  string
	// ExpiresAt, when set, asks the gateway to stop accepting the payment.
	ExpiresAt time.Time
}

// Payment is the gateway's answer to a create call.
type Payment struct {
	ID           string
	Status       string
	QRCodeBase64 string
	CopyPaste    string
}

// PaymentGateway is the external payment processor boundary.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (string, error)
}

// CertificateRenderer produces the proof-of-contribution document.
type CertificateRenderer interface {
	Render(contributorName string, amount Amount, issuedAt time.Time) ([]byte, error)
}
