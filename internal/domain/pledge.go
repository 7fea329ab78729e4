package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// MaxContributorNameLength caps the name printed on a certificate.
const MaxContributorNameLength = 120

// PledgeStatus enumerates pledge lifecycle states.
type PledgeStatus string

const (
	PledgeStatusPending  PledgeStatus = "pending"
	PledgeStatusApproved PledgeStatus = "approved"
	PledgeStatusRejected PledgeStatus = "rejected"
	PledgeStatusExpired  PledgeStatus = "expired"
)

// Terminal reports whether the pledge has left pending. Polling stops there;
// only an expired pledge may still move, and only to approved.
func (s PledgeStatus) Terminal() bool {
	switch s {
	case PledgeStatusApproved, PledgeStatusRejected, PledgeStatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether a record in state s may move to next.
// Re-entering the current state is allowed and treated as a no-op by stores.
// Expiry is a local timeout, so a payment the gateway approves afterwards
// still wins.
func (s PledgeStatus) CanTransition(next PledgeStatus) bool {
	switch {
	case s == next:
		return true
	case s == PledgeStatusPending:
		return next.Terminal()
	case s == PledgeStatusExpired:
		return next == PledgeStatusApproved
	}
	return false
}

// Gateway status tokens interpreted by the orchestrator.
const (
	GatewayStatusApproved  = "approved"
	GatewayStatusPending   = "pending"
	GatewayStatusRejected  = "rejected"
	GatewayStatusCancelled = "cancelled"
)

// PledgeStatusFromGateway maps a gateway status token to the pledge state it
// implies. ok is false for tokens that do not move the state machine.
func PledgeStatusFromGateway(token string) (PledgeStatus, bool) {
	switch token {
	case GatewayStatusApproved:
		return PledgeStatusApproved, true
	case GatewayStatusRejected:
		return PledgeStatusRejected, true
	case GatewayStatusCancelled:
		return PledgeStatusExpired, true
	}
	return "", false
}

// Pledge is one intent-to-pay record keyed by the gateway payment id.
// ContributorName and Amount never change after creation.
type Pledge struct {
	PaymentID       string
	ContributorName string
	Amount          Amount
	Status          PledgeStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeContributorName trims name and checks it can be printed with the
// certificate's Latin-1 (Windows-1252) fonts.
func NormalizeContributorName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: contributor name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxContributorNameLength {
		return "", fmt.Errorf("%w: contributor name is too long", ErrInvalidInput)
	}
	if _, err := charmap.Windows1252.NewEncoder().String(name); err != nil {
		return "", fmt.Errorf("%w: contributor name has characters the certificate cannot print", ErrInvalidInput)
	}
	return name, nil
}
