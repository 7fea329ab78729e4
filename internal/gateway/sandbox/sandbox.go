// Package sandbox is an in-process payment gateway. It issues real PIX
// "copia e cola" payloads and QR images but settles only when told to.
package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/animaisueg/pledge-service/internal/domain"
)

// Options configures the merchant data embedded in generated BR Codes.
type Options struct {
	PixKey       string
	MerchantName string
	MerchantCity string
}

type payment struct {
	request domain.PaymentRequest
	status  string
}

// Gateway implements domain.PaymentGateway in memory.
type Gateway struct {
	mu       sync.Mutex
	opts     Options
	payments map[string]*payment
	failNext error
	newID    func() string
}

// New returns an empty sandbox gateway.
func New(opts Options) *Gateway {
	if opts.PixKey == "" {
		opts.PixKey = "sandbox@example.com"
	}
	if opts.MerchantName == "" {
		opts.MerchantName = "DOACOES"
	}
	if opts.MerchantCity == "" {
		opts.MerchantCity = "GOIANIA"
	}
	return &Gateway{
		opts:     opts,
		payments: make(map[string]*payment),
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

func (g *Gateway) CreatePayment(_ context.Context, req domain.PaymentRequest) (*domain.Payment, error) {
	g.mu.Lock()
	if err := g.takeFailure(); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	id := g.newID()
	g.payments[id] = &payment{request: req, status: domain.GatewayStatusPending}
	g.mu.Unlock()

	code := BRCode(g.opts.PixKey, g.opts.MerchantName, g.opts.MerchantCity, req.Amount.String(), id)
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("%w: sandbox: encode qr: %v", domain.ErrGatewayUnavailable, err)
	}
	return &domain.Payment{
		ID:           id,
		Status:       domain.GatewayStatusPending,
		QRCodeBase64: base64.StdEncoding.EncodeToString(png),
		CopyPaste:    code,
	}, nil
}

func (g *Gateway) GetPaymentStatus(_ context.Context, paymentID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return "", err
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return "", fmt.Errorf("%w: payment %s", domain.ErrNotFound, paymentID)
	}
	return p.status, nil
}

// Approve simulates the payer completing the transfer.
func (g *Gateway) Approve(paymentID string) error {
	return g.SetStatus(paymentID, domain.GatewayStatusApproved)
}

// SetStatus forces the status token reported for paymentID.
func (g *Gateway) SetStatus(paymentID, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return fmt.Errorf("%w: payment %s", domain.ErrNotFound, paymentID)
	}
	p.status = status
	return nil
}

// Request returns what was charged for paymentID.
func (g *Gateway) Request(paymentID string) (domain.PaymentRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return domain.PaymentRequest{}, false
	}
	return p.request, true
}

// FailNext makes the next gateway call return err.
func (g *Gateway) FailNext(err error) {
	g.mu.Lock()
	g.failNext = err
	g.mu.Unlock()
}

func (g *Gateway) takeFailure() error {
	err := g.failNext
	g.failNext = nil
	return err
}
