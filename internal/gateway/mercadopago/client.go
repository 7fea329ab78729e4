// Package mercadopago adapts the Mercado Pago payments API to
// domain.PaymentGateway. It performs single call-throughs with no retries.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/infra"
)

// ErrMissingAccessToken indicates that the client was configured without credentials.
var ErrMissingAccessToken = errors.New("mercadopago: access token is required")

const (
	pixMethod = "pix"

	// expirationLayout is the ISO 8601 form the payments API expects.
	expirationLayout = "2006-01-02T15:04:05.000-07:00"
)

// Options configures the Mercado Pago client.
type Options struct {
	AccessToken      string
	BaseURL          string
	Description      string
	PayerEmailDomain string
	HTTPClient       *http.Client
	Logger           *infra.Logger
	RequestTimeout   time.Duration
}

// Client performs HTTP calls to the Mercado Pago REST API.
type Client struct {
	accessToken      string
	baseURL          string
	description      string
	payerEmailDomain string
	httpClient       *http.Client
	logger           *infra.Logger
	now              func() time.Time
}

type createRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	DateOfExpiration  string  `json:"date_of_expiration,omitempty"`
	Payer             payer   `json:"payer"`
}

type payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// NewClient constructs a client with defaults applied.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.AccessToken)
	if token == "" {
		return nil, ErrMissingAccessToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	description := strings.TrimSpace(opts.Description)
	if description == "" {
		description = "Doação"
	}
	emailDomain := strings.TrimSpace(opts.PayerEmailDomain)
	if emailDomain == "" {
		emailDomain = "teste.com"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		accessToken:      token,
		baseURL:          baseURL,
		description:      description,
		payerEmailDomain: emailDomain,
		httpClient:       httpClient,
		logger:           logger,
		now:              time.Now,
	}, nil
}

// CreatePayment opens a PIX charge for the pledge.
func (c *Client) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.Payment, error) {
	payload := createRequest{
		TransactionAmount: req.Amount.Float64(),
		Description:       c.description,
		PaymentMethodID:   pixMethod,
		Payer: payer{
			Email:     fmt.Sprintf("doador-%d@%s", c.now().UnixMilli(), c.payerEmailDomain),
			FirstName: req.ContributorName,
		},
	}
	if !req.ExpiresAt.IsZero() {
		payload.DateOfExpiration = req.ExpiresAt.Format(expirationLayout)
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		payload.Description = d
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: encode request: %w", err)
	}
	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	status, raw, err := c.do(ctx, http.MethodPost, "/v1/payments", body, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, classify(status, raw, domain.ErrGatewayRejected)
	}

	var decoded paymentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: mercadopago: decode response: %v", domain.ErrGatewayUnavailable, err)
	}
	id := decoded.ID.String()
	if id == "" {
		return nil, fmt.Errorf("%w: mercadopago: response without payment id", domain.ErrGatewayUnavailable)
	}
	tx := decoded.PointOfInteraction.TransactionData
	c.logger.Debug().
		Str("payment_id", id).
		Str("status", decoded.Status).
		Msg("mercadopago: payment created")
	return &domain.Payment{
		ID:           id,
		Status:       decoded.Status,
		QRCodeBase64: tx.QRCodeBase64,
		CopyPaste:    tx.QRCode,
	}, nil
}

// GetPaymentStatus returns the raw gateway status token.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return "", domain.ErrNotFound
	}
	status, raw, err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "")
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound || status == http.StatusBadRequest {
		return "", fmt.Errorf("%w: payment %s", domain.ErrNotFound, id)
	}
	if status >= 300 {
		return "", classify(status, raw, domain.ErrGatewayRejected)
	}
	var decoded paymentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: mercadopago: decode response: %v", domain.ErrGatewayUnavailable, err)
	}
	return decoded.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotencyKey string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("mercadopago: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: mercadopago: http request: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: mercadopago: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	return resp.StatusCode, raw, nil
}

// classify maps a non-2xx response to an error kind. Server-side and
// throttling failures are unavailability; other client errors use clientKind.
func classify(status int, raw []byte, clientKind error) error {
	kind := clientKind
	if status >= 500 || status == http.StatusTooManyRequests {
		kind = domain.ErrGatewayUnavailable
	}
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return fmt.Errorf("%w: mercadopago: %s (%s)", kind, detail.Message, detail.Error)
	}
	return fmt.Errorf("%w: mercadopago: status %d: %s", kind, status, strings.TrimSpace(string(raw)))
}
