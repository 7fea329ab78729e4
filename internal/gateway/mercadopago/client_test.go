package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/animaisueg/pledge-service/internal/domain"
)

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Options{AccessToken: "  "})
	require.ErrorIs(t, err, ErrMissingAccessToken)
}

func TestCreatePaymentPayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse(http.MethodPost, "/v1/payments", http.StatusCreated, map[string]any{
		"id":     int64(1319423012),
		"status": "pending",
		"point_of_interaction": map[string]any{
			"transaction_data": map[string]any{
				"qr_code":        "00020126580014br.gov.bcb.pix",
				"qr_code_base64": "iVBORw0KGgo=",
			},
		},
	})
	client := newTestClient(t, transport)

	payment, err := client.CreatePayment(context.Background(), domain.PaymentRequest{
		Amount:          domain.MustAmount("10,50"),
		ContributorName: "Bruno",
		IdempotencyKey:  "key-1",
		ExpiresAt:       time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("BRT", -3*60*60)),
	})
	require.NoError(t, err)
	require.Equal(t, "1319423012", payment.ID)
	require.Equal(t, "pending", payment.Status)
	require.Equal(t, "00020126580014br.gov.bcb.pix", payment.CopyPaste)
	require.Equal(t, "iVBORw0KGgo=", payment.QRCodeBase64)

	require.Equal(t, "Bearer test-token", transport.lastHeader.Get("Authorization"))
	require.Equal(t, "key-1", transport.lastHeader.Get("X-Idempotency-Key"))

	var sent createRequest
	require.NoError(t, json.Unmarshal(transport.lastBody, &sent))
	require.Equal(t, 10.5, sent.TransactionAmount)
	require.Equal(t, "pix", sent.PaymentMethodID)
	require.Equal(t, "Bruno", sent.Payer.FirstName)
	require.Equal(t, "doador-1714564800000@teste.com", sent.Payer.Email)
	require.Equal(t, "Doação de teste", sent.Description)
	require.Equal(t, "2024-05-01T12:30:00.000-03:00", sent.DateOfExpiration)
}

func TestCreatePaymentOmitsUnsetExpiration(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse(http.MethodPost, "/v1/payments", http.StatusCreated, map[string]any{"id": 1, "status": "pending"})
	client := newTestClient(t, transport)

	_, err := client.CreatePayment(context.Background(), domain.PaymentRequest{Amount: domain.MustAmount("1"), ContributorName: "Ana"})
	require.NoError(t, err)
	require.NotContains(t, string(transport.lastBody), "date_of_expiration")
}

func TestCreatePaymentClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "bad request", status: http.StatusBadRequest, want: domain.ErrGatewayRejected},
		{name: "unauthorized", status: http.StatusUnauthorized, want: domain.ErrGatewayRejected},
		{name: "throttled", status: http.StatusTooManyRequests, want: domain.ErrGatewayUnavailable},
		{name: "server error", status: http.StatusBadGateway, want: domain.ErrGatewayUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport := &captureTransport{responses: map[string]responseStub{}}
			transport.setJSONResponse(http.MethodPost, "/v1/payments", tc.status, map[string]any{
				"message": "invalid transaction_amount",
				"error":   "bad_request",
				"status":  tc.status,
			})
			client := newTestClient(t, transport)

			_, err := client.CreatePayment(context.Background(), domain.PaymentRequest{
				Amount:          domain.MustAmount("1"),
				ContributorName: "Ana",
			})
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestCreatePaymentTransportError(t *testing.T) {
	client, err := NewClient(Options{
		AccessToken: "test-token",
		HTTPClient:  &http.Client{Transport: failingTransport{}},
	})
	require.NoError(t, err)

	_, err = client.CreatePayment(context.Background(), domain.PaymentRequest{Amount: domain.MustAmount("1"), ContributorName: "Ana"})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestGetPaymentStatus(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse(http.MethodGet, "/v1/payments/42", http.StatusOK, map[string]any{
		"id":     42,
		"status": "approved",
	})
	client := newTestClient(t, transport)

	status, err := client.GetPaymentStatus(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "approved", status)
}

func TestGetPaymentStatusNotFound(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)

	_, err := client.GetPaymentStatus(context.Background(), "404")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = client.GetPaymentStatus(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPaymentStatusServerError(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse(http.MethodGet, "/v1/payments/7", http.StatusInternalServerError, map[string]any{"message": "boom"})
	client := newTestClient(t, transport)

	_, err := client.GetPaymentStatus(context.Background(), "7")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func newTestClient(t *testing.T, transport http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient(Options{
		AccessToken: "test-token",
		BaseURL:     "https://api.example.com/",
		Description: "Doação de teste",
		HTTPClient:  &http.Client{Transport: transport},
	})
	require.NoError(t, err)
	client.now = func() time.Time { return time.UnixMilli(1714564800000) }
	return client
}

type captureTransport struct {
	responses  map[string]responseStub
	lastBody   []byte
	lastHeader http.Header
}

type responseStub struct {
	status int
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastHeader = req.Header.Clone()
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.Method+" "+req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"message":"Payment not found","error":"not_found","status":404}`)),
	}, nil
}

func (c *captureTransport) setJSONResponse(method, path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[method+" "+path] = responseStub{status: status, body: body}
}

func (s responseStub) toResponse() *http.Response {
	return &http.Response{
		StatusCode: s.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}
