// Package client talks to the pledge HTTP API. It is the polling reference
// client: create a pledge, check it until it settles, fetch the certificate.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrWaitTimeout is returned by Wait when the pledge is still open at the deadline.
var ErrWaitTimeout = errors.New("client: pledge did not settle before timeout")

// Options configures the API client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Client wraps the /v1 pledge endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
}

// Pledge is the answer to a create call.
type Pledge struct {
	PaymentID    string `json:"payment_id"`
	QRCodeBase64 string `json:"qr_code_base64"`
	CopyPaste    string `json:"copy_paste"`
	Status       string `json:"pledge_status"`
}

// Status is one observation of a pledge.
type Status struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	PledgeStatus string `json:"pledge_status"`
}

// Settled reports whether the pledge reached a final state.
func (s Status) Settled() bool {
	switch s.PledgeStatus {
	case "approved", "rejected", "expired":
		return true
	}
	return false
}

// Certificate is a downloaded PDF.
type Certificate struct {
	Filename string
	PDF      []byte
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, httpClient: httpClient}, nil
}

// Create opens a pledge. amount is sent as typed so the server applies its
// own comma/dot parsing.
func (c *Client) Create(ctx context.Context, amount, name string) (*Pledge, error) {
	body, err := json.Marshal(map[string]string{"amount": amount, "contributor_name": name})
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/pledges", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Pledge
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, paymentID string) (Status, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/pledges/"+url.PathEscape(paymentID)+"/status", nil)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	var out Status
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Status{}, fmt.Errorf("client: decode response: %w", err)
	}
	return out, nil
}

// Wait checks the pledge every interval until it settles, ctx ends, or
// timeout elapses. onUpdate sees the first observation and every change.
// 4xx answers end the wait; other failures are retried.
func (c *Client) Wait(ctx context.Context, paymentID string, interval, timeout time.Duration, onUpdate func(Status)) (Status, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last    Status
		lastErr error
		seen    bool
	)
	for {
		st, err := c.Status(ctx, paymentID)
		switch {
		case err == nil:
			lastErr = nil
			if !seen || st != last {
				seen = true
				last = st
				if onUpdate != nil {
					onUpdate(st)
				}
			}
			if st.Settled() {
				return st, nil
			}
		case isFinal(err):
			return last, err
		default:
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if lastErr != nil {
					return last, fmt.Errorf("%w: last error: %v", ErrWaitTimeout, lastErr)
				}
				return last, ErrWaitTimeout
			}
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Certificate downloads the PDF for an approved pledge.
func (c *Client) Certificate(ctx context.Context, paymentID string) (*Certificate, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/pledges/"+url.PathEscape(paymentID)+"/certificate", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read certificate: %w", err)
	}
	return &Certificate{Filename: filenameFrom(resp.Header.Get("Content-Disposition")), PDF: pdf}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var decoded struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &decoded) == nil {
			apiErr.Code, apiErr.Message = decoded.Error, decoded.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	return resp, nil
}

// isFinal reports errors a retry cannot fix.
func isFinal(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
}

func filenameFrom(disposition string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return "certificado.pdf"
}
