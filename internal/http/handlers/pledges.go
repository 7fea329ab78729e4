package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/animaisueg/pledge-service/internal/certificate"
	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/pledge"
)

// amountField accepts both JSON numbers and strings such as "10,50".
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or string")
	}
	*a = amountField(n.String())
	return nil
}

type pledgeRequest struct {
	Amount          amountField `json:"amount"`
	ContributorName string      `json:"contributor_name"`
}

type pledgeResponse struct {
	PaymentID    string `json:"payment_id"`
	QRCodeBase64 string `json:"qr_code_base64"`
	CopyPaste    string `json:"copy_paste"`
	Status       string `json:"pledge_status"`
}

type statusResponse struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	PledgeStatus string `json:"pledge_status,omitempty"`
}

func newStatusResponse(r pledge.StatusReport) statusResponse {
	return statusResponse{
		PaymentID:    r.PaymentID,
		Status:       r.GatewayStatus,
		PledgeStatus: string(r.PledgeStatus),
	}
}

func (a *App) PledgesCreate(w http.ResponseWriter, r *http.Request) {
	var req pledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	res, err := a.Pledges.CreatePledge(r.Context(), pledge.CreateInput{
		Amount:          string(req.Amount),
		ContributorName: req.ContributorName,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, pledgeResponse{
		PaymentID:    res.PaymentID,
		QRCodeBase64: res.QRCodeBase64,
		CopyPaste:    res.CopyPaste,
		Status:       string(res.Pledge.Status),
	})
}

// PledgesStatus performs a status check. It may settle the pledge, and is
// safe to call repeatedly.
func (a *App) PledgesStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.Pledges.CheckStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStatusResponse(report))
}

func (a *App) PledgesCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := a.Pledges.IssueCertificate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeCertificate(w, cert)
}

func (a *App) writeCertificate(w http.ResponseWriter, cert *pledge.Certificate) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", certificate.Filename(cert.ContributorName)))
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.PDF)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cert.PDF)
}

// SandboxApprove simulates the payer settling a sandbox payment.
func (a *App) SandboxApprove(w http.ResponseWriter, r *http.Request) {
	if a.Sandbox == nil {
		a.error(w, http.StatusNotFound, "not_found", "sandbox gateway disabled")
		return
	}
	id := chi.URLParam(r, "id")
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.GatewayStatusApproved
	}
	if err := a.Sandbox.SetStatus(id, status); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"payment_id": id, "status": status})
}
