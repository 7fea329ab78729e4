package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/pledge"
)

// Routes kept for the original donation page, which posts {valor, nome} and
// expects Portuguese field names back.

type legacyCreateRequest struct {
	Valor amountField `json:"valor"`
	Nome  string      `json:"nome"`
}

type legacyCreateResponse struct {
	ID           string `json:"id"`
	CopiaECola   string `json:"copia_e_cola"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

func (a *App) LegacyCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req legacyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Valor == "" || req.Nome == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "Nome e valor são obrigatórios."})
		return
	}
	res, err := a.Pledges.CreatePledge(r.Context(), pledge.CreateInput{
		Amount:          string(req.Valor),
		ContributorName: req.Nome,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.json(w, http.StatusBadRequest, map[string]string{"error": "Nome e valor são obrigatórios."})
			return
		}
		a.Logger.Error().Err(err).Msg("legacy create payment failed")
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "Falha ao criar pagamento"})
		return
	}
	a.json(w, http.StatusOK, legacyCreateResponse{
		ID:           res.PaymentID,
		CopiaECola:   res.CopyPaste,
		QRCodeBase64: res.QRCodeBase64,
	})
}

func (a *App) LegacyPaymentStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.Pledges.CheckStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.Logger.Error().Err(err).Msg("legacy status check failed")
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "Falha ao consultar status"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": report.GatewayStatus})
}

func (a *App) LegacyCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := a.Pledges.IssueCertificate(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if errors.Is(err, domain.ErrForbidden) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Pagamento não confirmado ou inválido."))
			return
		}
		a.Logger.Error().Err(err).Msg("legacy certificate failed")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Erro ao gerar o certificado."))
		return
	}
	a.writeCertificate(w, cert)
}
