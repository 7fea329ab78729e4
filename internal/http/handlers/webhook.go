package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const maxWebhookBody = 64 << 10

type webhookNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID notificationID `json:"id"`
	} `json:"data"`
}

// notificationID accepts the payment id as either a JSON number or string.
type notificationID string

func (n *notificationID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = notificationID(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = notificationID(num.String())
	return nil
}

// WebhookMercadoPago accepts payment notifications. The body only names a
// payment; its status is always re-read from the gateway.
func (a *App) WebhookMercadoPago(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	var note webhookNotification
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &note)
	}

	q := r.URL.Query()
	kind := firstNonEmpty(note.Type, q.Get("type"), q.Get("topic"))
	paymentID := firstNonEmpty(q.Get("data.id"), string(note.Data.ID), q.Get("id"))

	if a.WebhookSecret != "" && !validSignature(a.WebhookSecret, r.Header.Get("X-Signature"), r.Header.Get("X-Request-Id"), paymentID) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		return
	}
	if kind != "payment" || paymentID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	report, err := a.Pledges.HandleNotification(r.Context(), paymentID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStatusResponse(report))
}

// validSignature checks the "ts=...,v1=..." header against
// HMAC-SHA256("id:<id>;request-id:<rid>;ts:<ts>;").
func validSignature(secret, header, requestID, dataID string) bool {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	var manifest strings.Builder
	if dataID != "" {
		manifest.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		manifest.WriteString("request-id:" + requestID + ";")
	}
	manifest.WriteString("ts:" + ts + ";")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest.String()))
	want := mac.Sum(nil)
	got, err := hex.DecodeString(v1)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
