package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/gateway/sandbox"
	"github.com/animaisueg/pledge-service/internal/infra"
	"github.com/animaisueg/pledge-service/internal/middleware"
	"github.com/animaisueg/pledge-service/internal/pledge"
)

// App holds the dependencies shared by every handler.
type App struct {
	Pledges       *pledge.Service
	Sandbox       *sandbox.Gateway
	Logger        *infra.Logger
	WebhookSecret string
	upgrader      websocket.Upgrader
}

// Options configures optional handler behavior.
type Options struct {
	Logger         *infra.Logger
	Sandbox        *sandbox.Gateway
	WebhookSecret  string
	AllowedOrigins []string
}

func NewApp(svc *pledge.Service, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &App{
		Pledges:       svc,
		Sandbox:       opts.Sandbox,
		Logger:        logger,
		WebhookSecret: opts.WebhookSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// writeError classifies err into a status code and stable error code.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode, message := classify(err)
	if code >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	if middleware.LocaleFromContext(r.Context()) == language.BrazilianPortuguese {
		if pt, ok := portugueseMessages[errCode]; ok {
			message = pt
		}
	}
	a.error(w, code, errCode, message)
}

var portugueseMessages = map[string]string{
	"forbidden":     "Pagamento não confirmado ou inválido.",
	"not_found":     "Pagamento não encontrado.",
	"gateway_error": "Falha ao comunicar com o gateway de pagamento.",
	"render_error":  "Erro ao gerar o certificado.",
	"internal":      "Erro interno.",
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", "payment not confirmed or invalid"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "payment not found"
	case errors.Is(err, domain.ErrGatewayUnavailable), errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusInternalServerError, "gateway_error", "payment gateway failure"
	case errors.Is(err, domain.ErrRender):
		return http.StatusInternalServerError, "render_error", "failed to generate certificate"
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allow := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allow[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}
