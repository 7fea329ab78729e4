package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/animaisueg/pledge-service/internal/http/handlers"
	"github.com/animaisueg/pledge-service/internal/middleware"
)

// RouterOptions carries the cross-cutting settings for NewRouter.
type RouterOptions struct {
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(language.English),
		middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Route("/pledges", func(r chi.Router) {
			r.Post("/", app.PledgesCreate)
			r.Get("/{id}/status", app.PledgesStatus)
			r.Get("/{id}/events", app.PledgesEvents)
			r.Get("/{id}/certificate", app.PledgesCertificate)
		})

		r.Post("/webhooks/mercadopago", app.WebhookMercadoPago)

		if app.Sandbox != nil {
			r.Post("/sandbox/payments/{id}/approve", app.SandboxApprove)
		}
	})

	// Paths used by the original donation page.
	r.Post("/gerar-pagamento", app.LegacyCreatePayment)
	r.Get("/status-pagamento/{id}", app.LegacyPaymentStatus)
	r.Get("/gerar-certificado", app.LegacyCertificate)

	return r
}
