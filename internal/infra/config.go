package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	GatewayMercadoPago = "mercadopago"
	GatewaySandbox     = "sandbox"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv                string
	Port                  string
	PaymentGateway        string
	MercadoPagoToken      string
	MercadoPagoBaseURL    string
	MercadoPagoWebhookKey string
	PaymentDescription    string
	PayerEmailDomain      string
	GatewayTimeout        time.Duration
	StatusPollInterval    time.Duration
	StatusWatchTimeout    time.Duration
	PledgeTTL             time.Duration
	ReconcileInterval     time.Duration
	CertificateLocation   *time.Location
	CORSAllowedOrigins    []string
	HTTPReadTimeout       time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
	RateLimitPerMin       int
	SandboxPixKey         string
	SandboxMerchantName   string
	SandboxMerchantCity   string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "3000"),
		PaymentGateway:        strings.ToLower(getEnv("PAYMENT_GATEWAY", GatewayMercadoPago)),
		MercadoPagoToken:      os.Getenv("MERCADO_PAGO_TOKEN"),
		MercadoPagoBaseURL:    getEnv("MERCADO_PAGO_BASE_URL", "https://api.mercadopago.com"),
		MercadoPagoWebhookKey: os.Getenv("MERCADO_PAGO_WEBHOOK_SECRET"),
		PaymentDescription:    getEnv("PAYMENT_DESCRIPTION", "Doação para projeto de apoio aos animais"),
		PayerEmailDomain:      getEnv("PAYER_EMAIL_DOMAIN", "teste.com"),
		GatewayTimeout:        time.Second * time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 15)),
		StatusPollInterval:    time.Second * time.Duration(getEnvInt("STATUS_POLL_INTERVAL_SECONDS", 5)),
		StatusWatchTimeout:    time.Second * time.Duration(getEnvInt("STATUS_WATCH_TIMEOUT_SECONDS", 900)),
		PledgeTTL:             time.Minute * time.Duration(getEnvInt("PLEDGE_TTL_MINUTES", 30)),
		ReconcileInterval:     time.Second * time.Duration(getEnvInt("RECONCILE_INTERVAL_SECONDS", 60)),
		CORSAllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SandboxPixKey:         os.Getenv("SANDBOX_PIX_KEY"),
		SandboxMerchantName:   getEnv("SANDBOX_MERCHANT_NAME", "ANIMAIS UEG"),
		SandboxMerchantCity:   getEnv("SANDBOX_MERCHANT_CITY", "ANAPOLIS"),
	}

	switch cfg.PaymentGateway {
	case GatewayMercadoPago:
		if cfg.MercadoPagoToken == "" {
			return nil, fmt.Errorf("MERCADO_PAGO_TOKEN is required")
		}
	case GatewaySandbox:
	default:
		return nil, fmt.Errorf("PAYMENT_GATEWAY %q is not supported", cfg.PaymentGateway)
	}

	for name, d := range map[string]time.Duration{
		"GATEWAY_TIMEOUT_SECONDS":      cfg.GatewayTimeout,
		"STATUS_POLL_INTERVAL_SECONDS": cfg.StatusPollInterval,
		"STATUS_WATCH_TIMEOUT_SECONDS": cfg.StatusWatchTimeout,
		"PLEDGE_TTL_MINUTES":           cfg.PledgeTTL,
		"RECONCILE_INTERVAL_SECONDS":   cfg.ReconcileInterval,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive", name)
		}
	}

	loc, err := time.LoadLocation(getEnv("CERTIFICATE_TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("CERTIFICATE_TIMEZONE: %w", err)
	}
	cfg.CertificateLocation = loc

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
