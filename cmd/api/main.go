package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/animaisueg/pledge-service/internal/certificate"
	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/gateway/mercadopago"
	"github.com/animaisueg/pledge-service/internal/gateway/sandbox"
	"github.com/animaisueg/pledge-service/internal/http/handlers"
	httpapi "github.com/animaisueg/pledge-service/internal/http/httpapi"
	"github.com/animaisueg/pledge-service/internal/infra"
	"github.com/animaisueg/pledge-service/internal/pledge"
	"github.com/animaisueg/pledge-service/internal/registry"
	"github.com/animaisueg/pledge-service/internal/scheduler"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	var (
		gateway   domain.PaymentGateway
		sandboxGW *sandbox.Gateway
	)
	switch cfg.PaymentGateway {
	case infra.GatewaySandbox:
		sandboxGW = sandbox.New(sandbox.Options{
			PixKey:       cfg.SandboxPixKey,
			MerchantName: cfg.SandboxMerchantName,
			MerchantCity: cfg.SandboxMerchantCity,
		})
		gateway = sandboxGW
		logger.Warn().Msg("using sandbox payment gateway; payments settle only through the sandbox endpoint")
	default:
		client, err := mercadopago.NewClient(mercadopago.Options{
			AccessToken:      cfg.MercadoPagoToken,
			BaseURL:          cfg.MercadoPagoBaseURL,
			Description:      cfg.PaymentDescription,
			PayerEmailDomain: cfg.PayerEmailDomain,
			Logger:           &logger,
			RequestTimeout:   cfg.GatewayTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure mercado pago client")
		}
		gateway = client
	}

	svc := pledge.NewService(
		registry.NewMemory(),
		gateway,
		certificate.NewRenderer(certificate.Options{Location: cfg.CertificateLocation}),
		pledge.Options{
			Description:  cfg.PaymentDescription,
			PollInterval: cfg.StatusPollInterval,
			WatchTimeout: cfg.StatusWatchTimeout,
			PledgeTTL:    cfg.PledgeTTL,
			Logger:       &logger,
		},
	)

	jobs, err := scheduler.NewManager(&logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := jobs.Register(pledge.SweepJob{Service: svc, Every: cfg.ReconcileInterval}); err != nil {
		logger.Fatal().Err(err).Msg("failed to register sweep job")
	}

	app := handlers.NewApp(svc, handlers.Options{
		Logger:         &logger,
		Sandbox:        sandboxGW,
		WebhookSecret:  cfg.MercadoPagoWebhookKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Str("gateway", cfg.PaymentGateway).
			Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		jobs.Start()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout+5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server")
		}
		return jobs.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
