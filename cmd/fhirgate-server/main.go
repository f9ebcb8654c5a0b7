package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fhirgate/fhirgate/internal/config"
	"github.com/fhirgate/fhirgate/internal/platform/auth"
	"github.com/fhirgate/fhirgate/internal/platform/fhir"
	"github.com/fhirgate/fhirgate/internal/platform/gateway"
	"github.com/fhirgate/fhirgate/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhirgate-server",
		Short: "SMART on FHIR authorizing gateway",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.EnforcesAuth() {
		logger.Warn().Msg("no AUTH_CLIENT_ID configured; gateway is running in open mode")
	}

	sessionCfg := buildSessionConfig(cfg)

	gw, err := gateway.New(cfg.UpstreamFHIRURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid upstream configuration")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Infrastructure endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// FHIR gateway
	fhirGroup := e.Group("/fhir")
	fhirGroup.Use(auth.Middleware(sessionCfg, logger))
	gateway.RegisterDiscovery(fhirGroup, cfg.AuthIssuer, cfg.IntrospectionURL)
	gw.Register(fhirGroup)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("upstream", cfg.UpstreamFHIRURL).Msg("starting gateway")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("gateway stopped")
	return nil
}

// buildSessionConfig wires the token-session collaborators from config: the
// signature validator, the introspection client, and the R4 schema.
func buildSessionConfig(cfg *config.Config) auth.SessionConfig {
	sc := auth.SessionConfig{
		OAuthClient:           cfg.AuthClientID,
		BaseURL:               cfg.BaseURL,
		PreValidated:          cfg.TokensPreValidated,
		ValidateAudience:      cfg.AudienceValidation,
		IntrospectionInterval: cfg.IntrospectionInterval,
		Schema:                fhir.NewSchema(),
	}
	if cfg.AuthClientID == "" {
		return sc
	}

	sc.Introspector = auth.NewHTTPIntrospector(cfg.IntrospectionURL, cfg.AuthClientSecret)

	switch {
	case cfg.TokensPreValidated:
		// No local signature check; introspection alone decides.
	case cfg.AuthSigningKey != "":
		sc.Validator = auth.NewHMACValidator(cfg.AuthIssuer, []byte(cfg.AuthSigningKey))
	default:
		jwksURL := cfg.AuthJWKSURL
		if jwksURL == "" {
			jwksURL = cfg.AuthIssuer + "/protocol/openid-connect/certs"
		}
		sc.Validator = auth.NewJWTValidator(cfg.AuthIssuer, jwksURL)
	}
	return sc
}
