package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nara.app/nara-gateway/internal/api"
	"nara.app/nara-gateway/internal/auth"
	"nara.app/nara-gateway/internal/config"
	"nara.app/nara-gateway/internal/core"
	"nara.app/nara-gateway/internal/dust"
	"nara.app/nara-gateway/internal/store"
)

func main() {
	seedFile := flag.String("seed", "", "Load contract summaries and emails from a JSON file into the local database and exit")
	issueToken := flag.String("issue-token", "", "Print a dashboard token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Validity of tokens printed by -issue-token")
	flag.Parse()

	if err := run(*seedFile, *issueToken, *tokenTTL); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(seedFile, issueToken string, tokenTTL time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if issueToken != "" {
		token, err := auth.GenerateJWT(cfg.JWTSecret, issueToken, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	ctx := context.Background()

	dbStore, err := store.Open(ctx, cfg.DatabaseURL, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer dbStore.Close()

	if seedFile != "" {
		seeder, ok := store.AsSeeder(dbStore)
		if !ok {
			return errors.New("seeding is only supported on the local SQLite database")
		}
		logger.Info("seeding database", "file", seedFile)
		n, err := store.SeedFromFile(ctx, seeder, seedFile, logger)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeding complete", "rows", n)
		return nil
	}

	dustClient := dust.NewClient(dust.ClientConfig{
		BaseURL:     cfg.DustBaseURL,
		WorkspaceID: cfg.DustWorkspaceID,
		APIKey:      cfg.DustAPIKey,
		Logger:      logger,
	})

	agentService := core.NewAgentService(dustClient, core.AgentServiceConfig{
		Agents:           cfg.Agents(),
		Timezone:         cfg.DustTimezone,
		AttachmentPrompt: cfg.AttachmentPrompt,
	}, logger)
	uploadService := core.NewUploadService(dustClient, cfg.DustUploadMode, logger)
	contractService := core.NewContractService(cfg.ContractWebhookURL, nil, logger)
	dashboardService := core.NewDashboardService(dbStore, cfg.Location())

	if !agentService.HasAgent(config.AgentCashflow) {
		logger.Info("DUST_CASHFLOW_AGENT_ID is not set, cashflow agent is disabled")
	}
	if !contractService.Enabled() {
		logger.Warn("CONTRACT_WEBHOOK_URL is not set, contract intake is disabled")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, dashboard routes are unauthenticated")
	}

	apiHandler := api.NewAPIHandler(api.HandlerConfig{
		Agents:       agentService,
		Uploads:      uploadService,
		Contracts:    contractService,
		Dashboard:    dashboardService,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	router := api.NewRouter(apiHandler, api.RouterConfig{
		AllowedOrigin: cfg.AllowedOrigin,
		JWTSecret:     cfg.JWTSecret,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Blocking agent calls can take minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", serverAddr, "agents", len(cfg.Agents()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("listen on %s: %w", serverAddr, err)
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}
