package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-platform/internal/analytics"
	"voice-platform/internal/audit"
	"voice-platform/internal/auth"
	"voice-platform/internal/bots"
	"voice-platform/internal/calls"
	"voice-platform/internal/config"
	"voice-platform/internal/httpapi"
	"voice-platform/internal/llm"
	"voice-platform/internal/numbers"
	"voice-platform/internal/routing"
	"voice-platform/internal/sentiment"
	"voice-platform/internal/telephony"
	"voice-platform/internal/transcripts"
	"voice-platform/pkg/logger"
	"voice-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, logger.Options{File: cfg.App.LogFile})
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	provider, err := newProvider(cfg, log)
	if err != nil {
		log.Error("telephony init failed", "err", err)
		os.Exit(1)
	}

	llmClient, err := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.ChatModel,
		Timeout: cfg.LLM.Timeout,
	}, log)
	if err != nil {
		log.Error("llm init failed", "err", err)
		os.Exit(1)
	}

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	botsSvc := bots.NewService(bots.NewPostgresRepo(db), auditSvc, log)
	numbersSvc := numbers.NewService(numbers.NewPostgresRepo(db), provider, botsSvc, auditSvc, log)
	analyticsSvc := analytics.NewService(analytics.NewPostgresRepo(db), log)
	keys := auth.NewKeyService(auth.NewPostgresKeyRepo(db), cfg.Auth.APIKeyTTL, auditSvc, log)

	sessions := transcripts.New(transcripts.Options{TombstoneTTL: cfg.Calls.TombstoneTTL})
	defer sessions.Close()

	hooks := calls.Webhooks{BaseURL: cfg.App.PublicBaseURL}
	limiter := calls.NewRedisLimiter(rdb, cfg.Calls.MaxInflight, cfg.Calls.SlotTTL)
	chat := llm.NewChatEngine(llmClient, nil, cfg.LLM.ChatModel, log)

	orchestrator := calls.NewOrchestrator(botsSvc, numbersSvc, provider, sessions, limiter, hooks, log)
	lifecycle := calls.NewLifecycle(calls.LifecycleDeps{
		Bots:       botsSvc,
		Sessions:   sessions,
		Chat:       chat,
		Classifier: sentiment.NewAnalyzer(llmClient, cfg.LLM.ClassifyModel, log),
		Analytics:  analyticsSvc,
		Router:     routing.NewNumberEngine(numbersSvc, botsSvc),
		Limiter:    limiter,
		Hooks:      hooks,
	}, log)

	// Sessions whose call-ended callback never arrives are dropped and their slots returned.
	go sessions.Run(rootCtx, lifecycle.Abandon)

	h := httpapi.Handlers{
		Numbers:   numbersSvc,
		Bots:      botsSvc,
		Calls:     orchestrator,
		Analytics: analyticsSvc,
		Chat:      chat,
		Voice:     provider,
		Keys:      keys,
		Auth:      authManager,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, h, telephony.VoiceWebhookHandler{Flow: lifecycle})
	registerAuthRoutes(r, h, authManager, cfg.IsProduction() || cfg.App.Env == "staging")
	registerTenantRoutes(r, h, keys)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "provider", provider.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

func newProvider(cfg config.Config, log *slog.Logger) (telephony.Provider, error) {
	if cfg.Plivo.Sandbox {
		log.Warn("using sandbox telephony provider; no real calls will be placed")
		return telephony.NewSandboxProvider(), nil
	}
	p, err := telephony.NewPlivoProvider(telephony.PlivoConfig{
		AuthID:    cfg.Plivo.AuthID,
		AuthToken: cfg.Plivo.AuthToken,
		AppID:     cfg.Plivo.AppID,
		BaseURL:   cfg.Plivo.BaseURL,
		Timeout:   cfg.Plivo.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}
