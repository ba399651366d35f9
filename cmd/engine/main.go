package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/edgecoach/engine/internal/analysis"
	"github.com/edgecoach/engine/internal/coach"
	"github.com/edgecoach/engine/internal/landmark"
	"github.com/edgecoach/engine/internal/session"
	"github.com/edgecoach/engine/internal/transcribe"
	"github.com/edgecoach/engine/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	registry := session.NewRegistry(cfg.scoring, cfg.idleTimeout)
	registry.Start(cfg.reapInterval)
	defer registry.Close()

	extractor := landmark.NewClient(cfg.landmarkURL, cfg.landmarkPoolSize, cfg.landmarkMaxInflight)

	var transcriber transcribe.Transcriber
	var whisperClient *transcribe.Client
	if cfg.whisperURL != "" {
		whisperClient = transcribe.NewClient(cfg.whisperURL, cfg.whisperPoolSize)
		transcriber = whisperClient
	}

	llmBackends := map[string]coach.ChatClient{
		"ollama": coach.NewOllamaClient(cfg.ollamaURL, cfg.ollamaModel, cfg.coachMaxTokens, cfg.llmPoolSize),
	}
	if cfg.openaiAPIKey != "" {
		params := agents.OpenAIProviderParams{APIKey: param.NewOpt(cfg.openaiAPIKey)}
		if cfg.openaiBaseURL != "" {
			params.BaseURL = param.NewOpt(cfg.openaiBaseURL)
		}
		llmBackends["openai"] = coach.NewAgentClient(agents.NewOpenAIProvider(params), cfg.openaiModel, cfg.coachMaxTokens)
	}
	llmRouter := coach.NewChatRouter(llmBackends, "ollama")
	coachSvc := coach.New(llmRouter, cfg.coachEngine, "")

	poseClassifier := analysis.NewPoseClassifier(cfg.poseClassifierURL, cfg.posePoolSize)

	go warmupSidecars(extractor, whisperClient)

	handler := ws.NewHandler(ws.HandlerConfig{
		Registry:            registry,
		Extractor:           extractor,
		Transcriber:         transcriber,
		Coach:               coachSvc,
		MaxConcurrent:       cfg.maxConcurrent,
		FrameQueueCap:       cfg.frameQueueCap,
		FrameBudget:         cfg.frameBudget,
		IdleTimeout:         cfg.idleTimeout,
		ProtocolErrorBudget: cfg.protocolErrorBudget,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		wsHandler:      handler,
		registry:       registry,
		poseClassifier: poseClassifier,
		coach:          coachSvc,
		llmRouter:      llmRouter,
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		registry.Close()
		srv.Shutdown(ctx)
	}()

	slog.Info("engine starting", "addr", addr, "max_concurrent", cfg.maxConcurrent, "window_capacity", cfg.scoring.WindowCapacity)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("engine stopped")
}

// warmupSidecars pings the model sidecars once at startup so the first
// client does not pay cold-start latency.
func warmupSidecars(extractor *landmark.Client, whisper *transcribe.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := extractor.Warmup(ctx); err != nil {
		slog.Warn("landmark sidecar warmup", "error", err)
	}
	if whisper != nil {
		if err := whisper.Warmup(ctx); err != nil {
			slog.Warn("whisper sidecar warmup", "error", err)
		}
	}
}
