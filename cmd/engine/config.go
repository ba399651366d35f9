package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgecoach/engine/internal/feature"
)

type config struct {
	port                string
	landmarkURL         string
	whisperURL          string
	poseClassifierURL   string
	ollamaURL           string
	ollamaModel         string
	openaiAPIKey        string
	openaiBaseURL       string
	openaiModel         string
	coachEngine         string
	coachMaxTokens      int
	landmarkPoolSize    int
	landmarkMaxInflight int
	whisperPoolSize     int
	llmPoolSize         int
	posePoolSize        int
	maxConcurrent       int
	frameQueueCap       int
	frameBudget         time.Duration
	protocolErrorBudget int
	idleTimeout         time.Duration
	reapInterval        time.Duration
	scoring             feature.ScoringConfig
}

func loadConfig() config {
	godotenv.Load()

	scoring := feature.DefaultScoringConfig()
	scoring.WindowCapacity = envInt("WINDOW_CAPACITY", scoring.WindowCapacity)
	scoring.EARThreshold = envFloat("EAR_THRESHOLD", scoring.EARThreshold)
	scoring.BlinkBaselineLow = envFloat("BLINK_BASELINE_LOW", scoring.BlinkBaselineLow)
	scoring.BlinkBaselineHigh = envFloat("BLINK_BASELINE_HIGH", scoring.BlinkBaselineHigh)
	scoring.BlinkRateScale = envFloat("BLINK_RATE_SCALE", scoring.BlinkRateScale)
	scoring.HandTermWeight = envFloat("HAND_TERM_WEIGHT", scoring.HandTermWeight)
	scoring.HeadTermWeight = envFloat("HEAD_TERM_WEIGHT", scoring.HeadTermWeight)

	if path := envStr("SCORING_CONFIG", ""); path != "" {
		loaded, err := feature.LoadScoringFile(path, scoring)
		if err != nil {
			slog.Warn("scoring config file ignored", "path", path, "error", err)
		} else {
			scoring = loaded
		}
	}

	return config{
		port:                envStr("ENGINE_PORT", "8000"),
		landmarkURL:         envStr("LANDMARK_URL", "http://localhost:5200"),
		whisperURL:          envStr("WHISPER_SERVER_URL", ""),
		poseClassifierURL:   envStr("POSE_CLASSIFIER_URL", ""),
		ollamaURL:           envStr("OLLAMA_URL", "http://localhost:11434"),
		ollamaModel:         envStr("OLLAMA_MODEL", "llama3.2:3b"),
		openaiAPIKey:        envStr("OPENAI_API_KEY", ""),
		openaiBaseURL:       envStr("OPENAI_BASE_URL", ""),
		openaiModel:         envStr("OPENAI_MODEL", "gpt-4o-mini"),
		coachEngine:         envStr("COACH_ENGINE", "ollama"),
		coachMaxTokens:      envInt("COACH_MAX_TOKENS", 400),
		landmarkPoolSize:    envInt("LANDMARK_POOL_SIZE", 50),
		landmarkMaxInflight: envInt("LANDMARK_MAX_INFLIGHT", 4),
		whisperPoolSize:     envInt("WHISPER_POOL_SIZE", 10),
		llmPoolSize:         envInt("LLM_POOL_SIZE", 10),
		posePoolSize:        envInt("POSE_POOL_SIZE", 10),
		maxConcurrent:       envInt("MAX_CONCURRENT_SESSIONS", 100),
		frameQueueCap:       envInt("FRAME_QUEUE_CAPACITY", 4),
		frameBudget:         time.Duration(envInt("FRAME_BUDGET_MS", 2000)) * time.Millisecond,
		protocolErrorBudget: envInt("PROTOCOL_ERROR_BUDGET", 5),
		idleTimeout:         time.Duration(envInt("IDLE_TIMEOUT_SECONDS", 300)) * time.Second,
		reapInterval:        time.Duration(envInt("REAP_INTERVAL_SECONDS", 30)) * time.Second,
		scoring:             scoring,
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}
