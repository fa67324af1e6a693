package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	EvaluatorURL    string
	AnthropicAPIKey string
	AnthropicModel  string
	PersonaDir      string
	RunsPerPersona  int
	Concurrency     int
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	ResultsPath     string
	LogLevel        string
}

func Load() Config {
	return Config{
		Port:            envInt("VOXPOP_PORT", 8830),
		EvaluatorURL:    envStr("EVALUATOR_URL", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("VOXPOP_MODEL", "claude-sonnet-4-20250514"),
		PersonaDir:      envStr("PERSONA_DIR", "personas"),
		RunsPerPersona:  envInt("RUNS_PER_PERSONA", 5),
		Concurrency:     envInt("CONCURRENCY", 4),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		ResultsPath:     envStr("RESULTS_PATH", "results.jsonl"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
