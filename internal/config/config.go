package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           int
	LogLevel       string
	DatabaseURL    string
	NatsURL        string
	NatsToken      string
	ExtractModel   string
	SynthesisModel string
	BatchSize      int
}

func Load() Config {
	return Config{
		Port:           envInt("KEEPSAKE_PORT", 8760),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		ExtractModel:   envStr("KEEPSAKE_EXTRACT_MODEL", "gemini-2.5-flash"),
		SynthesisModel: envStr("KEEPSAKE_SYNTHESIS_MODEL", "gemini-2.5-pro"),
		BatchSize:      envInt("KEEPSAKE_BATCH_SIZE", 50),
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
