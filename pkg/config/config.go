// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the relay's environment configuration.
//
// All values come from environment variables, with optional .env file
// support. Required values (platform credential, assistant id, database
// URL) cause Load to fail so the process refuses to start without them.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the validated runtime configuration for the relay service.
type Config struct {
	// Remote conversation platform.
	OpenAIKey     string
	AssistantID   string
	VectorStoreID string // empty disables the retrieval-forced first pass

	// Thread registry persistence.
	DatabaseURL  string
	ThreadsTable string

	// Reply pipeline tuning.
	FallbackMinReplyChars int
	SpeechMinChars        int
	FallbackStrategy      string // "retry" or "clarify"
	ClarifyPrompt         string
	RunTimeout            time.Duration
	RunPollInterval       time.Duration

	// Guardrail.
	GuardrailMode      string // "allow_only", "deny_only", "allow_and_deny"
	GuardrailVocabPath string // empty uses the embedded vocabulary

	// Speech synthesis.
	TTSModel string
	TTSVoice string

	// Realtime token endpoint.
	RealtimeModel        string
	RealtimeVoice        string
	RealtimeInstructions string

	// Server.
	Port        string
	Environment string // "development" or "production"
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	FallbackRetry   = "retry"
	FallbackClarify = "clarify"
)

const defaultClarifyPrompt = "Please answer the question above using your general " +
	"knowledge if the reference documents do not cover it. Keep the answer brief."

// Load reads the environment (after merging any .env file) and returns the
// validated configuration. Missing required values are reported together so
// an operator can fix them in one pass.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file", "error", err)
	}

	cfg := &Config{
		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		AssistantID:   getenv("OPENAI_ASSISTANT_ID", ""),
		VectorStoreID: getenv("VECTOR_STORE_ID", ""),

		DatabaseURL:  getenv("DATABASE_URL", ""),
		ThreadsTable: getenv("THREADS_TABLE", "user_threads"),

		FallbackMinReplyChars: getenvInt("FALLBACK_MIN_REPLY_CHARS", 20),
		SpeechMinChars:        getenvInt("SPEECH_MIN_CHARS", 10),
		FallbackStrategy:      getenv("FALLBACK_STRATEGY", FallbackClarify),
		ClarifyPrompt:         getenv("CLARIFY_PROMPT", defaultClarifyPrompt),
		RunTimeout:            getenvDuration("RUN_TIMEOUT", 60*time.Second),
		RunPollInterval:       getenvDuration("RUN_POLL_INTERVAL", time.Second),

		GuardrailMode:      getenv("GUARDRAIL_MODE", "allow_and_deny"),
		GuardrailVocabPath: getenv("GUARDRAIL_VOCAB_PATH", ""),

		TTSModel: getenv("TTS_MODEL", "tts-1"),
		TTSVoice: getenv("TTS_VOICE", "nova"),

		RealtimeModel:        getenv("REALTIME_MODEL", "gpt-4o-realtime-preview"),
		RealtimeVoice:        getenv("REALTIME_VOICE", "verse"),
		RealtimeInstructions: getenv("REALTIME_INSTRUCTIONS", ""),

		Port:        getenv("RELAY_PORT", "8484"),
		Environment: getenv("RELAY_ENV", EnvProduction),
	}

	var missing []string
	if cfg.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.AssistantID == "" {
		missing = append(missing, "OPENAI_ASSISTANT_ID")
	}
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch cfg.FallbackStrategy {
	case FallbackRetry, FallbackClarify:
	default:
		return nil, fmt.Errorf("invalid FALLBACK_STRATEGY %q (want %q or %q)",
			cfg.FallbackStrategy, FallbackRetry, FallbackClarify)
	}
	switch cfg.GuardrailMode {
	case "allow_only", "deny_only", "allow_and_deny":
	default:
		return nil, fmt.Errorf("invalid GUARDRAIL_MODE %q", cfg.GuardrailMode)
	}

	return cfg, nil
}

// IsDevelopment reports whether verbose error details may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// getenv reads an environment variable, trimming quotes and whitespace that
// container runtimes sometimes pass through literally.
func getenv(key, fallback string) string {
	v := strings.Trim(os.Getenv(key), "\"' ")
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring non-integer environment value", "key", key, "value", raw)
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	// Accept either a Go duration ("90s") or a bare number of seconds.
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("Ignoring unparseable duration environment value", "key", key, "value", raw)
	return fallback
}
