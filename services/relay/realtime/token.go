// Package realtime mints ephemeral session credentials for the browser's
// direct realtime voice connection. The SDK has no surface for this
// endpoint, so the call is made directly.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultSessionsURL = "https://api.openai.com/v1/realtime/sessions"

type sessionRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

// TokenMinter requests ephemeral realtime session tokens.
type TokenMinter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	Model        string
	Voice        string
	Instructions string
}

func NewTokenMinter(apiKey, model, voice, instructions string) *TokenMinter {
	return &TokenMinter{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      defaultSessionsURL,
		apiKey:       apiKey,
		Model:        model,
		Voice:        voice,
		Instructions: instructions,
	}
}

// WithBaseURL points the minter at a different sessions endpoint. Used by
// tests and self-hosted gateways.
func (m *TokenMinter) WithBaseURL(url string) *TokenMinter {
	m.baseURL = url
	return m
}

// Mint returns the platform's session JSON verbatim. The client only needs
// the embedded ephemeral credential field, so the payload is passed
// through untouched rather than re-modeled here.
func (m *TokenMinter) Mint(ctx context.Context) (json.RawMessage, error) {
	body, err := json.Marshal(sessionRequest{
		Model:        m.Model,
		Voice:        m.Voice,
		Instructions: m.Instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal the session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build the session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "realtime=v1")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("realtime session request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read the session response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Realtime session minting failed",
			"status", resp.StatusCode, "body", string(payload))
		return nil, fmt.Errorf("realtime session request returned status %d", resp.StatusCode)
	}
	return payload, nil
}
