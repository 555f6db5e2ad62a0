package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint_PassesThroughSessionJSON(t *testing.T) {
	const sessionJSON = `{"id":"sess_1","client_secret":{"value":"ek_test","expires_at":1735689600}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "realtime=v1", r.Header.Get("OpenAI-Beta"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-4o-realtime-preview", req["model"])
		assert.Equal(t, "verse", req["voice"])
		assert.Equal(t, "Speak like a calm advisor.", req["instructions"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sessionJSON))
	}))
	defer server.Close()

	minter := NewTokenMinter("sk-test", "gpt-4o-realtime-preview", "verse",
		"Speak like a calm advisor.").WithBaseURL(server.URL)

	payload, err := minter.Mint(context.Background())
	require.NoError(t, err)
	// The payload is forwarded verbatim; the client extracts the credential.
	assert.JSONEq(t, sessionJSON, string(payload))
}

func TestMint_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	minter := NewTokenMinter("sk-bad", "gpt-4o-realtime-preview", "verse", "").
		WithBaseURL(server.URL)

	_, err := minter.Mint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMint_OmitsEmptyInstructions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(body), "instructions")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	minter := NewTokenMinter("sk-test", "m", "v", "").WithBaseURL(server.URL)
	_, err := minter.Mint(context.Background())
	require.NoError(t, err)
}
