// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchvoice/relay/services/relay/datatypes"
	"github.com/finchvoice/relay/services/relay/pipeline"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockAsker implements Asker for handler testing.
type mockAsker struct {
	result   pipeline.Result
	err      error
	lastUser string
	lastText string
}

func (m *mockAsker) Ask(_ context.Context, userID, text string) (pipeline.Result, error) {
	m.lastUser = userID
	m.lastText = text
	if m.err != nil {
		return pipeline.Result{}, m.err
	}
	if strings.TrimSpace(text) == "" {
		return pipeline.Result{}, pipeline.ErrEmptyInput
	}
	return m.result, nil
}

// createTestRouter creates a Gin router with the specified handler for testing.
func createTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	switch method {
	case "POST":
		router.POST(path, handler)
	case "GET":
		router.GET(path, handler)
	}
	return router
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// HandleAsk Tests
// =============================================================================

func TestHandleAsk_Success(t *testing.T) {
	asker := &mockAsker{result: pipeline.Result{
		Text:     "A P/E between 15 and 25 is common.",
		Audio:    []byte{0xFF, 0xFB},
		ThreadID: "thread_1",
	}}
	router := createTestRouter("POST", "/ask", HandleAsk(asker, false))

	w := performRequest(router, "POST", "/ask", datatypes.AskRequest{
		Text:   "What's a good P/E ratio?",
		UserID: "user-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "A P/E between 15 and 25 is common.", resp.Text)
	assert.Equal(t, "thread_1", resp.ThreadID)
	require.NotNil(t, resp.Audio)
	assert.True(t, strings.HasPrefix(*resp.Audio, "data:audio/mpeg;base64,"))
	assert.Equal(t, "user-1", asker.lastUser)
}

func TestHandleAsk_NoAudioIsExplicitNull(t *testing.T) {
	asker := &mockAsker{result: pipeline.Result{Text: "About 18", ThreadID: "thread_1"}}
	router := createTestRouter("POST", "/ask", HandleAsk(asker, false))

	w := performRequest(router, "POST", "/ask", datatypes.AskRequest{Text: "What's a good P/E ratio?"})
	assert.Equal(t, http.StatusOK, w.Code)

	// The audio field must be present and null, not omitted.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	audio, present := raw["audio"]
	require.True(t, present)
	assert.Equal(t, "null", string(audio))
}

func TestHandleAsk_MissingText(t *testing.T) {
	asker := &mockAsker{}
	router := createTestRouter("POST", "/ask", HandleAsk(asker, false))

	w := performRequest(router, "POST", "/ask", datatypes.AskRequest{Text: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "text is required", resp.Error)
}

func TestHandleAsk_InvalidJSON(t *testing.T) {
	router := createTestRouter("POST", "/ask", HandleAsk(&mockAsker{}, false))

	req, _ := http.NewRequest("POST", "/ask", bytes.NewBufferString("{invalid json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAsk_PipelineFailure_DetailsSuppressedInProduction(t *testing.T) {
	asker := &mockAsker{err: errors.New("fallback pass failed: run timed out")}
	router := createTestRouter("POST", "/ask", HandleAsk(asker, false))

	w := performRequest(router, "POST", "/ask", datatypes.AskRequest{Text: "What's a good P/E ratio?"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed to generate a response", resp.Error)
	assert.Equal(t, "internal error", resp.Details)
	assert.NotContains(t, w.Body.String(), "timed out")
}

func TestHandleAsk_PipelineFailure_DetailsShownInDevelopment(t *testing.T) {
	asker := &mockAsker{err: errors.New("fallback pass failed: run timed out")}
	router := createTestRouter("POST", "/ask", HandleAsk(asker, true))

	w := performRequest(router, "POST", "/ask", datatypes.AskRequest{Text: "What's a good P/E ratio?"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Details, "timed out")
}
