// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/finchvoice/relay/services/relay/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAsker struct{}

func (stubAsker) Ask(context.Context, string, string) (pipeline.Result, error) {
	return pipeline.Result{Text: "stub reply for route wiring"}, nil
}

type stubMinter struct{}

func (stubMinter) Mint(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func newRouter() *gin.Engine {
	router := gin.New()
	SetupRoutes(router, stubAsker{}, stubMinter{}, false)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Registered(t *testing.T) {
	router := newRouter()

	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	assert.Equal(t, http.StatusOK, get(router, "/metrics").Code)
	assert.Equal(t, http.StatusOK, get(router, "/token").Code)

	body := bytes.NewBufferString(`{"text":"What's a good P/E ratio?"}`)
	req, _ := http.NewRequest(http.MethodPost, "/ask", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_UnknownPath(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(newRouter(), "/nope").Code)
}
