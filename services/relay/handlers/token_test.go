// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchvoice/relay/services/relay/datatypes"
)

type mockMinter struct {
	payload json.RawMessage
	err     error
}

func (m *mockMinter) Mint(context.Context) (json.RawMessage, error) {
	return m.payload, m.err
}

func TestHandleToken_PassesPayloadThrough(t *testing.T) {
	const sessionJSON = `{"id":"sess_1","client_secret":{"value":"ek_test"}}`
	minter := &mockMinter{payload: json.RawMessage(sessionJSON)}
	router := createTestRouter("GET", "/token", HandleToken(minter, false))

	w := performRequest(router, "GET", "/token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, sessionJSON, w.Body.String())
}

func TestHandleToken_CollaboratorFailure(t *testing.T) {
	minter := &mockMinter{err: errors.New("realtime session request returned status 401")}
	router := createTestRouter("GET", "/token", HandleToken(minter, false))

	w := performRequest(router, "GET", "/token", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed to create a realtime session", resp.Error)
	assert.Equal(t, "internal error", resp.Details)
}
