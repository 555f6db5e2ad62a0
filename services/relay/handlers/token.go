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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finchvoice/relay/services/relay/observability"
)

// Minter requests ephemeral realtime session credentials.
type Minter interface {
	Mint(ctx context.Context) (json.RawMessage, error)
}

// HandleToken serves GET /token by proxying the platform's session JSON
// verbatim; the browser extracts the ephemeral credential from it.
func HandleToken(minter Minter, showDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := askTracer.Start(c.Request.Context(), "HandleToken")
		defer span.End()

		payload, err := minter.Mint(ctx)
		if err != nil {
			span.RecordError(err)
			slog.Error("Failed to mint a realtime session token", "error", err)
			observability.ObserveTokenMint("error")
			c.JSON(http.StatusInternalServerError, errorPayload("failed to create a realtime session", err, showDetails))
			return
		}
		observability.ObserveTokenMint("ok")
		c.Data(http.StatusOK, "application/json", payload)
	}
}
