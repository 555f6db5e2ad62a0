// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/finchvoice/relay/services/relay/datatypes"
	"github.com/finchvoice/relay/services/relay/observability"
	"github.com/finchvoice/relay/services/relay/pipeline"
	"github.com/finchvoice/relay/services/relay/speech"
)

var askTracer = otel.Tracer("finchvoice.relay.handlers")

// Asker is the reply pipeline as the handler sees it.
type Asker interface {
	Ask(ctx context.Context, userID, text string) (pipeline.Result, error)
}

// HandleAsk serves POST /ask: one question in, one reply (text plus
// optional audio) out. showDetails controls whether internal error text
// reaches the client; it is enabled only in development configuration.
func HandleAsk(asker Asker, showDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := askTracer.Start(c.Request.Context(), "HandleAsk")
		defer span.End()

		var req datatypes.AskRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			observability.ObserveRequest("client_error")
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}

		result, err := asker.Ask(ctx, req.UserID, req.Text)
		if err != nil {
			if errors.Is(err, pipeline.ErrEmptyInput) {
				observability.ObserveRequest("client_error")
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "text is required"})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Reply pipeline failed", "user_id", req.UserID, "error", err)
			observability.ObserveRequest("server_error")
			c.JSON(http.StatusInternalServerError, errorPayload("failed to generate a response", err, showDetails))
			return
		}

		resp := datatypes.AskResponse{Text: result.Text, ThreadID: result.ThreadID}
		if len(result.Audio) > 0 {
			uri := speech.DataURI(result.Audio)
			resp.Audio = &uri
		}
		observability.ObserveRequest("ok")
		c.JSON(http.StatusOK, resp)
	}
}

// errorPayload hides internal error text outside development.
func errorPayload(message string, err error, showDetails bool) datatypes.ErrorResponse {
	resp := datatypes.ErrorResponse{Error: message, Details: "internal error"}
	if showDetails {
		resp.Details = err.Error()
	}
	return resp
}
