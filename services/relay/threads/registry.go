// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package threads maps user identifiers to durable conversation threads
// on the remote platform, creating a thread on first use.
package threads

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/finchvoice/relay/services/relay/assistant"
)

var tracer = otel.Tracer("finchvoice.relay.threads")

// Registry resolves a user's durable thread id, creating and persisting
// one on first use. It holds no per-request state.
type Registry struct {
	store    Store
	platform assistant.Client

	// VerifyRemote additionally checks that a stored thread is still
	// known to the remote platform before reusing it. A not-found reply
	// marks the record stale and triggers silent recreation.
	VerifyRemote bool
}

func NewRegistry(store Store, platform assistant.Client) *Registry {
	return &Registry{store: store, platform: platform, VerifyRemote: true}
}

// GetOrCreateThreadID returns the thread id for userID.
//
// A lookup failure other than "no record" is fatal and propagates. A
// persistence write failure after thread creation is logged but absorbed:
// the fresh thread id is still returned and used for the rest of the
// request, trading durability for availability. The next request from the
// same user will simply create another thread.
func (r *Registry) GetOrCreateThreadID(ctx context.Context, userID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Registry.GetOrCreateThreadID")
	defer span.End()

	threadID, err := r.store.Lookup(ctx, userID)
	switch {
	case err == nil:
		if !r.VerifyRemote {
			return threadID, nil
		}
		verifyErr := r.platform.RetrieveThread(ctx, threadID)
		if verifyErr == nil {
			return threadID, nil
		}
		if !assistant.IsNotFound(verifyErr) {
			// Transient platform trouble is not proof of staleness;
			// keep the stored id and let the run surface any problem.
			slog.Warn("Could not verify the stored thread; using it anyway",
				"user_id", userID, "thread_id", threadID, "error", verifyErr)
			return threadID, nil
		}
		slog.Info("Stored thread is no longer known to the platform; recreating",
			"user_id", userID, "thread_id", threadID)
	case errors.Is(err, ErrNotFound):
		// First interaction for this user.
	default:
		span.RecordError(err)
		return "", err
	}

	newID, err := r.platform.CreateThread(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if err := r.store.Upsert(ctx, userID, newID); err != nil {
		slog.Error("Failed to persist the thread mapping; continuing with the fresh thread",
			"user_id", userID, "thread_id", newID, "error", err)
	}
	return newID, nil
}
