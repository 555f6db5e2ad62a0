// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response shapes shared by the
// relay handlers and their tests.
package datatypes

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// AskResponse is the body returned by POST /ask.
//
// Audio, when present, is a data URI embedding base64 MP3 bytes
// (data:audio/mpeg;base64,...). It is null when speech synthesis was
// skipped, failed, or the reply was replaced by a guardrail redirect.
type AskResponse struct {
	Text     string  `json:"text"`
	Audio    *string `json:"audio"`
	ThreadID string  `json:"threadId,omitempty"`
}

// ErrorResponse is the uniform failure payload for /ask and /token.
// Details carries the internal error text and is replaced with a generic
// string outside development configuration.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
