// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"errors"
	"fmt"

	"github.com/finchvoice/relay/services/relay/assistant"
)

// Sentinel errors for run execution.
var (
	// ErrTimeout is returned when a run fails to reach a terminal state
	// before the configured deadline. A best-effort cancel has already
	// been issued by the time callers see it.
	ErrTimeout = errors.New("run did not reach a terminal state before the deadline")

	// ErrNoReply is returned when a run completes but the newest thread
	// message is not an assistant-authored text reply. It is distinct
	// from run failure so callers can apply fallback policy instead of
	// surfacing an error.
	ErrNoReply = errors.New("run completed without a usable assistant reply")
)

// RunError reports a run that ended in a failure-class terminal state,
// carrying the platform-provided reason when one exists.
type RunError struct {
	RunID  string
	Status assistant.RunStatus
	Reason string
}

func (e *RunError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("run %s ended with status %s: %s", e.RunID, e.Status, e.Reason)
	}
	return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
}
