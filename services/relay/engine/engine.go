// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine executes assistant runs: it starts a run on a thread,
// polls it to a terminal state under a wall-clock deadline, answers tool
// calls through registered handlers, and extracts the newest assistant
// reply.
package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/finchvoice/relay/services/relay/assistant"
)

var tracer = otel.Tracer("finchvoice.relay.engine")

// ToolHandler answers one function-tool call from the platform.
type ToolHandler func(ctx context.Context, call assistant.ToolCall) (string, error)

// Engine drives runs to completion. It is stateless across requests and
// safe for concurrent use once constructed; RegisterTool must be called
// before serving traffic.
type Engine struct {
	platform     assistant.Client
	pollInterval time.Duration
	timeout      time.Duration
	handlers     map[string]ToolHandler
}

func New(platform assistant.Client, pollInterval, timeout time.Duration) *Engine {
	return &Engine{
		platform:     platform,
		pollInterval: pollInterval,
		timeout:      timeout,
		handlers:     map[string]ToolHandler{},
	}
}

// RegisterTool installs a handler for the named function tool. Without a
// handler, a requires_action run is unblocked with an empty output for
// the call, which degrades any assistant that depends on the result.
func (e *Engine) RegisterTool(name string, handler ToolHandler) {
	e.handlers[name] = handler
}

// RunAndGetReply starts a run on threadID with the given tool mode and
// blocks (cooperatively, per request) until the run reaches a terminal
// state or the deadline passes.
//
// On completion it returns the newest assistant-authored text in the
// thread, or ErrNoReply when there is none. Failure-class terminal states
// return a *RunError; exceeding the deadline returns ErrTimeout after a
// best-effort cancel that is not awaited for correctness.
func (e *Engine) RunAndGetReply(ctx context.Context, threadID string, mode assistant.ToolMode) (string, error) {
	ctx, span := tracer.Start(ctx, "Engine.RunAndGetReply")
	defer span.End()

	run, err := e.platform.StartRun(ctx, threadID, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	slog.Debug("Started a run", "thread_id", threadID, "run_id", run.ID, "tool_mode", mode)

	deadline := time.Now().Add(e.timeout)
	for !run.Status.Terminal() {
		if run.Status == assistant.StatusRequiresAction {
			if err := e.answerToolCalls(ctx, threadID, run); err != nil {
				span.RecordError(err)
				return "", err
			}
		}

		if time.Now().After(deadline) {
			e.cancelRun(threadID, run.ID)
			span.SetStatus(codes.Error, "run timed out")
			return "", ErrTimeout
		}

		select {
		case <-ctx.Done():
			e.cancelRun(threadID, run.ID)
			return "", ctx.Err()
		case <-time.After(e.pollInterval):
		}

		run, err = e.platform.GetRun(ctx, threadID, run.ID)
		if err != nil {
			span.RecordError(err)
			return "", err
		}
	}

	switch run.Status {
	case assistant.StatusCompleted:
		return e.extractReply(ctx, threadID)
	default:
		runErr := &RunError{RunID: run.ID, Status: run.Status, Reason: run.FailureReason}
		span.SetStatus(codes.Error, runErr.Error())
		return "", runErr
	}
}

// answerToolCalls unblocks a requires_action run. Calls with a registered
// handler get real outputs; anything else gets an empty output so the run
// does not hang waiting for a client that has nothing to say.
func (e *Engine) answerToolCalls(ctx context.Context, threadID string, run assistant.Run) error {
	outputs := make([]assistant.ToolOutput, 0, len(run.ToolCalls))
	for _, call := range run.ToolCalls {
		handler, ok := e.handlers[call.Name]
		if !ok {
			slog.Warn("No handler registered for tool call; submitting an empty output",
				"run_id", run.ID, "tool", call.Name)
			outputs = append(outputs, assistant.ToolOutput{CallID: call.ID})
			continue
		}
		result, err := handler(ctx, call)
		if err != nil {
			slog.Error("Tool handler failed; submitting an empty output",
				"run_id", run.ID, "tool", call.Name, "error", err)
			result = ""
		}
		outputs = append(outputs, assistant.ToolOutput{CallID: call.ID, Output: result})
	}
	return e.platform.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
}

// cancelRun is best-effort: the request fails regardless of whether the
// remote cancel lands, so the error is only logged. A detached context
// keeps the cancel from being aborted along with the request.
func (e *Engine) cancelRun(threadID, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.platform.CancelRun(ctx, threadID, runID); err != nil {
		slog.Warn("Failed to cancel a timed-out run", "run_id", runID, "error", err)
	}
}

func (e *Engine) extractReply(ctx context.Context, threadID string) (string, error) {
	msg, ok, err := e.platform.LatestMessage(ctx, threadID)
	if err != nil {
		return "", err
	}
	if !ok || msg.Role != "assistant" || msg.Text == "" {
		return "", ErrNoReply
	}
	return msg.Text, nil
}
