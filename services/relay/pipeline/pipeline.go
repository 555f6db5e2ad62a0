// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline sequences a question through the guardrail filter, the
// thread registry, up to two engine passes, the output filter, and speech
// synthesis. It is the one place in the relay with branching logic and
// retries; everything it calls is a narrow collaborator.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/finchvoice/relay/services/relay/assistant"
	"github.com/finchvoice/relay/services/relay/engine"
	"github.com/finchvoice/relay/services/relay/guardrail"
	"github.com/finchvoice/relay/services/relay/observability"
	"github.com/finchvoice/relay/services/relay/speech"
)

var tracer = otel.Tracer("finchvoice.relay.pipeline")

// Fixed client-facing messages. These are substitutions, not errors: the
// pipeline never returns an empty reply to the caller.
const (
	InputRedirectMessage = "I'm here to help with investing and personal finance " +
		"questions. Is there a financial topic I can help you with?"
	OutputRedirectMessage = "Let's keep our conversation focused on investing and " +
		"personal finance. Is there a financial topic I can help you with?"
	EmptyReplyMessage = "I'm sorry, I can't provide a detailed response to that " +
		"right now. Could you try rephrasing your question?"
)

// ErrEmptyInput is returned for requests with no question text. Handlers
// map it to a client error rather than a server failure.
var ErrEmptyInput = errors.New("question text is required")

// DefaultUserID is used when the client supplies no user identifier.
const DefaultUserID = "anonymous"

// ThreadResolver resolves a user's durable thread (threads.Registry).
type ThreadResolver interface {
	GetOrCreateThreadID(ctx context.Context, userID string) (string, error)
}

// Runner executes one assistant run to a terminal state (engine.Engine).
type Runner interface {
	RunAndGetReply(ctx context.Context, threadID string, mode assistant.ToolMode) (string, error)
}

// MessageAppender posts a user message to a thread. The full
// assistant.Client satisfies it; the pipeline needs nothing else from the
// platform directly.
type MessageAppender interface {
	AddMessage(ctx context.Context, threadID, text string) error
}

// Options tunes the two-pass behavior. Zero thresholds are valid and mean
// "never trigger".
type Options struct {
	// RetrievalEnabled gates the retrieval-forced first pass. When the
	// deployment has no document store, the pipeline goes straight to
	// the general-knowledge pass.
	RetrievalEnabled bool

	// FallbackMinReplyChars triggers the second pass when the first
	// pass's reply is shorter than this. Length is a crude proxy for "the
	// documents had nothing useful"; it is a heuristic, not semantics.
	FallbackMinReplyChars int

	// SpeechMinChars gates synthesis: replies shorter than this ship
	// text-only.
	SpeechMinChars int

	// ClarifyBeforeFallback appends ClarifyPrompt to the thread before
	// the second pass instead of plainly retrying.
	ClarifyBeforeFallback bool
	ClarifyPrompt         string
}

// Result is the assembled outcome of one question.
type Result struct {
	Text     string
	Audio    []byte // nil when synthesis was skipped or failed
	ThreadID string
	PassUsed int // 0 when no engine pass ran (input blocked)
}

// Orchestrator wires the collaborators together. Construct once at
// startup; it holds no per-request state.
type Orchestrator struct {
	filter   *guardrail.Filter
	resolver ThreadResolver
	runner   Runner
	appender MessageAppender
	synth    speech.Synthesizer
	opts     Options
}

func NewOrchestrator(filter *guardrail.Filter, resolver ThreadResolver, runner Runner,
	appender MessageAppender, synth speech.Synthesizer, opts Options) *Orchestrator {
	return &Orchestrator{
		filter:   filter,
		resolver: resolver,
		runner:   runner,
		appender: appender,
		synth:    synth,
		opts:     opts,
	}
}

// Ask runs the full reply pipeline for one question.
//
// First-pass failures and speech failures are absorbed into graceful
// degradation. Errors from the thread registry and from the fallback pass
// are the only ones that propagate.
func (o *Orchestrator) Ask(ctx context.Context, userID, text string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Ask")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}
	if userID == "" {
		userID = DefaultUserID
	}

	if o.filter.ClassifyInput(text) == guardrail.Blocked {
		slog.Info("Input blocked by the topic guardrail", "user_id", userID)
		observability.ObserveGuardrailBlock("input")
		return Result{Text: InputRedirectMessage}, nil
	}

	threadID, err := o.resolver.GetOrCreateThreadID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("thread resolution failed: %w", err)
	}

	if err := o.appender.AddMessage(ctx, threadID, text); err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("failed to post the question to the thread: %w", err)
	}

	reply, passUsed, err := o.generateReply(ctx, threadID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	if reply == "" {
		reply = EmptyReplyMessage
	}

	if o.filter.ClassifyOutput(reply) == guardrail.Blocked {
		slog.Info("Reply blocked by the topic guardrail", "user_id", userID, "thread_id", threadID)
		observability.ObserveGuardrailBlock("output")
		return Result{Text: OutputRedirectMessage, ThreadID: threadID, PassUsed: passUsed}, nil
	}

	result := Result{Text: reply, ThreadID: threadID, PassUsed: passUsed}
	result.Audio = o.maybeSynthesize(ctx, reply)
	return result, nil
}

// generateReply runs the retrieval-forced pass and, when that produced
// nothing convincing, the general-knowledge fallback pass.
func (o *Orchestrator) generateReply(ctx context.Context, threadID string) (string, int, error) {
	var reply string

	if o.opts.RetrievalEnabled {
		started := time.Now()
		firstReply, err := o.runner.RunAndGetReply(ctx, threadID, assistant.ToolRetrieval)
		switch {
		case err == nil:
			reply = firstReply
			observability.ObservePass("1", "ok", time.Since(started).Seconds())
		case errors.Is(err, engine.ErrNoReply):
			observability.ObservePass("1", "empty", time.Since(started).Seconds())
		default:
			// First-pass trouble of any kind, timeouts included, is
			// absorbed; the fallback pass is the retry policy.
			slog.Warn("Retrieval pass failed; falling back", "thread_id", threadID, "error", err)
			observability.ObservePass("1", passOutcome(err), time.Since(started).Seconds())
		}

		if len(reply) >= o.opts.FallbackMinReplyChars {
			return reply, 1, nil
		}
	}

	if o.opts.ClarifyBeforeFallback && o.opts.ClarifyPrompt != "" {
		if err := o.appender.AddMessage(ctx, threadID, o.opts.ClarifyPrompt); err != nil {
			return "", 2, fmt.Errorf("failed to post the clarification prompt: %w", err)
		}
	}

	started := time.Now()
	reply, err := o.runner.RunAndGetReply(ctx, threadID, assistant.ToolAuto)
	switch {
	case err == nil:
		observability.ObservePass("2", "ok", time.Since(started).Seconds())
	case errors.Is(err, engine.ErrNoReply):
		reply = ""
		observability.ObservePass("2", "empty", time.Since(started).Seconds())
	default:
		observability.ObservePass("2", passOutcome(err), time.Since(started).Seconds())
		return "", 2, fmt.Errorf("fallback pass failed: %w", err)
	}
	return reply, 2, nil
}

// maybeSynthesize gates synthesis on reply length and absorbs failures:
// audio is an enhancement, never a reason to fail the request.
func (o *Orchestrator) maybeSynthesize(ctx context.Context, reply string) []byte {
	if len(reply) < o.opts.SpeechMinChars {
		observability.ObserveSpeech("skipped")
		return nil
	}
	audio, err := o.synth.Synthesize(ctx, reply)
	if err != nil {
		slog.Warn("Speech synthesis failed; responding text-only", "error", err)
		observability.ObserveSpeech("error")
		return nil
	}
	observability.ObserveSpeech("ok")
	return audio
}

func passOutcome(err error) string {
	if errors.Is(err, engine.ErrTimeout) {
		return "timeout"
	}
	return "error"
}
