// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package guardrail classifies text as in-scope or out-of-scope for the
// advisor using configurable allow/deny vocabularies.
//
// The classifier is deliberately naive: lowercase substring containment
// with no tokenization or word-boundary checks, so a deny word embedded
// inside a longer unrelated word still triggers ("aidoc" contains "ai").
// Downstream clients depend on this exact behavior; do not tighten the
// matching without versioning the vocabulary format.
package guardrail

import (
	"fmt"
	"strings"
)

// Mode selects the input-side strictness policy.
type Mode string

const (
	// ModeAllowOnly blocks unless an allow-listed term is present.
	ModeAllowOnly Mode = "allow_only"
	// ModeDenyOnly blocks only when a deny-listed term is present.
	ModeDenyOnly Mode = "deny_only"
	// ModeAllowAndDeny requires an allow-list hit and no deny-list hit.
	ModeAllowAndDeny Mode = "allow_and_deny"
)

// Decision is the outcome of a classification.
type Decision int

const (
	Allowed Decision = iota
	Blocked
)

func (d Decision) String() string {
	if d == Blocked {
		return "blocked"
	}
	return "allowed"
}

// Filter holds the compiled (lowercased) vocabularies and the active mode.
// Filters are immutable after construction and safe for concurrent use.
type Filter struct {
	mode  Mode
	allow []string
	deny  []string
}

// New builds a Filter from the given vocabulary and mode.
func New(mode Mode, vocab Vocabulary) (*Filter, error) {
	switch mode {
	case ModeAllowOnly, ModeDenyOnly, ModeAllowAndDeny:
	default:
		return nil, fmt.Errorf("unknown guardrail mode %q", mode)
	}
	return &Filter{
		mode:  mode,
		allow: lowerAll(vocab.Allow),
		deny:  lowerAll(vocab.Deny),
	}, nil
}

// ClassifyInput applies the active mode to inbound user text.
func (f *Filter) ClassifyInput(text string) Decision {
	lowered := strings.ToLower(text)
	switch f.mode {
	case ModeAllowOnly:
		if !containsAny(lowered, f.allow) {
			return Blocked
		}
	case ModeDenyOnly:
		if containsAny(lowered, f.deny) {
			return Blocked
		}
	case ModeAllowAndDeny:
		if !containsAny(lowered, f.allow) || containsAny(lowered, f.deny) {
			return Blocked
		}
	}
	return Allowed
}

// ClassifyOutput applies the deny list only. Assistant phrasing rarely
// repeats the literal allow-list trigger words, so outbound text is never
// held to the allow list regardless of mode.
func (f *Filter) ClassifyOutput(text string) Decision {
	if containsAny(strings.ToLower(text), f.deny) {
		return Blocked
	}
	return Allowed
}

func containsAny(lowered string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}
