// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation provides conversation-level helpers for the
// orchestrator: history compaction and conversation identifier allocation.
package conversation

import (
	"errors"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// DefaultMaxRecentTurns is the default number of trailing turns kept
// verbatim by the compactor.
const DefaultMaxRecentTurns = 8

// compactionNotice is the fixed placeholder inserted where older turns were
// dropped. The wording is part of the prompt contract; do not edit casually.
const compactionNotice = "[... earlier parts of the conversation were summarized or omitted for brevity ...]"

// ErrInvalidMaxTurns is returned by NewCompactor for a non-positive limit.
var ErrInvalidMaxTurns = errors.New("conversation: max recent turns must be positive")

// Compactor bounds the size of a conversation history before it is sent to
// the language backend.
//
// # Description
//
// Compaction is a deterministic truncation policy, not a semantic summary,
// and it is lossy: when a history is longer than the configured limit, only
// the opening turn (which usually carries the user's framing) and the most
// recent turns survive. Everything in between is replaced by one synthetic
// assistant turn containing a fixed notice.
//
// # Thread Safety
//
// Compactor is immutable after construction and safe for concurrent use.
type Compactor struct {
	maxRecent int
}

// NewCompactor creates a Compactor that keeps the last maxRecent turns.
// maxRecent must be positive; use DefaultMaxRecentTurns when in doubt.
func NewCompactor(maxRecent int) (*Compactor, error) {
	if maxRecent <= 0 {
		return nil, ErrInvalidMaxTurns
	}
	return &Compactor{maxRecent: maxRecent}, nil
}

// Compact returns a transmission-ready view of history.
//
// If len(history) <= maxRecent the input is returned unchanged, same order,
// no synthetic turn. Otherwise the result is exactly: the first turn, one
// synthetic notice turn, then the last maxRecent turns (length maxRecent+2).
// The input slice is never mutated.
func (c *Compactor) Compact(history []datatypes.Turn) []datatypes.Turn {
	if len(history) <= c.maxRecent {
		return history
	}

	compacted := make([]datatypes.Turn, 0, c.maxRecent+2)
	compacted = append(compacted, history[0])
	compacted = append(compacted, datatypes.NewAssistantTurn(compactionNotice))
	compacted = append(compacted, history[len(history)-c.maxRecent:]...)
	return compacted
}
