// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/lexhaven/lawbot/services/orchestrator/observability"
)

var allocTracer = otel.Tracer("lawbot.orchestrator.conversation")

// TitleGenerator produces a short descriptive title from the first message
// of a new conversation. Implemented by the completion adapter.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// ExistenceChecker answers whether a conversation id is already taken
// within one principal's conversation set. Implemented by the store.
type ExistenceChecker interface {
	Exists(ctx context.Context, principal, chatID string) (bool, error)
}

const (
	// maxCollisionRetries bounds the sequential existence checks after the
	// first collision, capping worst-case added latency.
	maxCollisionRetries = 5

	// maxSlugLength is the maximum length of a derived conversation id.
	maxSlugLength = 80
)

// slugForbidden matches characters stripped from generated titles before
// they become document ids.
var slugForbidden = regexp.MustCompile(`[/#?*\[\]]`)

// slugWhitespace collapses runs of whitespace into a single hyphen.
var slugWhitespace = regexp.MustCompile(`\s+`)

// Allocator derives a conversation id from the seed message of a new
// conversation and guarantees it is not already used by the principal.
//
// Title generation is outsourced to the language backend and is non-fatal:
// if it fails, the allocator degrades to a random id and the turn proceeds.
//
// The final fallback after maxCollisionRetries collisions is a fully random
// id that is NOT re-checked against the store. The residual collision risk
// is accepted; see DESIGN.md.
type Allocator struct {
	titles  TitleGenerator
	store   ExistenceChecker
	metrics *observability.TurnMetrics
}

// NewAllocator wires a title generator and an existence checker.
// metrics may be nil (tests).
func NewAllocator(titles TitleGenerator, store ExistenceChecker, metrics *observability.TurnMetrics) *Allocator {
	return &Allocator{titles: titles, store: store, metrics: metrics}
}

// Allocate returns a conversation id that is free within the principal's
// conversation set at the time of the check.
//
// The only error surfaced is a store failure during an existence check;
// title-generation failures degrade silently to a random id.
func (a *Allocator) Allocate(ctx context.Context, principal, seedText string) (string, error) {
	ctx, span := allocTracer.Start(ctx, "Allocator.Allocate")
	defer span.End()

	candidate := a.deriveCandidate(ctx, seedText)

	exists, err := a.store.Exists(ctx, principal, candidate)
	if err != nil {
		return "", fmt.Errorf("checking conversation id %q: %w", candidate, err)
	}
	if !exists {
		return candidate, nil
	}

	original := candidate
	for attempt := 1; attempt <= maxCollisionRetries; attempt++ {
		a.metrics.RecordAllocationRetry()
		candidate = original + "-" + randomToken(4)
		exists, err = a.store.Exists(ctx, principal, candidate)
		if err != nil {
			return "", fmt.Errorf("checking conversation id %q: %w", candidate, err)
		}
		if !exists {
			slog.Info("Resolved conversation id collision",
				"candidate", candidate, "attempts", attempt)
			return candidate, nil
		}
	}

	// All suffixed attempts collided. Fall back to a fully random id without
	// a final existence check; collision here is overwhelmingly improbable.
	a.metrics.RecordAllocationFallback()
	candidate = randomFallbackID()
	slog.Warn("Conversation id collision retries exhausted, using random fallback",
		"original", original, "fallback", candidate)
	return candidate, nil
}

// deriveCandidate produces the initial slug candidate: an LLM-generated
// title sanitized into a URL-safe form, or a random fallback when the
// backend fails or the sanitized result is empty.
func (a *Allocator) deriveCandidate(ctx context.Context, seedText string) string {
	title, err := a.titles.GenerateTitle(ctx, seedText)
	if err != nil {
		slog.Warn("Title generation failed, falling back to a random conversation id",
			"error", err)
		a.metrics.RecordAllocationFallback()
		return randomFallbackID()
	}

	slug := sanitizeTitle(title)
	if slug == "" {
		a.metrics.RecordAllocationFallback()
		return randomFallbackID()
	}
	return slug
}

// sanitizeTitle turns free-form title text into a URL-safe slug: forbidden
// characters stripped, whitespace collapsed to hyphens, truncated to at
// most maxSlugLength bytes without splitting a rune.
func sanitizeTitle(title string) string {
	s := strings.TrimSpace(title)
	s = slugForbidden.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		cut := maxSlugLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// randomFallbackID returns an id of the form "Chat-xxxxxxxx".
func randomFallbackID() string {
	return "Chat-" + randomToken(8)
}

// randomToken returns n hex characters from a fresh UUID.
func randomToken(n int) string {
	tok := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(tok) {
		n = len(tok)
	}
	return tok[:n]
}
