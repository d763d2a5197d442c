// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lexhaven/lawbot/services/orchestrator/conversation"
	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
	"github.com/lexhaven/lawbot/services/orchestrator/observability"
	"github.com/lexhaven/lawbot/services/store"
)

// turnTracer is the OpenTelemetry tracer for TurnService operations.
var turnTracer = otel.Tracer("lawbot.orchestrator.services.turn")

// Completer produces one assistant reply for a sequence of conversation
// turns ending in the new user message.
type Completer interface {
	Complete(ctx context.Context, turns []datatypes.Turn) (string, error)
}

// IdentifierAllocator produces a collision-checked conversation identifier
// for a new conversation seeded by its first user message.
type IdentifierAllocator interface {
	Allocate(ctx context.Context, principal, seedText string) (string, error)
}

// Compile-time interface implementation checks.
var (
	_ Completer           = (*CompletionAdapter)(nil)
	_ IdentifierAllocator = (*conversation.Allocator)(nil)
)

// TurnService runs one message turn end to end:
//
//  1. Resolve the conversation identifier (allocate one for new conversations).
//  2. Compact the caller-supplied history to bound prompt growth.
//  3. Request a completion over persona + compacted history + new message.
//  4. Strip the disclaimer from the reply.
//  5. Merge-write the full (uncompacted) transcript plus the two new turns.
//
// A completion failure aborts the turn before any write, so the store never
// records a user message without its reply. A persistence failure after a
// successful completion is logged and surfaced in metrics, but the reply is
// still returned: the user should not lose an answer that was produced.
type TurnService struct {
	store     store.ConversationStore
	completer Completer
	allocator IdentifierAllocator
	compactor *conversation.Compactor
	metrics   *observability.TurnMetrics
}

// NewTurnService wires a turn orchestrator. metrics may be nil (tests).
func NewTurnService(
	convStore store.ConversationStore,
	completer Completer,
	allocator IdentifierAllocator,
	compactor *conversation.Compactor,
	metrics *observability.TurnMetrics,
) *TurnService {
	return &TurnService{
		store:     convStore,
		completer: completer,
		allocator: allocator,
		compactor: compactor,
		metrics:   metrics,
	}
}

// ProcessTurn executes one conversational turn for the given principal.
//
// The request is assumed validated. The returned response always carries
// the conversation identifier, newly allocated or echoed back.
func (s *TurnService) ProcessTurn(ctx context.Context, principal string, req *datatypes.TurnRequest) (*datatypes.TurnResponse, error) {
	ctx, span := turnTracer.Start(ctx, "TurnService.ProcessTurn")
	defer span.End()

	start := time.Now()
	isNew := req.ChatID == ""
	span.SetAttributes(
		attribute.Bool("conversation.new", isNew),
		attribute.Int("history.turns", len(req.History)),
	)

	chatID := req.ChatID
	if isNew {
		allocated, err := s.allocator.Allocate(ctx, principal, req.Text)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "identifier allocation failed")
			return nil, fmt.Errorf("failed to allocate conversation identifier: %w", err)
		}
		chatID = allocated
	}
	span.SetAttributes(attribute.String("conversation.id", chatID))

	compacted := s.compactor.Compact(req.History)
	if len(compacted) != len(req.History) {
		s.metrics.RecordCompaction()
		slog.Debug("Compacted conversation history",
			"chat_id", chatID,
			"original_turns", len(req.History),
			"compacted_turns", len(compacted),
		)
	}

	promptTurns := make([]datatypes.Turn, 0, len(compacted)+1)
	promptTurns = append(promptTurns, compacted...)
	promptTurns = append(promptTurns, datatypes.NewUserTurn(req.Text))

	reply, err := s.completer.Complete(ctx, promptTurns)
	if err != nil {
		s.metrics.RecordCompletionFailure()
		s.metrics.RecordTurn(observability.StatusCompletionError, time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}
	reply = StripDisclaimer(reply)

	now := time.Now().UTC()
	messages := make([]datatypes.Turn, 0, len(req.History)+2)
	messages = append(messages, req.History...)
	messages = append(messages, datatypes.NewUserTurn(req.Text), datatypes.NewAssistantTurn(reply))

	update := store.ConversationUpdate{
		LastUpdated: now,
		Messages:    messages,
	}
	if isNew {
		// The identifier doubles as the human-readable title.
		update.Title = &chatID
		update.CreatedAt = &now
	}

	if err := s.store.Upsert(ctx, principal, chatID, update); err != nil {
		// The reply exists; losing the transcript write must not lose it.
		s.metrics.RecordTurn(observability.StatusPersistenceError, time.Since(start).Seconds())
		span.RecordError(err)
		slog.Error("Failed to persist conversation turn",
			"chat_id", chatID,
			"error", err,
		)
		return &datatypes.TurnResponse{Text: reply, ChatID: chatID}, nil
	}

	s.metrics.RecordTurn(observability.StatusSuccess, time.Since(start).Seconds())
	return &datatypes.TurnResponse{Text: reply, ChatID: chatID}, nil
}

// ListConversations returns the principal's conversation summaries.
func (s *TurnService) ListConversations(ctx context.Context, principal string) ([]datatypes.ConversationSummary, error) {
	return s.store.List(ctx, principal)
}

// GetConversation loads one full transcript.
func (s *TurnService) GetConversation(ctx context.Context, principal, chatID string) (*datatypes.Conversation, error) {
	return s.store.Get(ctx, principal, chatID)
}

// DeleteConversation removes one conversation.
func (s *TurnService) DeleteConversation(ctx context.Context, principal, chatID string) error {
	return s.store.Delete(ctx, principal, chatID)
}

// SaveProfile merge-writes the principal's profile, stamping the email from
// the verified identity rather than trusting the request body.
func (s *TurnService) SaveProfile(ctx context.Context, principal string, req *datatypes.ProfileRequest) error {
	now := time.Now().UTC()
	return s.store.UpsertProfile(ctx, principal, datatypes.UserProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Country:   req.Country,
		Email:     principal,
		UpdatedAt: now,
	})
}
