// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhaven/lawbot/services/orchestrator/conversation"
	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
	"github.com/lexhaven/lawbot/services/store"
)

// ============================================================================
// Test Doubles
// ============================================================================

type stubCompleter struct {
	reply    string
	err      error
	gotTurns []datatypes.Turn
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, turns []datatypes.Turn) (string, error) {
	s.calls++
	s.gotTurns = turns
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubAllocator struct {
	id    string
	err   error
	calls int
}

func (s *stubAllocator) Allocate(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

// failingStore wraps a real store and fails every Upsert.
type failingStore struct {
	store.ConversationStore
}

func (f *failingStore) Upsert(context.Context, string, string, store.ConversationUpdate) error {
	return errors.New("disk full")
}

func newTestBadger(t *testing.T) *store.BadgerStore {
	t.Helper()
	s, err := store.NewInMemoryBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestCompactor(t *testing.T) *conversation.Compactor {
	t.Helper()
	c, err := conversation.NewCompactor(conversation.DefaultMaxRecentTurns)
	require.NoError(t, err)
	return c
}

func makeTurns(n int) []datatypes.Turn {
	turns := make([]datatypes.Turn, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			turns = append(turns, datatypes.NewUserTurn(fmt.Sprintf("question %d", i)))
		} else {
			turns = append(turns, datatypes.NewAssistantTurn(fmt.Sprintf("answer %d", i)))
		}
	}
	return turns
}

// ============================================================================
// ProcessTurn
// ============================================================================

func TestProcessTurn_NewConversationPersistsTitleAndBothTurns(t *testing.T) {
	ctx := context.Background()
	badger := newTestBadger(t)
	completer := &stubCompleter{reply: "You may have a claim under tenant law."}
	allocator := &stubAllocator{id: "Tenant-Rights-Question"}
	svc := NewTurnService(badger, completer, allocator, newTestCompactor(t), nil)

	resp, err := svc.ProcessTurn(ctx, "alice@example.com", &datatypes.TurnRequest{
		Text: "My landlord shut off my heat. What can I do?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Tenant-Rights-Question", resp.ChatID)
	assert.Equal(t, "You may have a claim under tenant law.", resp.Text)
	assert.Equal(t, 1, allocator.calls)

	conv, err := badger.Get(ctx, "alice@example.com", "Tenant-Rights-Question")
	require.NoError(t, err)
	assert.Equal(t, "Tenant-Rights-Question", conv.Title)
	assert.False(t, conv.CreatedAt.IsZero())
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, datatypes.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "My landlord shut off my heat. What can I do?", conv.Messages[0].Text())
	assert.Equal(t, datatypes.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "You may have a claim under tenant law.", conv.Messages[1].Text())
}

func TestProcessTurn_ContinuingConversationAppendsWithoutTouchingTitle(t *testing.T) {
	ctx := context.Background()
	badger := newTestBadger(t)
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	title := "Lease-Question"
	require.NoError(t, badger.Upsert(ctx, "alice@example.com", "Lease-Question", store.ConversationUpdate{
		Title:       &title,
		CreatedAt:   &created,
		LastUpdated: created,
		Messages:    makeTurns(2),
	}))

	completer := &stubCompleter{reply: "That clause is likely unenforceable."}
	allocator := &stubAllocator{id: "should-not-be-used"}
	svc := NewTurnService(badger, completer, allocator, newTestCompactor(t), nil)

	resp, err := svc.ProcessTurn(ctx, "alice@example.com", &datatypes.TurnRequest{
		Text:    "And what about the early termination fee?",
		History: makeTurns(2),
		ChatID:  "Lease-Question",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lease-Question", resp.ChatID)
	assert.Zero(t, allocator.calls, "existing conversations must not allocate")

	conv, err := badger.Get(ctx, "alice@example.com", "Lease-Question")
	require.NoError(t, err)
	assert.Equal(t, "Lease-Question", conv.Title)
	assert.True(t, conv.CreatedAt.Equal(created), "CreatedAt must not change on continuing turns")
	assert.True(t, conv.LastUpdated.After(created))
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, "And what about the early termination fee?", conv.Messages[2].Text())
	assert.Equal(t, "That clause is likely unenforceable.", conv.Messages[3].Text())
}

func TestProcessTurn_CompletionFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	badger := newTestBadger(t)
	completer := &stubCompleter{err: errors.New("backend unreachable")}
	allocator := &stubAllocator{id: "Doomed-Chat"}
	svc := NewTurnService(badger, completer, allocator, newTestCompactor(t), nil)

	_, err := svc.ProcessTurn(ctx, "alice@example.com", &datatypes.TurnRequest{
		Text: "Is a verbal contract binding?",
	})
	require.Error(t, err)

	exists, err := badger.Exists(ctx, "alice@example.com", "Doomed-Chat")
	require.NoError(t, err)
	assert.False(t, exists, "a failed completion must leave no trace in the store")
}

func TestProcessTurn_AllocationFailureAbortsTurn(t *testing.T) {
	badger := newTestBadger(t)
	completer := &stubCompleter{reply: "unused"}
	allocator := &stubAllocator{err: errors.New("store down")}
	svc := NewTurnService(badger, completer, allocator, newTestCompactor(t), nil)

	_, err := svc.ProcessTurn(context.Background(), "alice@example.com", &datatypes.TurnRequest{
		Text: "hello",
	})
	require.Error(t, err)
	assert.Zero(t, completer.calls, "no completion without an identifier")
}

func TestProcessTurn_DisclaimerStrippedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	badger := newTestBadger(t)
	reply := "Short answer: consult local counsel.\n\n" + DisclaimerText
	completer := &stubCompleter{reply: reply}
	svc := NewTurnService(badger, completer, &stubAllocator{id: "Advice"}, newTestCompactor(t), nil)

	resp, err := svc.ProcessTurn(ctx, "alice@example.com", &datatypes.TurnRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Short answer: consult local counsel.", resp.Text)

	conv, err := badger.Get(ctx, "alice@example.com", "Advice")
	require.NoError(t, err)
	assert.Equal(t, "Short answer: consult local counsel.", conv.Messages[1].Text(),
		"stored reply and returned reply must match")
}

func TestProcessTurn_QuotedDisclaimerSurvivesSingleStrip(t *testing.T) {
	badger := newTestBadger(t)
	reply := "The boilerplate reads: " + DisclaimerText + "\n\n" + DisclaimerText
	completer := &stubCompleter{reply: reply}
	svc := NewTurnService(badger, completer, &stubAllocator{id: "Quoting"}, newTestCompactor(t), nil)

	resp, err := svc.ProcessTurn(context.Background(), "alice@example.com", &datatypes.TurnRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, DisclaimerText, "only one occurrence may be removed")
}

func TestProcessTurn_PromptIsCompactedButTranscriptIsNot(t *testing.T) {
	ctx := context.Background()
	badger := newTestBadger(t)
	completer := &stubCompleter{reply: "noted"}
	svc := NewTurnService(badger, completer, &stubAllocator{id: "unused"}, newTestCompactor(t), nil)

	history := makeTurns(20)
	_, err := svc.ProcessTurn(ctx, "alice@example.com", &datatypes.TurnRequest{
		Text:    "latest question",
		History: history,
		ChatID:  "Long-Running",
	})
	require.NoError(t, err)

	// Prompt: first turn + notice + last 8 + the new user message.
	require.Len(t, completer.gotTurns, conversation.DefaultMaxRecentTurns+3)
	assert.Equal(t, history[0], completer.gotTurns[0])
	assert.Equal(t, datatypes.RoleAssistant, completer.gotTurns[1].Role)
	assert.Equal(t, "latest question", completer.gotTurns[len(completer.gotTurns)-1].Text())

	conv, err := badger.Get(ctx, "alice@example.com", "Long-Running")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 22, "the stored transcript keeps every turn")
}

func TestProcessTurn_PersistenceFailureStillReturnsReply(t *testing.T) {
	badger := newTestBadger(t)
	completer := &stubCompleter{reply: "an answer worth keeping"}
	svc := NewTurnService(&failingStore{badger}, completer, &stubAllocator{id: "Flaky"}, newTestCompactor(t), nil)

	resp, err := svc.ProcessTurn(context.Background(), "alice@example.com", &datatypes.TurnRequest{Text: "hi"})
	require.NoError(t, err, "a persistence failure must not surface as a turn failure")
	assert.Equal(t, "an answer worth keeping", resp.Text)
	assert.Equal(t, "Flaky", resp.ChatID)
}

// ============================================================================
// Profiles
// ============================================================================

func TestSaveProfile_StampsVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	badger := newTestBadger(t)
	svc := NewTurnService(badger, &stubCompleter{}, &stubAllocator{}, newTestCompactor(t), nil)

	require.NoError(t, svc.SaveProfile(ctx, "alice@example.com", &datatypes.ProfileRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Gender:    "female",
		Country:   "US",
	}))

	profile, err := badger.GetProfile(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email, "email comes from the verified principal")
	assert.Equal(t, "Alice", profile.FirstName)
	assert.False(t, profile.UpdatedAt.IsZero())
}

// ============================================================================
// StripDisclaimer
// ============================================================================

func TestStripDisclaimer(t *testing.T) {
	assert.Equal(t, "body", StripDisclaimer("body\n\n"+DisclaimerText))
	assert.Equal(t, "body", StripDisclaimer("body"))
	assert.Equal(t, "", StripDisclaimer(DisclaimerText))
}
