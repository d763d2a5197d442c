// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewInMemoryBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestBadgerStore_UpsertCreatesAndGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	err := s.Upsert(ctx, "alice@example.com", "Lease-Question", ConversationUpdate{
		Title:       strPtr("Lease-Question"),
		CreatedAt:   timePtr(created),
		LastUpdated: created,
		Messages: []datatypes.Turn{
			datatypes.NewUserTurn("Can my landlord raise rent mid-lease?"),
			datatypes.NewAssistantTurn("Generally not, unless the lease allows it."),
		},
	})
	require.NoError(t, err)

	conv, err := s.Get(ctx, "alice@example.com", "Lease-Question")
	require.NoError(t, err)
	assert.Equal(t, "Lease-Question", conv.ID)
	assert.Equal(t, "Lease-Question", conv.Title)
	assert.True(t, conv.CreatedAt.Equal(created))
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, datatypes.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Can my landlord raise rent mid-lease?", conv.Messages[0].Text())
}

func TestBadgerStore_GetMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "alice@example.com", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore_MergeWritePreservesUnsetFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	later := created.Add(2 * time.Hour)

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "Lease-Question", ConversationUpdate{
		Title:       strPtr("Lease-Question"),
		CreatedAt:   timePtr(created),
		LastUpdated: created,
		Messages: []datatypes.Turn{
			datatypes.NewUserTurn("first"),
			datatypes.NewAssistantTurn("answer"),
		},
	}))

	// Continuing turn: no Title, no CreatedAt.
	require.NoError(t, s.Upsert(ctx, "alice@example.com", "Lease-Question", ConversationUpdate{
		LastUpdated: later,
		Messages: []datatypes.Turn{
			datatypes.NewUserTurn("first"),
			datatypes.NewAssistantTurn("answer"),
			datatypes.NewUserTurn("follow-up"),
			datatypes.NewAssistantTurn("more detail"),
		},
	}))

	conv, err := s.Get(ctx, "alice@example.com", "Lease-Question")
	require.NoError(t, err)
	assert.Equal(t, "Lease-Question", conv.Title)
	assert.True(t, conv.CreatedAt.Equal(created), "CreatedAt must survive merge writes")
	assert.True(t, conv.LastUpdated.Equal(later))
	assert.Len(t, conv.Messages, 4)
}

func TestBadgerStore_PrincipalsArePartitioned(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "Lease-Question", ConversationUpdate{
		Title:       strPtr("Lease-Question"),
		CreatedAt:   timePtr(now),
		LastUpdated: now,
		Messages:    []datatypes.Turn{datatypes.NewUserTurn("hi")},
	}))

	exists, err := s.Exists(ctx, "alice@example.com", "Lease-Question")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, "bob@example.com", "Lease-Question")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Get(ctx, "bob@example.com", "Lease-Question")
	assert.ErrorIs(t, err, ErrNotFound)

	summaries, err := s.List(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestBadgerStore_ListSortsByLastUpdatedDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"oldest", "middle", "newest"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Upsert(ctx, "alice@example.com", id, ConversationUpdate{
			Title:       strPtr(id),
			CreatedAt:   timePtr(ts),
			LastUpdated: ts,
			Messages: []datatypes.Turn{
				datatypes.NewUserTurn("q"),
				datatypes.NewAssistantTurn("a"),
			},
		}))
	}

	summaries, err := s.List(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "newest", summaries[0].ID)
	assert.Equal(t, "middle", summaries[1].ID)
	assert.Equal(t, "oldest", summaries[2].ID)
	assert.Equal(t, 2, summaries[0].MessageCount)
}

func TestBadgerStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, "alice@example.com", "temp", ConversationUpdate{
		Title:       strPtr("temp"),
		CreatedAt:   timePtr(now),
		LastUpdated: now,
		Messages:    []datatypes.Turn{datatypes.NewUserTurn("hi")},
	}))

	require.NoError(t, s.Delete(ctx, "alice@example.com", "temp"))

	_, err := s.Get(ctx, "alice@example.com", "temp")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, "alice@example.com", "temp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerStore_ProfileUpsertPreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	require.NoError(t, s.UpsertProfile(ctx, "alice@example.com", datatypes.UserProfile{
		FirstName: "Alice",
		LastName:  "Smith",
		Country:   "US",
		Email:     "alice@example.com",
		UpdatedAt: first,
	}))

	require.NoError(t, s.UpsertProfile(ctx, "alice@example.com", datatypes.UserProfile{
		FirstName: "Alice",
		LastName:  "Jones",
		Country:   "US",
		Email:     "alice@example.com",
		UpdatedAt: second,
	}))

	profile, err := s.GetProfile(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jones", profile.LastName)
	assert.True(t, profile.CreatedAt.Equal(first), "CreatedAt must survive profile updates")
	assert.True(t, profile.UpdatedAt.Equal(second))
}
