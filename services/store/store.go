// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists conversation transcripts and user profiles,
// partitioned by principal. Two backends implement the same contract:
// Badger for single-node deployments and Firestore for managed ones.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// ErrNotFound is returned when a requested conversation does not exist
// for the given principal.
var ErrNotFound = errors.New("store: conversation not found")

// ConversationUpdate is a merge-write: nil pointer fields are left
// untouched in the stored document, non-nil fields overwrite.
//
// Messages always replaces the stored transcript wholesale; the caller is
// responsible for appending to the full history before writing.
type ConversationUpdate struct {
	Title       *string
	CreatedAt   *time.Time
	LastUpdated time.Time
	Messages    []datatypes.Turn
}

// ConversationStore is the persistence contract for conversations and
// profiles. All operations are scoped to a single principal; no operation
// can read or write another principal's data.
type ConversationStore interface {
	// Exists reports whether a conversation document exists. It must not
	// create anything.
	Exists(ctx context.Context, principal, chatID string) (bool, error)

	// Get loads a full conversation. Returns ErrNotFound when absent.
	Get(ctx context.Context, principal, chatID string) (*datatypes.Conversation, error)

	// Upsert merge-writes a conversation document, creating it if absent.
	Upsert(ctx context.Context, principal, chatID string, update ConversationUpdate) error

	// List returns summaries of all conversations owned by the principal,
	// most recently updated first.
	List(ctx context.Context, principal string) ([]datatypes.ConversationSummary, error)

	// Delete removes a conversation. Deleting an absent conversation
	// returns ErrNotFound.
	Delete(ctx context.Context, principal, chatID string) error

	// UpsertProfile merge-writes the principal's profile document.
	UpsertProfile(ctx context.Context, principal string, profile datatypes.UserProfile) error

	// Close releases backend resources.
	Close() error
}
