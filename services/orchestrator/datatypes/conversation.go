// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// Conversation is the durable transcript document for one conversation.
//
// Invariants:
//   - ID is unique within the owning principal's conversation set and
//     immutable once assigned.
//   - Messages is append-only; existing turns are never rewritten.
//   - Title and CreatedAt are set on the first turn and never change;
//     LastUpdated is refreshed on every turn.
//
// The document is owned by exactly one principal; the principal is the
// storage partition key and is not repeated inside the document.
type Conversation struct {
	ID          string    `json:"id" firestore:"-"`
	Title       string    `json:"title" firestore:"title"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated" firestore:"lastUpdated"`
	Messages    []Turn    `json:"messages" firestore:"messages"`
}

// ConversationSummary is the list-view projection of a Conversation,
// returned by GET /v1/chats. The full transcript is deliberately omitted.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUpdated  time.Time `json:"lastUpdated"`
	MessageCount int       `json:"messageCount"`
}

// UserProfile is the per-principal profile document written by
// POST /v1/profile. Email always mirrors the verified principal.
type UserProfile struct {
	FirstName string    `json:"firstName" firestore:"firstName"`
	LastName  string    `json:"lastName" firestore:"lastName"`
	Gender    string    `json:"gender" firestore:"gender"`
	Country   string    `json:"country" firestore:"country"`
	Email     string    `json:"email" firestore:"email"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}
