// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the orchestrator service.
//
// This file contains the wire types for the message-turn endpoint
// (POST /v1/chat/message). For persisted conversation documents, see
// conversation.go.
package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Roles and Limits
// =============================================================================

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser = "user"

	// RoleAssistant marks a turn authored by the language backend.
	RoleAssistant = "assistant"
)

const (
	// MaxMessageContentBytes is the maximum size of a single message text.
	// Checks byte length (not rune count) to bound request memory.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxHistoryTurns is the maximum number of prior turns a request may carry.
	// The compactor bounds what is sent to the backend; this bounds what the
	// server is willing to parse at all.
	MaxHistoryTurns = 200
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = chatValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateMaxBytes checks that a string field does not exceed
// MaxMessageContentBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// validateNotBlank checks that a string field is non-empty after trimming
// whitespace. "required" alone accepts strings like "   ".
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// =============================================================================
// Turn Types
// =============================================================================

// Part is one text fragment of a turn. The wire and storage format keeps
// parts as a list for forward compatibility with multi-part content, but
// this service only ever produces single-part turns.
type Part struct {
	Text string `json:"text" firestore:"text"`
}

// Turn is one role-tagged message exchange unit: a user message or an
// assistant reply. Turns are never mutated after creation.
type Turn struct {
	Role  string `json:"role" firestore:"role" validate:"required,oneof=user assistant"`
	Parts []Part `json:"parts" firestore:"parts" validate:"required,min=1"`
}

// NewUserTurn creates a single-part user turn.
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// NewAssistantTurn creates a single-part assistant turn.
func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Parts: []Part{{Text: text}}}
}

// Text joins the turn's parts into one string.
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// =============================================================================
// Turn Request / Response Types
// =============================================================================

// TurnRequest is the body of POST /v1/chat/message: one new user message
// plus the caller's view of the prior conversation.
//
// # Fields
//
//   - Text: Required. The new user message. Must be non-empty after trim
//     and at most 32KB.
//   - History: Optional. Ordered prior turns, oldest first. The server
//     treats this as the authoritative transcript for this turn and
//     compacts it before calling the language backend.
//   - ChatID: Optional. Absent or empty means "start a new conversation";
//     the server allocates an identifier and returns it. Present means
//     "continue conversation ChatID".
//
// # Validation
//
// Uses go-playground/validator with the custom "notblank" and "maxbytes"
// validators registered in this package.
type TurnRequest struct {
	Text    string `json:"text" validate:"required,notblank,maxbytes"`
	History []Turn `json:"history" validate:"omitempty,max=200,dive"`
	ChatID  string `json:"chatId" validate:"omitempty,max=120"`
}

// Validate validates the TurnRequest fields. Call after binding JSON.
func (r *TurnRequest) Validate() error {
	return chatValidate.Struct(r)
}

// TurnResponse is the success body of POST /v1/chat/message.
//
// ChatID echoes the request's conversation id when continuing, or carries
// the newly allocated id when the request started a new conversation.
type TurnResponse struct {
	Text   string `json:"text"`
	ChatID string `json:"chatId"`
}

// ErrorResponse is the failure body for all endpoints. Message is always a
// fixed, generic string; internal error detail is logged server-side only.
type ErrorResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// Profile Types
// =============================================================================

// ProfileRequest is the body of POST /v1/profile. All fields must be
// non-empty after trimming.
type ProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,notblank"`
	LastName  string `json:"lastName" validate:"required,notblank"`
	Gender    string `json:"gender" validate:"required,notblank"`
	Country   string `json:"country" validate:"required,notblank"`
}

// Validate validates the ProfileRequest fields.
func (r *ProfileRequest) Validate() error {
	return chatValidate.Struct(r)
}
