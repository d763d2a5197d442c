// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package client implements the conversational client used by the lawbot
// CLI: an ordered message timeline plus a single-flight dispatcher against
// the orchestrator's message endpoint.
//
// # Dispatch Semantics
//
// One message may be in flight at a time; Send returns ErrBusy while a
// previous turn is pending. The user's message is appended optimistically
// before the request goes out, but the history snapshot sent to the server
// is taken BEFORE that append: the server adds the new message itself and
// must not receive it twice.
//
// A failed turn never loses the user's message: the timeline keeps it and
// gains a fixed apology reply instead of the assistant's answer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexhaven/lawbot/pkg/logging"
	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// Message roles on the client timeline.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// disclaimerText mirrors the orchestrator's legal disclaimer. The client
// renders it separately from the answer body, so replies are split on it.
const disclaimerText = "This communication is for informational purposes only, does not constitute legal advice, and does not create an attorney-client relationship. LawBot is an AI and may produce inaccurate information."

// apologyText is the canned assistant reply shown when a turn fails.
const apologyText = "My apologies, I am currently unable to process your request due to an internal error."

// ErrBusy is returned by Send while a previous message is still in flight.
var ErrBusy = errors.New("client: a message is already in flight")

// =============================================================================
// Timeline Types
// =============================================================================

// MessageContent is the content of a timeline message: either plain text or
// an assistant answer annotated with the legal disclaimer.
type MessageContent interface {
	// Body returns the primary text of the content.
	Body() string

	isMessageContent()
}

// TextContent is plain message text: user messages and error replies.
type TextContent struct {
	Text string
}

// Body implements the MessageContent interface.
func (t TextContent) Body() string { return t.Text }

func (TextContent) isMessageContent() {}

// AnnotatedContent is an assistant answer with the disclaimer carried
// alongside the body so presentation can style the two independently.
type AnnotatedContent struct {
	Main       string
	Disclaimer string
}

// Body implements the MessageContent interface.
func (a AnnotatedContent) Body() string { return a.Main }

func (AnnotatedContent) isMessageContent() {}

// Attachment references a file attached to a user message. The file itself
// is not uploaded; only its reference travels with the message.
type Attachment struct {
	URL  string
	Name string
	Kind string
}

// Message is one entry in the client timeline.
type Message struct {
	ID         string
	Role       string
	Content    MessageContent
	Attachment *Attachment
	Timestamp  time.Time
}

// =============================================================================
// Credentials
// =============================================================================

// CredentialSource supplies the bearer credential for each request. Tokens
// may expire; the dispatcher asks for a fresh one per send.
type CredentialSource interface {
	IDToken(ctx context.Context) (string, error)
}

// StaticCredential is a CredentialSource wrapping a fixed token.
type StaticCredential string

// IDToken implements the CredentialSource interface.
func (s StaticCredential) IDToken(context.Context) (string, error) {
	if s == "" {
		return "", errors.New("client: no credential configured")
	}
	return string(s), nil
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher owns one conversation's client state: the message timeline,
// the server-assigned conversation id, and the in-flight flag.
//
// Safe for concurrent use; concurrent Sends beyond the first fail fast
// with ErrBusy rather than queueing.
type Dispatcher struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialSource
	logger      *logging.Logger

	mu       sync.Mutex
	messages []Message
	chatID   string
	loading  bool
}

// NewDispatcher creates a dispatcher for the orchestrator at baseURL.
// logger may be nil.
func NewDispatcher(baseURL string, credentials CredentialSource, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		credentials: credentials,
		logger:      logger,
	}
}

// Send dispatches one user message and blocks until the reply (or the
// apology placeholder) has been appended to the timeline.
//
// The returned Message is the assistant entry that was appended. The error
// reports why a turn degraded to the apology reply; the timeline is already
// consistent either way, so callers may ignore it.
func (d *Dispatcher) Send(ctx context.Context, text string, attachment *Attachment) (Message, error) {
	d.mu.Lock()
	if d.loading {
		d.mu.Unlock()
		return Message{}, ErrBusy
	}

	body := text
	if body == "" && attachment != nil {
		body = "Review file: " + attachment.Name
	}

	// History snapshot excludes the message being sent; the server appends
	// it on its side.
	history := d.historyLocked()
	chatID := d.chatID

	d.messages = append(d.messages, Message{
		ID:         uuid.NewString(),
		Role:       RoleUser,
		Content:    TextContent{Text: body},
		Attachment: attachment,
		Timestamp:  time.Now(),
	})
	d.loading = true
	d.mu.Unlock()

	resp, err := d.postTurn(ctx, &datatypes.TurnRequest{
		Text:    body,
		History: history,
		ChatID:  chatID,
	})

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false

	if err != nil {
		d.logger.Error("Message dispatch failed", "error", err)
		reply := Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Content:   TextContent{Text: apologyText},
			Timestamp: time.Now(),
		}
		d.messages = append(d.messages, reply)
		return reply, err
	}

	reply := Message{
		ID:   uuid.NewString(),
		Role: RoleAssistant,
		Content: AnnotatedContent{
			Main:       strings.TrimSpace(strings.Replace(resp.Text, disclaimerText, "", 1)),
			Disclaimer: disclaimerText,
		},
		Timestamp: time.Now(),
	}
	d.messages = append(d.messages, reply)

	if resp.ChatID != "" && resp.ChatID != d.chatID {
		d.logger.Info("Conversation id assigned", "chat_id", resp.ChatID)
		d.chatID = resp.ChatID
	}
	return reply, nil
}

// historyLocked projects the timeline into wire turns. Annotated replies
// contribute their body only; disclaimers and apology texts are client
// artifacts, but apology entries still travel so the model sees the gap.
func (d *Dispatcher) historyLocked() []datatypes.Turn {
	history := make([]datatypes.Turn, 0, len(d.messages))
	for _, msg := range d.messages {
		if msg.Role == RoleUser {
			history = append(history, datatypes.NewUserTurn(msg.Content.Body()))
			continue
		}
		history = append(history, datatypes.NewAssistantTurn(msg.Content.Body()))
	}
	return history
}

// postTurn performs the HTTP exchange with the orchestrator.
func (d *Dispatcher) postTurn(ctx context.Context, req *datatypes.TurnRequest) (*datatypes.TurnResponse, error) {
	token, err := d.credentials.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching credential: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", d.baseURL+"/v1/chat/message", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusOK {
		var errBody datatypes.ErrorResponse
		if json.Unmarshal(bodyBytes, &errBody) == nil && errBody.Message != "" {
			return nil, fmt.Errorf("server returned status %d: %s", httpResp.StatusCode, errBody.Message)
		}
		return nil, fmt.Errorf("server returned status %d", httpResp.StatusCode)
	}

	var resp datatypes.TurnResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

// =============================================================================
// Accessors
// =============================================================================

// Messages returns a copy of the timeline.
func (d *Dispatcher) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// ChatID returns the server-assigned conversation id, empty until the
// first successful turn.
func (d *Dispatcher) ChatID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chatID
}

// Loading reports whether a message is currently in flight.
func (d *Dispatcher) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Clear resets the timeline and conversation id, starting a fresh
// conversation. A pending send keeps its in-flight flag.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = nil
	d.chatID = ""
}
