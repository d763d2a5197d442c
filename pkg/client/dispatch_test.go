// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// turnRecorder is a fake orchestrator that records incoming turn requests.
type turnRecorder struct {
	mu       sync.Mutex
	requests []datatypes.TurnRequest
	tokens   []string

	replyText string
	chatID    string
	status    int
	block     chan struct{}
}

func (r *turnRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var turn datatypes.TurnRequest
		_ = json.NewDecoder(req.Body).Decode(&turn)

		r.mu.Lock()
		r.requests = append(r.requests, turn)
		r.tokens = append(r.tokens, req.Header.Get("Authorization"))
		r.mu.Unlock()

		if r.block != nil {
			<-r.block
		}

		if r.status != 0 && r.status != http.StatusOK {
			w.WriteHeader(r.status)
			_ = json.NewEncoder(w).Encode(datatypes.ErrorResponse{Message: "Internal Server Error"})
			return
		}
		_ = json.NewEncoder(w).Encode(datatypes.TurnResponse{Text: r.replyText, ChatID: r.chatID})
	}
}

func (r *turnRecorder) recorded() []datatypes.TurnRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]datatypes.TurnRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

func newTestDispatcher(t *testing.T, rec *turnRecorder) *Dispatcher {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/v1/chat/message", rec.handler())
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewDispatcher(server.URL, StaticCredential("test-token"), nil)
}

func TestSend_AppendsUserThenAnnotatedReply(t *testing.T) {
	rec := &turnRecorder{
		replyText: "A lease is a contract.\n\n" + disclaimerText,
		chatID:    "Lease-Basics",
	}
	d := newTestDispatcher(t, rec)

	reply, err := d.Send(context.Background(), "What is a lease?", nil)
	require.NoError(t, err)

	messages := d.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "What is a lease?", messages[0].Content.Body())
	assert.Equal(t, RoleAssistant, messages[1].Role)

	annotated, ok := reply.Content.(AnnotatedContent)
	require.True(t, ok, "successful replies carry annotated content")
	assert.Equal(t, "A lease is a contract.", annotated.Main)
	assert.Equal(t, disclaimerText, annotated.Disclaimer)

	assert.Equal(t, "Lease-Basics", d.ChatID(), "the allocated id is adopted")
	assert.False(t, d.Loading())

	require.Len(t, rec.tokens, 1)
	assert.Equal(t, "Bearer test-token", rec.tokens[0])
}

func TestSend_HistorySnapshotExcludesInFlightMessage(t *testing.T) {
	rec := &turnRecorder{replyText: "answer", chatID: "Chat-1"}
	d := newTestDispatcher(t, rec)

	_, err := d.Send(context.Background(), "first", nil)
	require.NoError(t, err)
	_, err = d.Send(context.Background(), "second", nil)
	require.NoError(t, err)

	reqs := rec.recorded()
	require.Len(t, reqs, 2)

	assert.Empty(t, reqs[0].History, "first turn sends no history")
	assert.Empty(t, reqs[0].ChatID)

	// Second turn: user+assistant from the first turn, not the in-flight text.
	require.Len(t, reqs[1].History, 2)
	assert.Equal(t, "first", reqs[1].History[0].Text())
	assert.Equal(t, "answer", reqs[1].History[1].Text())
	assert.Equal(t, "Chat-1", reqs[1].ChatID, "subsequent turns carry the adopted id")
}

func TestSend_FailureKeepsUserMessageAndAppendsApology(t *testing.T) {
	rec := &turnRecorder{status: http.StatusInternalServerError}
	d := newTestDispatcher(t, rec)

	reply, err := d.Send(context.Background(), "doomed question", nil)
	require.Error(t, err)

	messages := d.Messages()
	require.Len(t, messages, 2, "the user's message survives the failure")
	assert.Equal(t, "doomed question", messages[0].Content.Body())

	text, ok := reply.Content.(TextContent)
	require.True(t, ok, "error replies are plain text")
	assert.Equal(t, apologyText, text.Text)

	assert.Empty(t, d.ChatID(), "no id is adopted from a failed turn")
	assert.False(t, d.Loading(), "the in-flight flag clears on failure")
}

func TestSend_RejectsConcurrentDispatch(t *testing.T) {
	rec := &turnRecorder{replyText: "slow answer", block: make(chan struct{})}
	d := newTestDispatcher(t, rec)

	done := make(chan error, 1)
	go func() {
		_, err := d.Send(context.Background(), "first", nil)
		done <- err
	}()

	require.Eventually(t, d.Loading, time.Second, 5*time.Millisecond)

	_, err := d.Send(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, d.Messages(), 1, "the rejected message is not appended")

	close(rec.block)
	require.NoError(t, <-done)
}

func TestSend_AttachmentOnlyMessageGetsPlaceholderText(t *testing.T) {
	rec := &turnRecorder{replyText: "reviewing"}
	d := newTestDispatcher(t, rec)

	_, err := d.Send(context.Background(), "", &Attachment{Name: "contract.pdf", Kind: "application/pdf"})
	require.NoError(t, err)

	messages := d.Messages()
	assert.Equal(t, "Review file: contract.pdf", messages[0].Content.Body())
	require.NotNil(t, messages[0].Attachment)
	assert.Equal(t, "contract.pdf", messages[0].Attachment.Name)
}

func TestClear_ResetsTimelineAndID(t *testing.T) {
	rec := &turnRecorder{replyText: "answer", chatID: "Chat-1"}
	d := newTestDispatcher(t, rec)

	_, err := d.Send(context.Background(), "first", nil)
	require.NoError(t, err)
	require.NotEmpty(t, d.ChatID())

	d.Clear()
	assert.Empty(t, d.Messages())
	assert.Empty(t, d.ChatID())

	// The next send starts a new conversation.
	_, err = d.Send(context.Background(), "fresh start", nil)
	require.NoError(t, err)
	reqs := rec.recorded()
	assert.Empty(t, reqs[len(reqs)-1].ChatID)
}

func TestStaticCredential(t *testing.T) {
	_, err := StaticCredential("").IDToken(context.Background())
	assert.Error(t, err)

	token, err := StaticCredential("abc").IDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
