// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhaven/lawbot/services/auth"
	"github.com/lexhaven/lawbot/services/llm"
	"github.com/lexhaven/lawbot/services/orchestrator/conversation"
	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
	"github.com/lexhaven/lawbot/services/orchestrator/services"
	"github.com/lexhaven/lawbot/services/store"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.Client.
type mockLLMClient struct{}

func (m *mockLLMClient) Chat(_ context.Context, _ []llm.Message, _ llm.Params) (string, error) {
	return "A lease is a binding contract.\n\n" + services.DisclaimerText, nil
}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.Params) (string, error) {
	return "Lease Question Help", nil
}

// newTestServer wires the full production stack over an in-memory store.
func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	badger, err := store.NewInMemoryBadgerStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = badger.Close() })

	adapter := services.NewCompletionAdapter(&mockLLMClient{})
	allocator := conversation.NewAllocator(adapter, badger, nil)
	compactor, err := conversation.NewCompactor(conversation.DefaultMaxRecentTurns)
	require.NoError(t, err)

	turnService := services.NewTurnService(badger, adapter, allocator, compactor, nil)
	verifier := auth.NewStaticVerifier(map[string]string{"valid-token": "alice@example.com"})

	router := gin.New()
	SetupRoutes(router, verifier, turnService)
	return router
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ============================================================================
// Route Registration
// ============================================================================

func TestSetupRoutes_OpenEndpoints(t *testing.T) {
	router := newTestServer(t)

	w := doJSON(router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_V1RequiresAuth(t *testing.T) {
	router := newTestServer(t)

	for _, probe := range []struct{ method, path string }{
		{"POST", "/v1/chat/message"},
		{"GET", "/v1/chats"},
		{"GET", "/v1/chats/some-id"},
		{"DELETE", "/v1/chats/some-id"},
		{"POST", "/v1/profile"},
	} {
		w := doJSON(router, probe.method, probe.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s must require auth", probe.method, probe.path)
	}
}

// ============================================================================
// End-to-End Conversation Flow
// ============================================================================

func TestConversationLifecycle(t *testing.T) {
	router := newTestServer(t)

	// First turn: new conversation.
	w := doJSON(router, "POST", "/v1/chat/message", "valid-token", datatypes.TurnRequest{
		Text: "What is a lease?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var turn datatypes.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn))
	assert.Equal(t, "Lease-Question-Help", turn.ChatID, "title is sanitized into the identifier")
	assert.Equal(t, "A lease is a binding contract.", turn.Text, "disclaimer is stripped from the reply")

	// Second turn: continue with the returned identifier.
	w = doJSON(router, "POST", "/v1/chat/message", "valid-token", datatypes.TurnRequest{
		Text: "Can it be verbal?",
		History: []datatypes.Turn{
			datatypes.NewUserTurn("What is a lease?"),
			datatypes.NewAssistantTurn(turn.Text),
		},
		ChatID: turn.ChatID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The transcript now holds both exchanges.
	w = doJSON(router, "GET", "/v1/chats/"+turn.ChatID, "valid-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conv datatypes.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "Lease-Question-Help", conv.Title)
	assert.Len(t, conv.Messages, 4)

	// It shows up in the listing.
	w = doJSON(router, "GET", "/v1/chats", "valid-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Chats []datatypes.ConversationSummary `json:"chats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Chats, 1)
	assert.Equal(t, 4, listing.Chats[0].MessageCount)

	// Delete it and confirm it is gone.
	w = doJSON(router, "DELETE", "/v1/chats/"+turn.ChatID, "valid-token", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/v1/chats/"+turn.ChatID, "valid-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
