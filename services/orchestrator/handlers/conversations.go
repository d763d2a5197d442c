// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
	"github.com/lexhaven/lawbot/services/orchestrator/middleware"
	"github.com/lexhaven/lawbot/services/store"
)

const msgConversationNotFound = "Conversation not found"

// ConversationDirectory exposes read and delete access to a principal's
// stored conversations.
type ConversationDirectory interface {
	ListConversations(ctx context.Context, principal string) ([]datatypes.ConversationSummary, error)
	GetConversation(ctx context.Context, principal, chatID string) (*datatypes.Conversation, error)
	DeleteConversation(ctx context.Context, principal, chatID string) error
}

// HandleListChats handles GET /v1/chats. Returns summaries only; full
// transcripts are fetched per conversation.
func HandleListChats(dir ConversationDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.GetPrincipal(c)
		if principal == "" {
			c.JSON(http.StatusUnauthorized, datatypes.ErrorResponse{Message: msgTokenInvalid})
			return
		}

		summaries, err := dir.ListConversations(c.Request.Context(), principal)
		if err != nil {
			slog.Error("Failed to list conversations", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Message: msgInternalError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"chats": summaries})
	}
}

// HandleGetChat handles GET /v1/chats/:chatId.
func HandleGetChat(dir ConversationDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.GetPrincipal(c)
		if principal == "" {
			c.JSON(http.StatusUnauthorized, datatypes.ErrorResponse{Message: msgTokenInvalid})
			return
		}

		chatID := c.Param("chatId")
		conv, err := dir.GetConversation(c.Request.Context(), principal, chatID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Message: msgConversationNotFound})
			return
		}
		if err != nil {
			slog.Error("Failed to load conversation", "chat_id", chatID, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Message: msgInternalError})
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

// HandleDeleteChat handles DELETE /v1/chats/:chatId.
func HandleDeleteChat(dir ConversationDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.GetPrincipal(c)
		if principal == "" {
			c.JSON(http.StatusUnauthorized, datatypes.ErrorResponse{Message: msgTokenInvalid})
			return
		}

		chatID := c.Param("chatId")
		err := dir.DeleteConversation(c.Request.Context(), principal, chatID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Message: msgConversationNotFound})
			return
		}
		if err != nil {
			slog.Error("Failed to delete conversation", "chat_id", chatID, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Message: msgInternalError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "chatId": chatID})
	}
}
