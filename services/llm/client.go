// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides completion backends behind a common interface.
//
// Backends are selected at process start (see cmd/orchestrator) and injected
// into the services that need them; there is no package-level singleton.
package llm

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Roles used in Message. Backends map these onto their own wire roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Params carries optional generation parameters. Nil pointers mean
// "backend default".
type Params struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
}

// Message is one role-tagged turn in backend-neutral form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the standard interface for any language-model backend.
type Client interface {
	// Chat sends an ordered message sequence and returns the reply text.
	Chat(ctx context.Context, messages []Message, params Params) (string, error)

	// Generate is the single-prompt convenience form of Chat.
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// readAPIKey resolves an API key from an environment variable, falling back
// to a container secret file.
func readAPIKey(envVar, secretPath string) string {
	key := os.Getenv(envVar)
	if key != "" {
		return key
	}
	if content, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read API key from secrets file", "path", secretPath)
		return strings.TrimSpace(string(content))
	}
	return ""
}
