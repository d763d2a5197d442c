// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services provides business logic services for the orchestrator.
//
// This package contains service structs that encapsulate business logic,
// separating it from HTTP handlers. Services are responsible for:
//   - Orchestrating calls to the completion backend and the store
//   - Applying conversation rules (compaction, identifier allocation)
//   - Managing error handling around turn processing
//
// Services are designed to be:
//   - Testable: Dependencies are injected via constructors
//   - Composable: Services can call other services
//   - Traceable: All methods accept context for distributed tracing
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lexhaven/lawbot/services/llm"
	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// completionTracer is the OpenTelemetry tracer for CompletionAdapter operations.
var completionTracer = otel.Tracer("lawbot.orchestrator.services.completion")

// ErrCompletionFailed marks a completion backend failure. Handlers map it
// to a 500 response; the turn is never persisted when this is returned.
var ErrCompletionFailed = errors.New("completion backend failure")

// DisclaimerText is the legal disclaimer the model is prone to appending.
// The orchestrator strips one occurrence from every reply; presentation
// layers re-attach it separately from the answer body.
const DisclaimerText = "This communication is for informational purposes only, does not constitute legal advice, and does not create an attorney-client relationship. LawBot is an AI and may produce inaccurate information."

// maxOutputTokens bounds every conversational completion.
const maxOutputTokens = 2000

// personaPrompt is the priming instruction that fixes the assistant's
// persona, tone, output format, and its exact refusal text for non-legal
// questions. It is sent as a user/assistant exchange ahead of the real
// history because not every backend supports a dedicated system channel
// for multi-turn chats.
const personaPrompt = "You are an expert lawyer AI named LawBot. Your tone is professional, formal, and cautious. Format your responses using Markdown, including paragraphs for explanations, bullet points for lists, and numbered lists for steps to ensure clean, readable output like ChatGPT. If a user asks a question that is not legal in nature, you must respond with this exact text: 'My function is strictly limited to legal matters. I cannot provide medical advice. Please consult a qualified professional for health concerns.' Do not provide any other information or attempts to answer the non-legal query."

// personaAck is the assistant's scripted acknowledgement of personaPrompt.
const personaAck = "Understood. I am LawBot. I will maintain a professional, formal, and cautious tone, format my responses in Markdown like ChatGPT, and strictly decline non-legal queries with the provided text."

// titlePromptFormat asks the backend for a short conversation title seeded
// by the first user message.
const titlePromptFormat = `Based on the following first message of a chat, generate a concise title (max 5 words). The title should be descriptive of the conversation topic. Return only the title text, no extra formatting or punctuation.
First message: %q
Title:`

// CompletionAdapter turns domain conversation turns into backend chat
// requests. It owns the persona preamble and the output token budget, so
// callers never see backend message formats.
type CompletionAdapter struct {
	llm llm.Client
}

// NewCompletionAdapter wraps a completion backend client.
func NewCompletionAdapter(client llm.Client) *CompletionAdapter {
	return &CompletionAdapter{llm: client}
}

// Complete sends the persona preamble plus the given turns to the backend
// and returns the raw reply text.
//
// The final turn is expected to be the new user message; callers compact
// the history before handing it over.
func (c *CompletionAdapter) Complete(ctx context.Context, turns []datatypes.Turn) (string, error) {
	ctx, span := completionTracer.Start(ctx, "CompletionAdapter.Complete")
	defer span.End()
	span.SetAttributes(attribute.Int("turns.count", len(turns)))

	messages := make([]llm.Message, 0, len(turns)+2)
	messages = append(messages,
		llm.Message{Role: llm.RoleUser, Content: personaPrompt},
		llm.Message{Role: llm.RoleAssistant, Content: personaAck},
	)
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == datatypes.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text()})
	}

	maxTokens := maxOutputTokens
	reply, err := c.llm.Chat(ctx, messages, llm.Params{MaxTokens: &maxTokens})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	return reply, nil
}

// GenerateTitle implements conversation.TitleGenerator. It asks the backend
// for a short descriptive title for a conversation opened by firstMessage.
func (c *CompletionAdapter) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	ctx, span := completionTracer.Start(ctx, "CompletionAdapter.GenerateTitle")
	defer span.End()

	prompt := fmt.Sprintf(titlePromptFormat, firstMessage)
	title, err := c.llm.Generate(ctx, prompt, llm.Params{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "title generation failed")
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	return strings.TrimSpace(title), nil
}

// StripDisclaimer removes one occurrence of the legal disclaimer from a
// reply. Applied exactly once per turn so legitimate quoted text that
// happens to repeat the disclaimer survives.
func StripDisclaimer(text string) string {
	return strings.TrimSpace(strings.Replace(text, DisclaimerText, "", 1))
}
