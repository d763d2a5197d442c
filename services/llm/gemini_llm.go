// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// --- Wire types ---

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// --- Client Implementation ---

// GeminiClient talks to the Google Generative Language REST API.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// NewGeminiClient builds a client from GEMINI_API_KEY / GEMINI_MODEL.
func NewGeminiClient() (*GeminiClient, error) {
	apiKey := readAPIKey("GEMINI_API_KEY", "/run/secrets/gemini_api_key")
	if apiKey == "" {
		slog.Warn("Gemini API Key is missing.")
		return nil, fmt.Errorf("GEMINI_API_KEY is missing")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-pro-latest"
		slog.Info("GEMINI_MODEL not set, defaulting to", "model", model)
	}

	return &GeminiClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		model:      model,
		baseURL:    geminiDefaultBaseURL,
	}, nil
}

// Generate implements the Client interface.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return g.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, params)
}

// Chat implements the Client interface.
//
// System messages become the request's systemInstruction; assistant turns
// map to Gemini's "model" role.
func (g *GeminiClient) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	var contents []geminiContent
	var system *geminiContent

	for _, msg := range messages {
		switch strings.ToLower(msg.Role) {
		case RoleSystem:
			system = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
		case RoleAssistant:
			contents = append(contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		default:
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	reqPayload := geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: geminiGenerationConfig{
			Temperature: params.Temperature,
			TopP:        params.TopP,
		},
	}
	if params.MaxTokens != nil {
		reqPayload.GenerationConfig.MaxOutputTokens = *params.MaxTokens
	}

	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Sending REST request to Gemini", "model", g.model)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("gemini API error: %s - %s", apiResp.Error.Status, apiResp.Error.Message)
	}

	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("received empty content from Gemini")
	}

	var finalText strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		finalText.WriteString(part.Text)
	}

	if finalText.Len() == 0 {
		return "", fmt.Errorf("received candidates but no text parts")
	}

	return finalText.String(), nil
}
