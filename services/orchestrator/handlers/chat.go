// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers provides the HTTP handlers for the orchestrator service.
//
// Handlers are thin: they bind and validate the request body, pull the
// verified principal from the context, delegate to a service, and map the
// result onto a status code. All error bodies are fixed generic strings;
// internal detail stays in logs and traces.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
	"github.com/lexhaven/lawbot/services/orchestrator/middleware"
)

var chatTracer = otel.Tracer("lawbot.orchestrator.handlers")

// Fixed error bodies. Clients and tests rely on these exact strings.
const (
	msgInvalidText   = "Invalid or missing message text"
	msgInternalError = "Internal Server Error"
	msgTokenInvalid  = "Unauthorized: Invalid or expired token"
)

// TurnProcessor runs one conversational turn for a verified principal.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, principal string, req *datatypes.TurnRequest) (*datatypes.TurnResponse, error)
}

// HandleProcessMessage handles POST /v1/chat/message.
//
// Authentication has already happened in the middleware; a request that
// reaches this handler without a principal is treated as unauthenticated
// rather than as a server bug, mirroring the middleware's response.
func HandleProcessMessage(turns TurnProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleProcessMessage")
		defer span.End()

		principal := middleware.GetPrincipal(c)
		if principal == "" {
			c.JSON(http.StatusUnauthorized, datatypes.ErrorResponse{Message: msgTokenInvalid})
			return
		}

		var req datatypes.TurnRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "malformed request body")
			slog.Error("Failed to parse the message request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Message: msgInvalidText})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("Rejected invalid message request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Message: msgInvalidText})
			return
		}

		resp, err := turns.ProcessTurn(ctx, principal, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "turn processing failed")
			slog.Error("TurnService.ProcessTurn failed", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Message: msgInternalError})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
