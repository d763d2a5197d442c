// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the orchestrator service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header,
// verifies it with the configured auth.Verifier, and stores the verified
// principal in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► verifier.Verify(ctx, token)
//	   │
//	   └─► Store principal in context
//	           │
//	           ▼
//	       Handler (retrieves via GetPrincipal)
//
// Authentication runs before body validation: an unauthenticated request is
// rejected without reading or acting on its payload.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lexhaven/lawbot/services/auth"
	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// principalKey is the context key for the verified principal.
// Using a namespaced key prevents collisions with other context values.
const principalKey = "lawbot_principal"

// Rejection bodies. The missing/invalid distinction is deliberate and
// load-bearing for clients.
const (
	msgTokenMissing = "Authorization token not provided"
	msgTokenInvalid = "Unauthorized: Invalid or expired token"
)

// SetPrincipal stores the verified principal in the Gin context.
// Called by AuthMiddleware after successful verification.
func SetPrincipal(c *gin.Context, principal string) {
	c.Set(principalKey, principal)
}

// GetPrincipal retrieves the verified principal from the Gin context.
// Returns empty string if the request was not authenticated.
func GetPrincipal(c *gin.Context) string {
	if v, exists := c.Get(principalKey); exists {
		if principal, ok := v.(string); ok {
			return principal
		}
	}
	return ""
}

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// A missing credential and a failed verification produce different 401
// bodies; both abort the request before any handler runs.
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, datatypes.ErrorResponse{
				Message: msgTokenMissing,
			})
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, datatypes.ErrorResponse{
				Message: msgTokenInvalid,
			})
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

// extractBearerToken parses the Authorization header expecting the format
// "Bearer <token>". Returns empty string if the header is missing or
// malformed. The "Bearer" prefix is case-insensitive per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
