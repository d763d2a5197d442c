// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
	"github.com/lexhaven/lawbot/services/orchestrator/middleware"
)

const (
	msgInvalidProfile     = "Invalid or missing user data fields"
	msgProfileStored      = "User data successfully stored"
	msgProfileStoreFailed = "Internal Server Error: Could not store user data"
)

// ProfileSaver merge-writes a principal's profile document.
type ProfileSaver interface {
	SaveProfile(ctx context.Context, principal string, req *datatypes.ProfileRequest) error
}

// HandleUserProfile handles POST /v1/profile.
func HandleUserProfile(profiles ProfileSaver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.GetPrincipal(c)
		if principal == "" {
			c.JSON(http.StatusUnauthorized, datatypes.ErrorResponse{Message: msgTokenInvalid})
			return
		}

		var req datatypes.ProfileRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Message: msgInvalidProfile})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Message: msgInvalidProfile})
			return
		}

		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)
		req.Gender = strings.TrimSpace(req.Gender)
		req.Country = strings.TrimSpace(req.Country)

		if err := profiles.SaveProfile(c.Request.Context(), principal, &req); err != nil {
			slog.Error("Failed to store user profile", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Message: msgProfileStoreFailed})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": msgProfileStored, "email": principal})
	}
}
