// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexhaven/lawbot/services/auth"
	"github.com/lexhaven/lawbot/services/orchestrator/handlers"
	"github.com/lexhaven/lawbot/services/orchestrator/middleware"
	"github.com/lexhaven/lawbot/services/orchestrator/services"
)

// SetupRoutes mounts all orchestrator routes. Everything under /v1 requires
// a verified bearer credential; /health and /metrics stay open.
func SetupRoutes(router *gin.Engine, verifier auth.Verifier, turnService *services.TurnService) {
	router.GET("/health", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(verifier))
	{
		v1.POST("/chat/message", handlers.HandleProcessMessage(turnService))
		v1.POST("/profile", handlers.HandleUserProfile(turnService))
		// Conversation administration routes
		chats := v1.Group("/chats")
		{
			chats.GET("", handlers.HandleListChats(turnService))
			chats.GET("/:chatId", handlers.HandleGetChat(turnService))
			chats.DELETE("/:chatId", handlers.HandleDeleteChat(turnService))
		}
	}
}
