// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/lexhaven/lawbot/services/auth"
	"github.com/lexhaven/lawbot/services/llm"
	"github.com/lexhaven/lawbot/services/orchestrator/conversation"
	"github.com/lexhaven/lawbot/services/orchestrator/observability"
	"github.com/lexhaven/lawbot/services/orchestrator/routes"
	"github.com/lexhaven/lawbot/services/orchestrator/services"
	"github.com/lexhaven/lawbot/services/store"
)

// initTracer sets up OTLP trace export. Tracing is optional: without
// OTEL_EXPORTER_OTLP_ENDPOINT the service runs with the no-op provider.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}

	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("lawbot-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// badgerPath returns the Badger data directory from BADGER_PATH, with a
// logged default.
func badgerPath() string {
	path := os.Getenv("BADGER_PATH")
	if path == "" {
		path = "/data/lawbot"
		slog.Warn("BADGER_PATH not set, defaulting to /data/lawbot")
	}
	return path
}

// newStore builds the conversation store from STORE_BACKEND_TYPE.
func newStore(ctx context.Context) (store.ConversationStore, error) {
	switch os.Getenv("STORE_BACKEND_TYPE") {
	case "firestore":
		slog.Info("Using Firestore conversation store")
		return store.NewFirestoreStore(ctx, os.Getenv("FIRESTORE_PROJECT_ID"))
	case "badger", "":
		return store.NewBadgerStore(badgerPath())
	default:
		slog.Warn("STORE_BACKEND_TYPE invalid, defaulting to badger")
		return store.NewBadgerStore(badgerPath())
	}
}

// newVerifier builds the identity verifier from AUTH_BACKEND_TYPE.
func newVerifier(ctx context.Context) (auth.Verifier, error) {
	switch os.Getenv("AUTH_BACKEND_TYPE") {
	case "static", "local":
		token := os.Getenv("LOCAL_AUTH_TOKEN")
		if token == "" {
			// An empty token can never authenticate; starting up anyway
			// would leave every request rejected.
			return nil, fmt.Errorf("LOCAL_AUTH_TOKEN must be set when AUTH_BACKEND_TYPE is static")
		}
		principal := os.Getenv("LOCAL_AUTH_PRINCIPAL")
		if principal == "" {
			principal = "local-user@localhost"
		}
		slog.Warn("Using static auth backend; do not use in production",
			"principal", principal)
		return auth.NewStaticVerifier(map[string]string{token: principal}), nil
	default:
		slog.Info("Using Firebase auth backend")
		return auth.NewFirebaseVerifier(ctx)
	}
}

// newLLMClient builds the completion backend from LLM_BACKEND_TYPE.
func newLLMClient() (llm.Client, error) {
	switch os.Getenv("LLM_BACKEND_TYPE") {
	case "openai":
		slog.Info("Using OpenAI completion backend")
		return llm.NewOpenAIClient()
	case "claude", "anthropic":
		slog.Info("Using Anthropic (Claude) completion backend")
		return llm.NewAnthropicClient()
	case "gemini", "":
		slog.Info("Using Gemini completion backend")
		return llm.NewGeminiClient()
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to gemini")
		return llm.NewGeminiClient()
	}
}

func main() {
	port := os.Getenv("LAWBOT_PORT")
	if port == "" {
		port = "8080"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	ctx := context.Background()

	convStore, err := newStore(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize the conversation store: %v", err)
	}
	defer convStore.Close()

	verifier, err := newVerifier(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize the auth verifier: %v", err)
	}

	llmClient, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	compactor, err := conversation.NewCompactor(conversation.DefaultMaxRecentTurns)
	if err != nil {
		log.Fatalf("Failed to initialize the history compactor: %v", err)
	}

	metrics := observability.InitMetrics()
	adapter := services.NewCompletionAdapter(llmClient)
	allocator := conversation.NewAllocator(adapter, convStore, metrics)
	turnService := services.NewTurnService(convStore, adapter, allocator, compactor, metrics)

	router := gin.Default()
	router.Use(otelgin.Middleware("lawbot-orchestrator"))

	routes.SetupRoutes(router, verifier, turnService)

	log.Println("Starting the orchestrator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
