// Copyright (C) 2025 Finch Voice Labs (dev@finchvoice.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"github.com/finchvoice/relay/pkg/config"
	"github.com/finchvoice/relay/services/relay/assistant"
	"github.com/finchvoice/relay/services/relay/engine"
	"github.com/finchvoice/relay/services/relay/guardrail"
	"github.com/finchvoice/relay/services/relay/observability"
	"github.com/finchvoice/relay/services/relay/pipeline"
	"github.com/finchvoice/relay/services/relay/realtime"
	"github.com/finchvoice/relay/services/relay/routes"
	"github.com/finchvoice/relay/services/relay/speech"
	"github.com/finchvoice/relay/services/relay/threads"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// initTracer wires the OTLP exporter when a collector endpoint is
// configured. Tracing is optional; without an endpoint the default no-op
// tracer provider stays in place.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
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
		resource.WithAttributes(semconv.ServiceNameKey.String("relay-service")))
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

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open the database: %v", err)
	}
	defer db.Close()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(startupCtx); err != nil {
		log.Fatalf("failed to reach the database: %v", err)
	}

	store, err := threads.NewSQLStore(startupCtx, db, cfg.ThreadsTable)
	if err != nil {
		log.Fatalf("failed to initialize the thread store: %v", err)
	}

	vocab, err := guardrail.LoadVocabulary(cfg.GuardrailVocabPath)
	if err != nil {
		log.Fatalf("failed to load the guardrail vocabulary: %v", err)
	}
	filter, err := guardrail.New(guardrail.Mode(cfg.GuardrailMode), vocab)
	if err != nil {
		log.Fatalf("failed to build the guardrail filter: %v", err)
	}

	// The SDK client is stateless; one instance backs the assistant
	// platform, speech synthesis, and nothing else.
	sdkClient := openai.NewClient(cfg.OpenAIKey)
	platform := assistant.NewOpenAIClient(sdkClient, cfg.AssistantID)

	registry := threads.NewRegistry(store, platform)
	runEngine := engine.New(platform, cfg.RunPollInterval, cfg.RunTimeout)
	synth := speech.NewOpenAISynthesizer(sdkClient, cfg.TTSModel, cfg.TTSVoice)
	minter := realtime.NewTokenMinter(cfg.OpenAIKey, cfg.RealtimeModel, cfg.RealtimeVoice,
		cfg.RealtimeInstructions)

	orchestrator := pipeline.NewOrchestrator(filter, registry, runEngine, platform, synth,
		pipeline.Options{
			RetrievalEnabled:      cfg.VectorStoreID != "",
			FallbackMinReplyChars: cfg.FallbackMinReplyChars,
			SpeechMinChars:        cfg.SpeechMinChars,
			ClarifyBeforeFallback: cfg.FallbackStrategy == config.FallbackClarify,
			ClarifyPrompt:         cfg.ClarifyPrompt,
		})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(otelgin.Middleware("relay-service"))
	routes.SetupRoutes(router, orchestrator, minter, cfg.IsDevelopment())

	slog.Info("Starting the relay service",
		"port", cfg.Port,
		"retrieval_enabled", cfg.VectorStoreID != "",
		"guardrail_mode", cfg.GuardrailMode,
		"environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
