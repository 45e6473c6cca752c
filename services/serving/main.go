// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/driftgate/services/drift"
	"github.com/AleutianAI/driftgate/services/registry"
	"github.com/AleutianAI/driftgate/services/serving/handlers"
	"github.com/AleutianAI/driftgate/services/serving/middleware"
	"github.com/AleutianAI/driftgate/services/serving/observability"
	"github.com/AleutianAI/driftgate/services/serving/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
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
		resource.WithAttributes(semconv.ServiceNameKey.String("driftgate-serving")))
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

func loadStats() *drift.Store {
	statsPath := os.Getenv("DRIFTGATE_STATS_PATH")
	if statsPath == "" {
		slog.Info("DRIFTGATE_STATS_PATH not set, using built-in reference statistics")
		return drift.NewStore(drift.DefaultReferenceStatistics())
	}

	stats, err := drift.LoadReferenceStatistics(statsPath)
	if err != nil {
		slog.Warn("failed to load reference statistics, using built-in defaults",
			"path", statsPath, "error", err)
		return drift.NewStore(drift.DefaultReferenceStatistics())
	}
	return drift.NewStore(stats)
}

func main() {
	port := os.Getenv("DRIFTGATE_SERVING_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	registryPath := os.Getenv("DRIFTGATE_REGISTRY_PATH")
	if registryPath == "" {
		registryPath = "driftgate.db"
	}
	reg, err := registry.OpenSQLite(registryPath)
	if err != nil {
		log.Fatalf("failed to open model registry: %v", err)
	}
	defer reg.Close()

	modelName := os.Getenv("DRIFTGATE_MODEL_NAME")
	if modelName == "" {
		modelName = "insurance_model"
	}

	// A missing model is not fatal: /health answers 503 until a model
	// shows up and someone restarts or reloads.
	holder := &handlers.ModelHolder{}
	if model, err := handlers.LoadServingModel(context.Background(), reg, modelName); err != nil {
		slog.Error("no servable model found, starting degraded", "model", modelName, "error", err)
	} else {
		holder.Set(model)
	}

	store := loadStats()
	if statsPath := os.Getenv("DRIFTGATE_STATS_PATH"); statsPath != "" {
		watcher, err := drift.NewWatcher(store, statsPath, 0)
		if err != nil {
			slog.Warn("statistics watcher unavailable", "path", statsPath, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	metrics := observability.InitMetrics()
	sinks := observability.MultiSink{observability.NewMetricsSink(metrics)}
	if os.Getenv("INFLUXDB_URL") != "" {
		history := observability.NewHistorySink()
		defer history.Close()
		sinks = append(sinks, history)
	}

	detector := drift.NewDetector(store, drift.Config{})
	monitored := []string{"AnnualPremium", "Age", "RegionID"}
	guard := drift.NewGuard(detector, monitored, sinks)

	router := gin.Default()
	router.Use(otelgin.Middleware("driftgate-serving"))

	if rps, err := strconv.ParseFloat(os.Getenv("DRIFTGATE_RATE_LIMIT"), 64); err == nil && rps > 0 {
		router.Use(middleware.RateLimit(rps, int(rps)*2))
	}

	if err := routes.SetupRoutes(router, handlers.PredictDeps{
		Holder:   holder,
		Guard:    guard,
		Detector: detector,
		Metrics:  metrics,
	}, store); err != nil {
		log.Fatalf("wiring routes: %v", err)
	}

	slog.Info("serving shell listening", "port", port, "model", modelName)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
