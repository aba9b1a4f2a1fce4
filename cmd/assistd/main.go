// StudyHub assist service: main entry point
//
// Configuration is read from .env, the optional YAML file named by
// ASSIST_CONFIG_FILE, and the environment (see package config). The service
// runs a gRPC server on GRPC_PORT and a JSON/metrics HTTP server on HTTP_PORT.
// When REDIS_ADDR is set, finished summaries are kept in Redis.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/abdhe/studyhub-assist/pkg/assist"
	"github.com/abdhe/studyhub-assist/pkg/config"
	"github.com/abdhe/studyhub-assist/pkg/httpapi"
	"github.com/abdhe/studyhub-assist/pkg/server"
	"github.com/abdhe/studyhub-assist/pkg/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting StudyHub assist service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireInference(); err != nil {
		log.Printf("WARNING: %v (requests will report a configuration error)", err)
	}
	logger := log.Default()

	// -------------------------------------------------------------------------
	// Pipeline
	// -------------------------------------------------------------------------
	pipeline := assist.New(cfg, nil, logger)
	log.Printf("Summary models: %v, explain models: %v, cleaner: %s",
		cfg.SummaryModels, cfg.ExplainModels, cfg.CleanerVariant)

	// -------------------------------------------------------------------------
	// Summary store
	// -------------------------------------------------------------------------
	svcCfg := server.Config{Assistant: pipeline, Logger: logger}
	if cfg.RedisAddr != "" {
		summaries := store.NewSummaryStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SummaryStoreTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := summaries.Ping(ctx); err != nil {
			log.Printf("WARNING: Redis connection failed: %v (summary store disabled)", err)
			summaries.Close()
		} else {
			svcCfg.Store = summaries
			defer summaries.Close()
			log.Printf("Summary store enabled (TTL=%s)", cfg.SummaryStoreTTL)
		}
		cancel()
	} else {
		log.Println("WARNING: REDIS_ADDR not set, summary store disabled")
	}
	svc := server.NewService(svcCfg)

	// -------------------------------------------------------------------------
	// Start gRPC server
	// -------------------------------------------------------------------------
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(8*1024*1024), // post bodies can be long
	)
	server.Register(grpcServer, server.NewGRPCHandler(svc))
	reflection.Register(grpcServer)

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen on gRPC port %s: %v", cfg.GRPCPort, err)
	}

	go func() {
		log.Printf("gRPC server listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(grpcLis); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// -------------------------------------------------------------------------
	// Start HTTP server
	// -------------------------------------------------------------------------
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      httpapi.NewRouter(svc, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // a summary may walk several models with retries
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// -------------------------------------------------------------------------
	// Graceful shutdown
	// -------------------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")

	log.Println("StudyHub assist service shut down successfully")
}
