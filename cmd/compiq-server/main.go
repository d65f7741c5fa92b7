package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/compiq/compiq/internal/comps"
	"github.com/compiq/compiq/internal/config"
	"github.com/compiq/compiq/internal/httpapi"
	"github.com/compiq/compiq/internal/observability"
	"github.com/compiq/compiq/internal/store"
)

func main() {
	addr := flag.String("addr", "", "Listen address (overrides COMPIQ_HTTP_ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides COMPIQ_DB_PATH)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	caller, err := comps.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	embedder, err := comps.NewOpenAIEmbedderFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	exec := comps.NewReasoningExecutor(caller)
	controller := comps.NewController(
		comps.NewLLMProfileBuilder(exec),
		comps.NewLLMGenerator(exec, comps.DefaultCandidatesPerRound),
		comps.NewValidator(comps.NewLLMCheckRunner(exec), comps.DefaultBusinessModelThreshold, comps.DefaultValidateChunkSize),
		comps.NewEmbeddingScorer(embedder, comps.DefaultScoreWeights()),
	)
	controller.SetStore(st)

	defaultCfg := comps.SearchConfig{
		MinRequired: cfg.MinRequired,
		MaxResults:  cfg.MaxResults,
		MaxAttempts: cfg.MaxAttempts,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(controller, st, defaultCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("compiq server listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
