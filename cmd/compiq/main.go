package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/compiq/compiq/internal/comps"
	"github.com/compiq/compiq/internal/config"
	"github.com/compiq/compiq/internal/observability"
	"github.com/compiq/compiq/internal/render"
	"github.com/compiq/compiq/internal/store"
)

func main() {
	name := flag.String("name", "", "Target company name")
	description := flag.String("description", "", "Target business description")
	homepage := flag.String("homepage", "", "Target homepage URL")
	industry := flag.String("industry-code", "", "Industry classification code")
	minRequired := flag.Int("min", 0, "Minimum comparables before stopping (default from env)")
	maxResults := flag.Int("max-results", 0, "Maximum comparables returned (default from env)")
	maxAttempts := flag.Int("attempts", 0, "Maximum broadening rounds (default from env)")
	csvPath := flag.String("csv", "", "Write ranked comparables to this CSV file")
	pdfPath := flag.String("pdf", "", "Render the report to this PDF file")
	noCache := flag.Bool("no-cache", false, "Skip the session cache and persistence")
	flag.Parse()

	_ = godotenv.Load()

	if *name == "" || *description == "" {
		log.Fatal("both -name and -description are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

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
	controller.SetProgress(func(round, accepted int, status comps.SessionStatus) {
		log.Printf("round %d complete: %d comparables accepted (%s)", round, accepted, status)
	})

	if !*noCache {
		st, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()
		controller.SetStore(st)
	}

	searchCfg := comps.SearchConfig{
		MinRequired: pick(*minRequired, cfg.MinRequired),
		MaxResults:  pick(*maxResults, cfg.MaxResults),
		MaxAttempts: pick(*maxAttempts, cfg.MaxAttempts),
	}

	session, err := controller.Run(ctx, comps.TargetInput{
		Name:         *name,
		Description:  *description,
		Homepage:     *homepage,
		IndustryCode: *industry,
	}, searchCfg)
	if err != nil {
		log.Fatal(err)
	}

	env := comps.BuildResponse(session)
	fmt.Println(env.ReportMarkdown)

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			log.Fatal(err)
		}
		if err := render.WriteCSV(f, env, true); err != nil {
			f.Close()
			log.Fatal(err)
		}
		f.Close()
		log.Printf("wrote %s", *csvPath)
	}

	if *pdfPath != "" {
		pdf, err := render.NewChromiumPDFRenderer().Render(ctx, env)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", *pdfPath)
	}
}

func pick(flagVal, envVal int) int {
	if flagVal > 0 {
		return flagVal
	}
	return envVal
}
