package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mikeboe/company-researcher/pkg/batch"
	"github.com/mikeboe/company-researcher/pkg/cache"
	"github.com/mikeboe/company-researcher/pkg/clients"
	"github.com/mikeboe/company-researcher/pkg/config"
	"github.com/mikeboe/company-researcher/pkg/finance"
	"github.com/mikeboe/company-researcher/pkg/profile"
	"github.com/mikeboe/company-researcher/pkg/research"
	"github.com/mikeboe/company-researcher/pkg/search"
	"github.com/mikeboe/company-researcher/pkg/store"
	"github.com/spf13/cobra"
)

var (
	subject    string
	topicMode  bool
	depthFlag  string
	strategy   string
	maxIter    int
	profileDir string
	batchFile  string
	outputFile string
	workers    int
	showStats  bool
)

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "company-researcher",
		Short: "An iterative company research agent",
		Long:  `company-researcher runs an iterative research loop for a company or topic: it searches a cascade of web providers, synthesizes a report, detects information gaps and fills them until the report converges.`,
		Run: func(cmd *cobra.Command, args []string) {

			subjects, err := collectSubjects(cmd)
			if err != nil {
				slog.Error("Failed to read subjects", "error", err)
				os.Exit(1)
			}

			ctx := context.Background()
			engine, router, db, err := buildEngine(ctx, cfg)
			if err != nil {
				slog.Error("Failed to initialize engine", "error", err)
				os.Exit(1)
			}
			if db != nil {
				defer db.Close()
			}
			if maxIter > 0 {
				engine.MaxIterations = maxIter
			}

			profiles, err := profile.LoadDir(profileDir)
			if err != nil {
				slog.Error("Failed to load profiles", "error", err, "dir", profileDir)
				os.Exit(1)
			}

			run := func(ctx context.Context, subj string) research.Result {
				prof := profile.ForSubject(profiles, subj)
				if topicMode {
					return engine.ResearchTopic(ctx, subj, research.Depth(depthFlag), research.Strategy(strategy))
				}
				return engine.ResearchCompany(ctx, subj, prof, research.Depth(depthFlag), research.Strategy(strategy))
			}

			var results []research.Result
			if len(subjects) > 1 {
				slog.Info("Starting batch research", "subjects", len(subjects), "workers", workers)
				results = batch.Run(ctx, subjects, workers, run)
			} else {
				results = []research.Result{run(ctx, subjects[0])}
			}

			var runStore *store.RunStore
			if db != nil {
				runStore = store.NewRunStore(db)
			}

			failed := 0
			for _, result := range results {
				if !result.Success {
					failed++
					slog.Error("Research failed", "subject", result.Subject, "error", result.Err)
					continue
				}

				if runStore != nil {
					if _, err := runStore.SaveRun(ctx, result); err != nil {
						slog.Error("Failed to persist run", "subject", result.Subject, "error", err)
					}
				}

				path := outputFile
				if path == "" || len(results) > 1 {
					path = reportFileName(result.Subject)
				}
				if err := os.WriteFile(path, []byte(result.Report), 0o644); err != nil {
					slog.Error("Failed to write report", "subject", result.Subject, "error", err)
					continue
				}
				slog.Info("Report written",
					"subject", result.Subject,
					"file", path,
					"quality", result.Quality,
					"sources", len(result.Sources),
					"iterations", result.Iterations,
					"gaps_remaining", len(result.Gaps),
					"duration", result.Duration.Round(time.Second))
			}

			if showStats {
				printStats(router)
			}

			if failed > 0 {
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&subject, "subject", "s", "", "The company or topic to research")
	rootCmd.Flags().BoolVar(&topicMode, "topic", false, "Treat the subject as a generic topic instead of a company")
	rootCmd.Flags().StringVarP(&depthFlag, "depth", "d", "standard", "Research depth: quick, standard or comprehensive")
	rootCmd.Flags().StringVar(&strategy, "strategy", "auto", "Search strategy: auto, free_first, maximum_free, free_only or tavily_only")
	rootCmd.Flags().IntVar(&maxIter, "max-iterations", 0, "Override the gap-fill iteration limit")
	rootCmd.Flags().StringVarP(&profileDir, "profiles", "p", "profiles", "Directory with company profile YAML files")
	rootCmd.Flags().StringVarP(&batchFile, "batch", "b", "", "File with one subject per line for batch research")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Report output file (single subject only)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent research jobs in batch mode")
	rootCmd.Flags().BoolVar(&showStats, "stats", false, "Print per-provider search statistics after the run")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// collectSubjects resolves the subject list from the batch file, the
// subject flag, or interactively.
func collectSubjects(cmd *cobra.Command) ([]string, error) {
	if batchFile != "" {
		data, err := os.ReadFile(batchFile)
		if err != nil {
			return nil, err
		}
		var subjects []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			subjects = append(subjects, line)
		}
		if len(subjects) == 0 {
			return nil, fmt.Errorf("batch file %s contains no subjects", batchFile)
		}
		return subjects, nil
	}

	if cmd.Flags().Changed("subject") {
		if subject == "" {
			return nil, fmt.Errorf("--subject flag provided but empty")
		}
		return []string{subject}, nil
	}

	// Interactive Mode
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter company or topic: ")
	input, _ := reader.ReadString('\n')
	subject = strings.TrimSpace(input)
	if subject == "" {
		return nil, fmt.Errorf("subject cannot be empty")
	}
	return []string{subject}, nil
}

func buildEngine(ctx context.Context, cfg *config.Config) (*research.Engine, *search.Router, *store.PostgresDB, error) {
	llm, err := clients.GoogleAI(ctx, cfg.ReasoningModel, cfg.GoogleApiKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	synth := research.NewLLMSynthesizer(llm, slog.Default())

	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	var queryCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, ttl, slog.Default())
		if err != nil {
			slog.Warn("Redis unavailable, using in-memory cache", "error", err)
			queryCache = cache.NewMemory(ttl)
		} else {
			queryCache = redisCache
		}
	} else {
		queryCache = cache.NewMemory(ttl)
	}

	backends := search.DefaultCascade(search.Credentials{
		BraveKey:     cfg.BraveApiKey,
		MojeekKey:    cfg.MojeekApiKey,
		GoogleCSEKey: cfg.GoogleCSEKey,
		GoogleCSEID:  cfg.GoogleCSEID,
		SerpAPIKey:   cfg.SerpApiKey,
		TavilyKey:    cfg.TavilyApiKey,
		TavilyDepth:  cfg.TavilyDepth,
	})
	router := search.NewRouter(backends, search.Config{
		Cache:          queryCache,
		IncludeDomains: cfg.IncludeDomains,
		ExcludeDomains: cfg.ExcludeDomains,
		Logger:         slog.Default(),
	})

	engine := research.NewEngine(router, synth)
	engine.Finance = finance.NewClient(slog.Default())
	engine.MaxIterations = cfg.MaxIterations
	engine.MinQualityScore = cfg.MinQualityScore

	// Previous-run reuse only works with a database.
	var db *store.PostgresDB
	if cfg.DatabaseURL != "" {
		db, err = store.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		engine.Store = store.NewRunStore(db)
	}

	return engine, router, db, nil
}

func printStats(router *search.Router) {
	stats := router.Stats()
	fmt.Printf("\nSearch statistics: %d queries, %d cache hits, %d free sources, %d tavily sources\n",
		stats.TotalQueries, stats.CacheHits, stats.FreeSources, stats.TavilySources)
	for name, ps := range stats.Providers {
		fmt.Printf("  %-12s calls=%d successes=%d\n", name, ps.Calls, ps.Successes)
	}
}

func reportFileName(subject string) string {
	name := strings.ToLower(strings.TrimSpace(subject))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return "report_" + name + ".md"
}
