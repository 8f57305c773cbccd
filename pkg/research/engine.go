package research

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Engine defaults; all tunable per instance.
const (
	DefaultMaxIterations      = 3
	DefaultMinQualityScore    = 85.0
	DefaultMaxGapsAllowed     = 3
	DefaultMaxGapQueries      = 4
	DefaultMaxResultsPerQuery = 5

	// Gaps at or above this priority count against the convergence check.
	highPriorityThreshold = 7
)

// Engine drives the bounded research loop: initial search round, synthesis,
// quality scoring, gap detection, and gap-filling rounds until convergence
// or budget exhaustion. One Engine may serve concurrent runs; all per-run
// state lives in a ResearchState created inside Research.
type Engine struct {
	Searcher    Searcher
	Synthesizer Synthesizer

	// Store, when set, supplies sources from a previous run of the same
	// subject. Finance, when set, suppresses the financial gap categories
	// once it confirms API data for the profile's ticker.
	Store   RunStore
	Finance FinancialSource

	Logger        *slog.Logger
	OnStateUpdate func(state ResearchState)

	MaxIterations      int
	MinQualityScore    float64
	MaxGapsAllowed     int
	MaxGapQueries      int
	MaxResultsPerQuery int
}

func NewEngine(searcher Searcher, synth Synthesizer) *Engine {
	return &Engine{
		Searcher:           searcher,
		Synthesizer:        synth,
		Logger:             slog.Default(),
		MaxIterations:      DefaultMaxIterations,
		MinQualityScore:    DefaultMinQualityScore,
		MaxGapsAllowed:     DefaultMaxGapsAllowed,
		MaxGapQueries:      DefaultMaxGapQueries,
		MaxResultsPerQuery: DefaultMaxResultsPerQuery,
	}
}

// ResearchCompany runs the full loop for a company name.
func (e *Engine) ResearchCompany(ctx context.Context, company string, profile *Profile, depth Depth, strategy Strategy) Result {
	return e.research(ctx, company, profile, depth, strategy)
}

// ResearchTopic runs the full loop for a free-form topic. Topics have no
// ticker, so the financial suppression set never applies.
func (e *Engine) ResearchTopic(ctx context.Context, topic string, depth Depth, strategy Strategy) Result {
	return e.research(ctx, topic, nil, depth, strategy)
}

func (e *Engine) research(ctx context.Context, subject string, profile *Profile, depth Depth, strategy Strategy) Result {
	start := time.Now()
	log := e.Logger.With("subject", subject)
	log.Info("Starting research run", "depth", depth, "strategy", strategy)

	st := ResearchState{
		Subject:       subject,
		MaxIterations: e.MaxIterations,
		QueryHistory:  make(map[string]bool),
	}
	e.notify(&st)

	// Initial round.
	initial := GenerateInitialQueries(subject, profile, depth, strategy, st.QueryHistory)
	log.Info("Generated initial queries", "count", len(initial))
	e.runSearches(ctx, &st, initial, strategy)

	// Seed from a previous run of the same subject when the store deems it
	// fresh enough. Failures here are not fatal.
	e.mergePreviousSources(ctx, &st, log)
	e.notify(&st)

	// The financial suppression set is computed once per run.
	skip := e.financialSkipSet(ctx, profile)

	var usage TokenUsage
	synth, err := e.Synthesizer.Synthesize(ctx, subject, profile, st.Sources)
	if err != nil {
		log.Error("Synthesis failed", "error", err)
		return failedResult(subject, err, start)
	}
	usage = addUsage(usage, synth.Usage)
	st.Report = synth.Text
	st.Quality = CalculateQualityScore(st.Report, len(st.Sources))
	log.Info("Initial synthesis complete", "quality", st.Quality, "sources", len(st.Sources))
	e.notify(&st)

	// Gap-filling rounds.
	for st.Iteration < e.MaxIterations {
		gaps := DetectGaps(st.Report, skip)
		st.Gaps = gaps

		if st.Quality >= e.MinQualityScore && CountHighPriorityGaps(gaps, highPriorityThreshold) <= e.MaxGapsAllowed {
			log.Info("Research converged", "quality", st.Quality, "gaps", len(gaps))
			break
		}
		if len(gaps) == 0 {
			log.Info("No gaps detected, stopping")
			break
		}

		st.Iteration++
		gapQueries := GenerateGapQueries(subject, profile, gaps, e.MaxGapQueries, st.QueryHistory)
		if len(gapQueries) == 0 {
			log.Info("No new gap queries could be generated, stopping", "iteration", st.Iteration)
			break
		}
		st.TotalGapQueries += len(gapQueries)
		log.Info("Gap-filling round", "iteration", st.Iteration, "gaps", gaps, "queries", len(gapQueries))

		e.runSearches(ctx, &st, gapQueries, strategy)
		e.notify(&st)

		synth, err = e.Synthesizer.Synthesize(ctx, subject, profile, st.Sources)
		if err != nil {
			log.Error("Synthesis failed", "iteration", st.Iteration, "error", err)
			return failedResult(subject, err, start)
		}
		usage = addUsage(usage, synth.Usage)
		st.Report = synth.Text
		st.Quality = CalculateQualityScore(st.Report, len(st.Sources))
		e.notify(&st)
	}

	// Final pass for reporting only; never triggers another round.
	st.Gaps = DetectGaps(st.Report, skip)
	log.Info("Research run finished",
		"quality", st.Quality,
		"iterations", st.Iteration,
		"sources", len(st.Sources),
		"remaining_gaps", len(st.Gaps),
		"duration", time.Since(start))

	return Result{
		Subject:    subject,
		Success:    true,
		Report:     st.Report,
		Quality:    st.Quality,
		Sources:    st.Sources,
		Iterations: st.Iteration,
		Gaps:       st.Gaps,
		Usage:      usage,
		Duration:   time.Since(start),
	}
}

// runSearches executes queries sequentially, one await at a time, so a
// burst of queries cannot trip a provider's rate limit. Results merge into
// the cumulative set, deduplicated by URL.
func (e *Engine) runSearches(ctx context.Context, st *ResearchState, queries []Query, strategy Strategy) {
	for _, q := range queries {
		if ctx.Err() != nil {
			return
		}
		results := e.Searcher.Search(ctx, q.Text, e.MaxResultsPerQuery, strategy)
		added := mergeSources(st, results)
		e.Logger.Debug("Query executed", "query", q.Text, "category", q.Category, "results", len(results), "new", added)
	}
}

func (e *Engine) mergePreviousSources(ctx context.Context, st *ResearchState, log *slog.Logger) {
	if e.Store == nil {
		return
	}
	prev, err := e.Store.PreviousRun(ctx, st.Subject)
	if err != nil {
		log.Warn("Could not load previous run", "error", err)
		return
	}
	if prev == nil {
		return
	}
	added := mergeSources(st, prev.Sources)
	log.Info("Merged sources from previous run", "added", added, "quality", prev.Quality, "age", time.Since(prev.CreatedAt))
}

func (e *Engine) financialSkipSet(ctx context.Context, profile *Profile) map[string]bool {
	if e.Finance == nil || profile == nil || profile.Ticker == "" {
		return nil
	}
	if !e.Finance.HasData(ctx, profile.Ticker) {
		return nil
	}
	e.Logger.Info("Financial API data available, suppressing financial gap categories", "ticker", profile.Ticker)
	return FinancialAPIGapSet
}

func (e *Engine) notify(st *ResearchState) {
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(*st)
	}
}

// mergeSources appends results not already present by URL and returns how
// many were added. Results without a URL are keyed by title instead.
func mergeSources(st *ResearchState, results []SearchResult) int {
	seen := make(map[string]bool, len(st.Sources))
	for _, s := range st.Sources {
		seen[sourceKey(s)] = true
	}
	added := 0
	for _, r := range results {
		key := sourceKey(r)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		st.Sources = append(st.Sources, r)
		added++
	}
	return added
}

func sourceKey(r SearchResult) string {
	if r.URL != "" {
		return strings.ToLower(r.URL)
	}
	return strings.ToLower(strings.TrimSpace(r.Title))
}

func failedResult(subject string, err error, start time.Time) Result {
	return Result{
		Subject:  subject,
		Success:  false,
		Err:      err.Error(),
		Duration: time.Since(start),
	}
}

func addUsage(a, b TokenUsage) TokenUsage {
	return TokenUsage{Input: a.Input + b.Input, Output: a.Output + b.Output}
}
