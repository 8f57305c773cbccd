package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeSearcher struct {
	queries []string
	results []SearchResult
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int, strategy Strategy) []SearchResult {
	f.queries = append(f.queries, query)
	return f.results
}

// scriptedSynthesizer returns one report per call; the last entry repeats.
type scriptedSynthesizer struct {
	reports []string
	err     error
	calls   int
}

func (s *scriptedSynthesizer) Synthesize(ctx context.Context, subject string, profile *Profile, sources []SearchResult) (Synthesis, error) {
	s.calls++
	if s.err != nil {
		return Synthesis{}, s.err
	}
	idx := s.calls - 1
	if idx >= len(s.reports) {
		idx = len(s.reports) - 1
	}
	return Synthesis{Text: s.reports[idx], Usage: TokenUsage{Input: 10, Output: 5}}, nil
}

func manySources(n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		out[i] = SearchResult{
			Title: fmt.Sprintf("Source %d", i),
			URL:   fmt.Sprintf("https://example.com/%d", i),
		}
	}
	return out
}

func TestEngineConvergesWithoutGapRounds(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(20)}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	engine := NewEngine(searcher, synth)
	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)

	if !result.Success {
		t.Fatalf("run failed: %s", result.Err)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0 for a converged first synthesis", result.Iterations)
	}
	if synth.calls != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.calls)
	}
	if result.Quality < engine.MinQualityScore {
		t.Errorf("Quality = %v, want >= %v", result.Quality, engine.MinQualityScore)
	}
	if result.Usage.Input != 10 || result.Usage.Output != 5 {
		t.Errorf("Usage = %+v, want the single call's usage", result.Usage)
	}
}

func TestEngineExhaustsIterationBudget(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(3)}
	// A thin report that never improves keeps every round going.
	synth := &scriptedSynthesizer{reports: []string{"# Report\nFinancial data is not available."}}

	engine := NewEngine(searcher, synth)
	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)

	if !result.Success {
		t.Fatalf("run failed: %s", result.Err)
	}
	if result.Iterations != engine.MaxIterations {
		t.Errorf("Iterations = %d, want %d", result.Iterations, engine.MaxIterations)
	}
	// Initial synthesis plus one per gap round.
	if synth.calls != 1+engine.MaxIterations {
		t.Errorf("synthesizer called %d times, want %d", synth.calls, 1+engine.MaxIterations)
	}
	if len(result.Gaps) == 0 {
		t.Error("expected remaining gaps in the final result")
	}
}

func TestEngineStopsWhenNoNewQueries(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(20)}
	synth := &scriptedSynthesizer{reports: []string{fullReport("Market cap is not available.")}}

	engine := NewEngine(searcher, synth)
	engine.MaxIterations = 10
	engine.MinQualityScore = 101 // force gap rounds until queries run out

	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)
	if !result.Success {
		t.Fatalf("run failed: %s", result.Err)
	}
	// market_cap has two templates plus the generic fallback, so the
	// fourth round has nothing left and the run stops there.
	if result.Iterations != 4 {
		t.Errorf("Iterations = %d, want 4", result.Iterations)
	}
	if result.Iterations == engine.MaxIterations {
		t.Error("run exhausted the iteration budget instead of stopping early")
	}
}

func TestEngineSynthesisFailure(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(3)}
	synth := &scriptedSynthesizer{err: errors.New("model unavailable")}

	engine := NewEngine(searcher, synth)
	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Err, "model unavailable") {
		t.Errorf("Err = %q, want the synthesis error", result.Err)
	}
	if result.Report != "" {
		t.Errorf("Report = %q, want empty on failure", result.Report)
	}
}

func TestEngineDeduplicatesSourcesByURL(t *testing.T) {
	dup := []SearchResult{
		{Title: "A", URL: "https://example.com/page"},
		{Title: "B", URL: "HTTPS://EXAMPLE.COM/page"},
		{Title: "C", URL: "https://example.com/other"},
	}
	searcher := &fakeSearcher{results: dup}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	engine := NewEngine(searcher, synth)
	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)

	if len(result.Sources) != 2 {
		t.Errorf("got %d sources, want 2 after URL dedup", len(result.Sources))
	}
}

type fakeRunStore struct {
	prev *PreviousRun
	err  error
}

func (f *fakeRunStore) PreviousRun(ctx context.Context, subject string) (*PreviousRun, error) {
	return f.prev, f.err
}

func TestEngineMergesPreviousRunSources(t *testing.T) {
	searcher := &fakeSearcher{results: []SearchResult{{Title: "Fresh", URL: "https://example.com/fresh"}}}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	engine := NewEngine(searcher, synth)
	engine.Store = &fakeRunStore{prev: &PreviousRun{
		Sources: []SearchResult{
			{Title: "Old", URL: "https://example.com/old"},
			{Title: "Fresh again", URL: "https://example.com/fresh"},
		},
		Quality:   70,
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}}

	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)
	if len(result.Sources) != 2 {
		t.Errorf("got %d sources, want fresh + old deduplicated to 2", len(result.Sources))
	}
}

func TestEngineStoreErrorIsNotFatal(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(20)}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	engine := NewEngine(searcher, synth)
	engine.Store = &fakeRunStore{err: errors.New("db down")}

	result := engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)
	if !result.Success {
		t.Errorf("store failure should not fail the run: %s", result.Err)
	}
}

type fakeFinance struct {
	hasData bool
	asked   []string
}

func (f *fakeFinance) HasData(ctx context.Context, ticker string) bool {
	f.asked = append(f.asked, ticker)
	return f.hasData
}

func TestEngineFinancialSuppression(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(20)}
	synth := &scriptedSynthesizer{reports: []string{
		fullReport("Financial data is not available. Revenue figures are not disclosed."),
	}}

	finance := &fakeFinance{hasData: true}
	engine := NewEngine(searcher, synth)
	engine.Finance = finance

	profile := &Profile{Name: "Acme Corp", Ticker: "ACME"}
	result := engine.ResearchCompany(context.Background(), "Acme Corp", profile, DepthQuick, StrategyAuto)

	if !result.Success {
		t.Fatalf("run failed: %s", result.Err)
	}
	for _, g := range result.Gaps {
		if FinancialAPIGapSet[g] {
			t.Errorf("suppressed gap %s present in result", g)
		}
	}
	if len(finance.asked) != 1 || finance.asked[0] != "ACME" {
		t.Errorf("finance asked %v, want exactly one lookup for ACME", finance.asked)
	}
}

func TestEngineTopicModeSkipsFinance(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(20)}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	finance := &fakeFinance{hasData: true}
	engine := NewEngine(searcher, synth)
	engine.Finance = finance

	engine.ResearchTopic(context.Background(), "quantum computing", DepthQuick, StrategyAuto)
	if len(finance.asked) != 0 {
		t.Errorf("finance consulted %v in topic mode", finance.asked)
	}
}

func TestEngineStateUpdates(t *testing.T) {
	searcher := &fakeSearcher{results: manySources(5)}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	engine := NewEngine(searcher, synth)
	var updates []ResearchState
	engine.OnStateUpdate = func(st ResearchState) {
		updates = append(updates, st)
	}

	engine.ResearchCompany(context.Background(), "Acme Corp", nil, DepthQuick, StrategyAuto)
	if len(updates) < 3 {
		t.Fatalf("got %d state updates, want at least 3", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Report == "" || last.Quality == 0 {
		t.Errorf("final state update missing report or quality: %+v", last)
	}
}

func TestEngineHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{results: manySources(5)}
	synth := &scriptedSynthesizer{reports: []string{fullReport("")}}

	engine := NewEngine(searcher, synth)
	engine.ResearchCompany(ctx, "Acme Corp", nil, DepthQuick, StrategyAuto)

	if len(searcher.queries) != 0 {
		t.Errorf("searches executed after cancellation: %v", searcher.queries)
	}
}
