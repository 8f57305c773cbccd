package research

import (
	"context"
	"time"
)

// Depth controls the initial query budget.
type Depth string

const (
	DepthQuick         Depth = "quick"
	DepthStandard      Depth = "standard"
	DepthComprehensive Depth = "comprehensive"
)

// Strategy selects how the search cascade routes queries across providers.
type Strategy string

const (
	// StrategyAuto tries the paid provider first, falling back to free
	// providers on rate limits or failures.
	StrategyAuto Strategy = "auto"
	// StrategyFreeFirst cascades through the free providers and uses the
	// paid provider only as a last resort.
	StrategyFreeFirst   Strategy = "free_first"
	StrategyMaximumFree Strategy = "maximum_free"
	// StrategyFreeOnly never touches the paid provider.
	StrategyFreeOnly Strategy = "free_only"
	// StrategyTavilyOnly uses only the paid provider.
	StrategyTavilyOnly Strategy = "tavily_only"
)

// Query is a generated search query tagged with the category it targets.
type Query struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// SearchResult is a single web search hit. Results accumulate across
// iterations and are deduplicated by URL.
type SearchResult struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	Provider string  `json:"provider"`
	Query    string  `json:"query"`
}

// Profile carries optional structured context about a company, loaded from a
// YAML profile file. All fields may be empty.
type Profile struct {
	Name            string   `yaml:"name" json:"name"`
	Industry        string   `yaml:"industry" json:"industry"`
	Country         string   `yaml:"country" json:"country"`
	Ticker          string   `yaml:"ticker" json:"ticker"`
	ParentCompany   string   `yaml:"parent_company" json:"parent_company"`
	Competitors     []string `yaml:"competitors" json:"competitors"`
	PriorityQueries []string `yaml:"priority_queries" json:"priority_queries"`
}

// TokenUsage is reported by the synthesis collaborator.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Synthesis is the output of one LLM synthesis call.
type Synthesis struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// ResearchState tracks the progress of one research run. All fields are
// owned by a single run; independent runs never share a state value.
type ResearchState struct {
	Subject         string          `json:"subject"`
	Iteration       int             `json:"iteration"`
	MaxIterations   int             `json:"max_iterations"`
	TotalGapQueries int             `json:"total_gap_queries"`
	QueryHistory    map[string]bool `json:"-"`
	Sources         []SearchResult  `json:"sources"`
	Report          string          `json:"-"`
	Quality         float64         `json:"quality"`
	Gaps            []string        `json:"gaps"`
}

// Result is the final outcome of a research run, consumed by the CLI,
// server, and report writers.
type Result struct {
	Subject    string         `json:"subject"`
	Success    bool           `json:"success"`
	Report     string         `json:"report,omitempty"`
	Quality    float64        `json:"quality"`
	Sources    []SearchResult `json:"sources,omitempty"`
	Iterations int            `json:"iterations"`
	Gaps       []string       `json:"gaps,omitempty"`
	Usage      TokenUsage     `json:"usage"`
	Duration   time.Duration  `json:"duration"`
	Err        string         `json:"error,omitempty"`
}

// Searcher executes one query against the provider cascade. Implementations
// never return an error; a failed cascade yields an empty slice.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, strategy Strategy) []SearchResult
}

// Synthesizer produces the narrative report for the current iteration from
// the accumulated sources. An error from Synthesize fails the whole run.
type Synthesizer interface {
	Synthesize(ctx context.Context, subject string, profile *Profile, sources []SearchResult) (Synthesis, error)
}

// PreviousRun is a stored prior research run considered for source reuse.
type PreviousRun struct {
	Sources   []SearchResult
	Quality   float64
	CreatedAt time.Time
}

// RunStore loads prior research runs so their sources can seed a new run.
type RunStore interface {
	PreviousRun(ctx context.Context, subject string) (*PreviousRun, error)
}

// FinancialSource reports whether authoritative numeric data is available
// for a ticker. A positive answer suppresses the financial gap categories
// for the rest of the run.
type FinancialSource interface {
	HasData(ctx context.Context, ticker string) bool
}
