package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/company-researcher/pkg/archive"
	"github.com/mikeboe/company-researcher/pkg/store"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// ResearchToolset exposes the stored research corpus to the chat agent:
// semantic search over archived sources, stored reports, and the run list.
type ResearchToolset struct {
	Runs    *store.RunStore
	Archive *archive.Archive
}

func NewResearchToolset(runs *store.RunStore, arc *archive.Archive) *ResearchToolset {
	return &ResearchToolset{
		Runs:    runs,
		Archive: arc,
	}
}

func (t *ResearchToolset) Name() string {
	return "research_tools"
}

func (t *ResearchToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchSourcesArgs, SearchSourcesResp](
		functiontool.Config{
			Name:        "search_sources",
			Description: "Search archived research sources using semantic search. Optionally restrict to one company or topic.",
		},
		t.searchSourcesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search_sources tool: %w", err)
	}

	reportTool, err := functiontool.New[GetReportArgs, GetReportResp](
		functiontool.Config{
			Name:        "get_report",
			Description: "Fetch the latest completed research report for a company or topic.",
		},
		t.getReportTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create get_report tool: %w", err)
	}

	listTool, err := functiontool.New[ListRunsArgs, ListRunsResp](
		functiontool.Config{
			Name:        "list_research_runs",
			Description: "List recent completed research runs with their subject, quality score and source count.",
		},
		t.listRunsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create list_research_runs tool: %w", err)
	}

	return []tool.Tool{searchTool, reportTool, listTool}, nil
}

// --- Tool Implementations ---

type SearchSourcesArgs struct {
	Query   string `json:"query" description:"The search query"`
	TopK    int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Subject string `json:"subject,omitempty" description:"Optional company or topic filter"`
}

type SearchSourcesResp struct {
	Results string `json:"results"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) searchSourcesTool(ctx tool.Context, args SearchSourcesArgs) (SearchSourcesResp, error) {
	return t.SearchSources(ctx, args)
}

// Public method using standard context
func (t *ResearchToolset) SearchSources(ctx context.Context, args SearchSourcesArgs) (SearchSourcesResp, error) {
	if t.Archive == nil {
		return SearchSourcesResp{Results: "Semantic search is not configured."}, nil
	}
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("Search sources", "query", args.Query, "topK", args.TopK, "subject", args.Subject)

	hits, err := t.Archive.Search(ctx, args.Query, args.TopK, args.Subject)
	if err != nil {
		return SearchSourcesResp{}, fmt.Errorf("failed to search archive: %w", err)
	}

	var formatted []string
	for _, hit := range hits {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[Subject]: %s\n[Title]: %s\n[URL]: %s\n[Content]: %s",
			hit.Subject, hit.Title, hit.URL, hit.Content))
		formatted = append(formatted, sb.String())
	}

	return SearchSourcesResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type GetReportArgs struct {
	Subject string `json:"subject" description:"The company or topic name"`
}

type GetReportResp struct {
	Report string `json:"report"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) getReportTool(ctx tool.Context, args GetReportArgs) (GetReportResp, error) {
	return t.GetReport(ctx, args)
}

// Public method using standard context
func (t *ResearchToolset) GetReport(ctx context.Context, args GetReportArgs) (GetReportResp, error) {
	run, err := t.Runs.LatestRun(ctx, args.Subject)
	if err != nil {
		return GetReportResp{}, fmt.Errorf("failed to load report: %w", err)
	}
	if run == nil {
		return GetReportResp{Report: fmt.Sprintf("No completed research run found for %q.", args.Subject)}, nil
	}

	header := fmt.Sprintf("Research report for %s (quality %.0f, %d sources, generated %s)\n\n",
		run.Subject, run.Quality, run.SourceCount, run.CreatedAt.Format("2006-01-02"))
	return GetReportResp{Report: header + run.Report}, nil
}

type ListRunsArgs struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of runs to return (default 20)"`
}

type ListRunsResp struct {
	Runs string `json:"runs"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) listRunsTool(ctx tool.Context, args ListRunsArgs) (ListRunsResp, error) {
	return t.ListRuns(ctx, args)
}

// Public method using standard context
func (t *ResearchToolset) ListRuns(ctx context.Context, args ListRunsArgs) (ListRunsResp, error) {
	runs, err := t.Runs.RecentRuns(ctx, args.Limit)
	if err != nil {
		return ListRunsResp{}, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return ListRunsResp{Runs: "No completed research runs yet."}, nil
	}

	var lines []string
	for _, run := range runs {
		lines = append(lines, fmt.Sprintf("- %s (quality %.0f, %d sources, %d iterations, %s)",
			run.Subject, run.Quality, run.SourceCount, run.Iterations, run.CreatedAt.Format("2006-01-02")))
	}
	return ListRunsResp{Runs: strings.Join(lines, "\n")}, nil
}
