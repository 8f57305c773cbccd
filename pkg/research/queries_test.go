package research

import (
	"strings"
	"testing"
)

func TestQueryBudget(t *testing.T) {
	tests := []struct {
		name     string
		depth    Depth
		strategy Strategy
		want     int
	}{
		{"Quick auto", DepthQuick, StrategyAuto, 4},
		{"Standard auto", DepthStandard, StrategyAuto, 6},
		{"Comprehensive auto", DepthComprehensive, StrategyAuto, 8},
		{"Unknown depth defaults to standard", Depth("weird"), StrategyAuto, 6},
		{"Quick free_first multiplied", DepthQuick, StrategyFreeFirst, 12},
		{"Standard free_only multiplied", DepthStandard, StrategyFreeOnly, 18},
		{"Comprehensive maximum_free multiplied", DepthComprehensive, StrategyMaximumFree, 24},
		{"Tavily only not multiplied", DepthStandard, StrategyTavilyOnly, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryBudget(tt.depth, tt.strategy); got != tt.want {
				t.Errorf("queryBudget(%s, %s) = %d, want %d", tt.depth, tt.strategy, got, tt.want)
			}
		})
	}
}

func TestGenerateInitialQueriesBudgetAndDedup(t *testing.T) {
	history := make(map[string]bool)
	queries := GenerateInitialQueries("Acme Corp", nil, DepthStandard, StrategyAuto, history)

	if len(queries) == 0 {
		t.Fatal("no queries generated")
	}
	if len(queries) > 6 {
		t.Errorf("got %d queries, budget is 6", len(queries))
	}

	seen := make(map[string]bool)
	for _, q := range queries {
		key := strings.ToLower(q.Text)
		if seen[key] {
			t.Errorf("duplicate query %q", q.Text)
		}
		seen[key] = true
		if !history[key] {
			t.Errorf("query %q not recorded in history", q.Text)
		}
		if !strings.Contains(q.Text, "Acme Corp") {
			t.Errorf("query %q does not mention the subject", q.Text)
		}
	}
}

func TestGenerateInitialQueriesPriorityFirst(t *testing.T) {
	profile := &Profile{
		PriorityQueries: []string{"Acme Corp antitrust lawsuit 2025"},
	}
	history := make(map[string]bool)
	queries := GenerateInitialQueries("Acme Corp", profile, DepthStandard, StrategyAuto, history)

	if len(queries) == 0 || queries[0].Text != "Acme Corp antitrust lawsuit 2025" {
		t.Fatalf("priority query not first: %v", queries)
	}
	if queries[0].Category != "priority" {
		t.Errorf("priority query category = %s", queries[0].Category)
	}
}

func TestGenerateInitialQueriesProfileEnhanced(t *testing.T) {
	profile := &Profile{
		Industry:    "aerospace",
		Country:     "Germany",
		Competitors: []string{"Globex", "Initech", "Umbrella"},
	}
	history := make(map[string]bool)
	queries := GenerateInitialQueries("Acme Corp", profile, DepthComprehensive, StrategyFreeFirst, history)

	var competitorQueries int
	var hasIndustry, hasCountry bool
	for _, q := range queries {
		if strings.Contains(q.Text, " vs ") {
			competitorQueries++
		}
		if strings.Contains(q.Text, "aerospace industry trends") {
			hasIndustry = true
		}
		if strings.Contains(q.Text, "operations Germany market") {
			hasCountry = true
		}
	}
	if competitorQueries != 2 {
		t.Errorf("got %d competitor queries, want 2 (capped)", competitorQueries)
	}
	if !hasIndustry {
		t.Error("missing industry-enhanced query")
	}
	if !hasCountry {
		t.Error("missing country-enhanced query")
	}
}

func TestGenerateInitialQueriesFreeStrategyFills(t *testing.T) {
	history := make(map[string]bool)
	free := GenerateInitialQueries("Acme Corp", nil, DepthStandard, StrategyFreeOnly, history)

	history = make(map[string]bool)
	paid := GenerateInitialQueries("Acme Corp", nil, DepthStandard, StrategyAuto, history)

	if len(free) <= len(paid) {
		t.Errorf("free strategy produced %d queries, paid %d; expected more for free", len(free), len(paid))
	}
	if len(free) > 18 {
		t.Errorf("free strategy exceeded its budget: %d > 18", len(free))
	}
}

func TestGenerateInitialQueriesRespectsExistingHistory(t *testing.T) {
	history := make(map[string]bool)
	first := GenerateInitialQueries("Acme Corp", nil, DepthStandard, StrategyAuto, history)
	if len(first) == 0 {
		t.Fatal("no queries generated")
	}

	second := GenerateInitialQueries("Acme Corp", nil, DepthStandard, StrategyAuto, history)
	for _, q := range second {
		for _, prev := range first {
			if strings.EqualFold(q.Text, prev.Text) {
				t.Errorf("query %q regenerated despite history", q.Text)
			}
		}
	}
}

func TestGenerateGapQueriesPriorityAndCap(t *testing.T) {
	history := make(map[string]bool)
	gaps := []string{"recent_developments", "financial", "leadership", "market_cap", "competitors"}

	queries := GenerateGapQueries("Acme Corp", nil, gaps, 4, history)
	if len(queries) != 4 {
		t.Fatalf("got %d gap queries, want 4", len(queries))
	}
	if queries[0].Category != "financial" {
		t.Errorf("first gap query category = %s, want financial", queries[0].Category)
	}
	for i := 1; i < len(queries); i++ {
		if GapPriority(queries[i-1].Category) < GapPriority(queries[i].Category) {
			t.Errorf("gap queries not in priority order: %v", queries)
		}
	}
}

func TestGenerateGapQueriesExhaustion(t *testing.T) {
	history := make(map[string]bool)

	// Drain every template and the generic fallback for market_cap.
	for _, tpl := range gapTemplates["market_cap"] {
		history[strings.ToLower(strings.Replace(tpl, "%s", "acme corp", 1))] = true
	}
	history["acme corp market cap"] = true

	queries := GenerateGapQueries("Acme Corp", nil, []string{"market_cap"}, 4, history)
	if len(queries) != 0 {
		t.Errorf("expected no queries once templates are exhausted, got %v", queries)
	}
}

func TestGenerateGapQueriesFallbackUsesProfile(t *testing.T) {
	history := make(map[string]bool)
	for _, tpl := range gapTemplates["revenue"] {
		history[strings.ToLower(strings.Replace(tpl, "%s", "acme corp", 1))] = true
	}

	profile := &Profile{Industry: "logistics", Country: "Sweden"}
	queries := GenerateGapQueries("Acme Corp", profile, []string{"revenue"}, 4, history)
	if len(queries) != 1 {
		t.Fatalf("got %d queries, want 1 fallback", len(queries))
	}
	want := "Acme Corp revenue logistics Sweden"
	if queries[0].Text != want {
		t.Errorf("fallback query = %q, want %q", queries[0].Text, want)
	}
}
