package research

import (
	"fmt"
	"sort"
	"strings"
)

// Base query budgets per depth. Free-provider strategies multiply the
// budget because free providers return fewer usable sources per query.
const (
	queryBudgetQuick         = 4
	queryBudgetStandard      = 6
	queryBudgetComprehensive = 8

	// FreeQueryMultiplier scales the budget for free-provider strategies.
	FreeQueryMultiplier = 3
)

// coreQueries cover the essential angles for any subject.
var coreQueries = []Query{
	{Text: "%s company overview financials", Category: "financial"},
	{Text: "%s market position industry analysis", Category: "market_position"},
	{Text: "%s products services offerings", Category: "products"},
	{Text: "%s recent news developments", Category: "recent_developments"},
}

// categoryLibrary supplies extra queries used to fill the larger budgets of
// free-provider strategies. Iterated in order.
var categoryLibrary = []struct {
	category  string
	templates []string
}{
	{"financial", []string{
		"%s annual revenue net income",
		"%s market capitalization valuation",
		"%s quarterly earnings results",
	}},
	{"leadership", []string{
		"%s CEO leadership team",
		"%s founders key executives",
	}},
	{"products", []string{
		"%s product portfolio offerings",
		"%s flagship products customers",
	}},
	{"competitors", []string{
		"%s main competitors comparison",
		"%s competitive advantage market share",
	}},
	{"recent_developments", []string{
		"%s latest announcements press releases",
		"%s recent partnerships acquisitions",
	}},
	{"strategy", []string{
		"%s growth strategy expansion plans",
		"%s strategic initiatives investments",
	}},
}

// gapTemplates produce follow-up queries targeting one gap category.
// Tried in order until one is not already in the run's query history.
var gapTemplates = map[string][]string{
	"financial": {
		"%s revenue profit financial results",
		"%s annual report financial statements",
		"%s funding valuation financials",
	},
	"market_cap": {
		"%s market capitalization stock value",
		"%s company valuation worth",
	},
	"revenue": {
		"%s annual revenue sales figures",
		"%s revenue growth earnings",
	},
	"competitors": {
		"%s competitors competitive landscape",
		"%s vs competitors market comparison",
	},
	"market_position": {
		"%s market share industry ranking",
		"%s market position analysis",
	},
	"company_overview": {
		"%s company history background profile",
		"%s about company founded headquarters",
	},
	"products": {
		"%s products services portfolio",
		"%s main products offerings",
	},
	"leadership": {
		"%s CEO executives management team",
		"%s leadership board of directors",
	},
	"strategy": {
		"%s business strategy future plans",
		"%s strategic direction roadmap",
	},
	"recent_developments": {
		"%s recent news announcements",
		"%s latest developments updates",
	},
}

func queryBudget(depth Depth, strategy Strategy) int {
	var base int
	switch depth {
	case DepthQuick:
		base = queryBudgetQuick
	case DepthComprehensive:
		base = queryBudgetComprehensive
	default:
		base = queryBudgetStandard
	}
	if isFreeStrategy(strategy) {
		base *= FreeQueryMultiplier
	}
	return base
}

func isFreeStrategy(s Strategy) bool {
	switch s {
	case StrategyFreeFirst, StrategyMaximumFree, StrategyFreeOnly:
		return true
	}
	return false
}

// GenerateInitialQueries produces the deduplicated opening query set for a
// subject, up to the budget implied by depth and strategy. Every returned
// query is recorded in history (lowercased) so later gap rounds cannot
// regenerate it.
func GenerateInitialQueries(subject string, profile *Profile, depth Depth, strategy Strategy, history map[string]bool) []Query {
	budget := queryBudget(depth, strategy)
	queries := make([]Query, 0, budget)

	add := func(text, category string) bool {
		if len(queries) >= budget {
			return false
		}
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" || history[key] {
			return true
		}
		history[key] = true
		queries = append(queries, Query{Text: strings.TrimSpace(text), Category: category})
		return true
	}

	// 1. User-supplied priority queries, verbatim.
	if profile != nil {
		for _, q := range profile.PriorityQueries {
			if !add(q, "priority") {
				return queries
			}
		}
	}

	// 2. Core queries, skipping near-duplicates of what is already there.
	for _, core := range coreQueries {
		text := fmt.Sprintf(core.Text, subject)
		if hasNearDuplicate(text, subject, queries) {
			continue
		}
		if !add(text, core.Category) {
			return queries
		}
	}

	// 3. Profile-enhanced queries while budget remains.
	if profile != nil {
		if profile.Industry != "" {
			add(fmt.Sprintf("%s %s industry trends", subject, profile.Industry), "market_position")
		}
		for i, comp := range profile.Competitors {
			if i >= 2 || len(queries) >= budget {
				break
			}
			add(fmt.Sprintf("%s vs %s comparison", subject, comp), "competitors")
		}
		if profile.Country != "" {
			add(fmt.Sprintf("%s operations %s market", subject, profile.Country), "market_position")
		}
		if profile.ParentCompany != "" {
			add(fmt.Sprintf("%s parent company %s", subject, profile.ParentCompany), "company_overview")
		}
	}

	// 4. Free strategies fill the remaining budget from the library.
	if isFreeStrategy(strategy) {
		for _, entry := range categoryLibrary {
			for _, tpl := range entry.templates {
				if len(queries) >= budget {
					return queries
				}
				add(fmt.Sprintf(tpl, subject), entry.category)
			}
		}
	}

	return queries
}

// GenerateGapQueries produces up to max new queries targeting the given gap
// categories, highest priority first. Each produced query is recorded in
// history immediately. Returns an empty slice when every template and
// fallback for every category is already in history.
func GenerateGapQueries(subject string, profile *Profile, gaps []string, max int, history map[string]bool) []Query {
	ordered := make([]string, len(gaps))
	copy(ordered, gaps)
	sortByPriority(ordered)

	var queries []Query
	for _, category := range ordered {
		if len(queries) >= max {
			break
		}
		text, ok := gapQueryFor(subject, profile, category, history)
		if !ok {
			continue
		}
		history[strings.ToLower(text)] = true
		queries = append(queries, Query{Text: text, Category: category})
	}
	return queries
}

func gapQueryFor(subject string, profile *Profile, category string, history map[string]bool) (string, bool) {
	for _, tpl := range gapTemplates[category] {
		text := fmt.Sprintf(tpl, subject)
		if !history[strings.ToLower(text)] {
			return text, true
		}
	}

	// All templates exhausted: fall back to a generic context query.
	parts := []string{subject, strings.ReplaceAll(category, "_", " ")}
	if profile != nil {
		if profile.Industry != "" {
			parts = append(parts, profile.Industry)
		}
		if profile.Country != "" {
			parts = append(parts, profile.Country)
		}
	}
	text := strings.Join(parts, " ")
	if history[strings.ToLower(text)] {
		return "", false
	}
	return text, true
}

func sortByPriority(categories []string) {
	sort.SliceStable(categories, func(i, j int) bool {
		return gapPriorities[categories[i]] > gapPriorities[categories[j]]
	})
}

// hasNearDuplicate reports whether a candidate query shares the subject and
// at least one meaningful keyword with an already-added query.
func hasNearDuplicate(candidate, subject string, existing []Query) bool {
	candTokens := keywordTokens(candidate, subject)
	for _, q := range existing {
		for tok := range keywordTokens(q.Text, subject) {
			if candTokens[tok] {
				return true
			}
		}
	}
	return false
}

func keywordTokens(text, subject string) map[string]bool {
	subjectTokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(subject)) {
		subjectTokens[t] = true
	}
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(text)) {
		if len(t) > 3 && !subjectTokens[t] {
			tokens[t] = true
		}
	}
	return tokens
}
