package research

import (
	"regexp"
	"sort"
)

// gapPriorities ranks gap categories. Higher values are searched first.
// Categories missing from the table sort with priority 0.
var gapPriorities = map[string]int{
	"financial":           9,
	"market_cap":          8,
	"revenue":             8,
	"competitors":         7,
	"market_position":     6,
	"company_overview":    5,
	"products":            5,
	"leadership":          4,
	"strategy":            4,
	"recent_developments": 3,
}

// FinancialAPIGapSet lists the categories suppressed when authoritative
// financial data was already fetched from a market-data API.
var FinancialAPIGapSet = map[string]bool{
	"financial":  true,
	"market_cap": true,
	"revenue":    true,
}

// gapPatterns match explicit "data not available" style admissions in the
// synthesized text, per category.
var gapPatterns = map[string][]*regexp.Regexp{
	"financial": {
		regexp.MustCompile(`(?i)financial (data|information|figures)[^.]{0,60}(not |un)available`),
		regexp.MustCompile(`(?i)no (specific |detailed )?(financial|revenue) (data|figures|information)`),
		regexp.MustCompile(`(?i)financial details (could not|were not) be? ?(found|located|verified)`),
	},
	"market_cap": {
		regexp.MustCompile(`(?i)market (cap|capitalization)[^.]{0,60}(unknown|not (available|disclosed|found))`),
	},
	"revenue": {
		regexp.MustCompile(`(?i)revenue( figures?)?[^.]{0,60}(unknown|not (available|disclosed|reported|found))`),
	},
	"competitors": {
		regexp.MustCompile(`(?i)competit(or|ive) (data|information|landscape)[^.]{0,60}(limited|unclear|not available)`),
		regexp.MustCompile(`(?i)no (clear |specific )?competitors? (identified|found)`),
	},
	"market_position": {
		regexp.MustCompile(`(?i)market (position|share)[^.]{0,60}(unclear|unknown|not available)`),
	},
	"leadership": {
		regexp.MustCompile(`(?i)(leadership|management|executive) (team|information)[^.]{0,60}(not available|unknown|limited)`),
	},
	"products": {
		regexp.MustCompile(`(?i)product (details|information|portfolio)[^.]{0,60}(limited|not available|unclear)`),
	},
	"recent_developments": {
		regexp.MustCompile(`(?i)(recent|latest) (news|developments|events)[^.]{0,60}(not found|limited|unavailable)`),
		regexp.MustCompile(`(?i)no recent (news|developments|announcements)`),
	},
}

// sectionGapMap maps an incomplete report section to the gap category that
// should be searched to fill it.
var sectionGapMap = map[string]string{
	"company_overview":      "company_overview",
	"financial_performance": "financial",
	"market_position":       "market_position",
	"competitive_landscape": "competitors",
	"strategic_initiatives": "strategy",
	"recent_developments":   "recent_developments",
}

// DetectGaps returns the gap categories found in the report text, ordered
// by descending priority. Two passes are unioned: explicit admission
// patterns and under-filled sections. Categories in skip are never
// reported, regardless of what the text says; callers pass the financial
// API suppression set here once the data has been fetched elsewhere.
//
// Pure with respect to the text: identical input yields identical output.
func DetectGaps(text string, skip map[string]bool) []string {
	found := make(map[string]bool)

	for category, patterns := range gapPatterns {
		if skip[category] {
			continue
		}
		for _, p := range patterns {
			if p.MatchString(text) {
				found[category] = true
				break
			}
		}
	}

	for section, info := range AnalyzeSectionCompleteness(text) {
		if info.Complete {
			continue
		}
		category, ok := sectionGapMap[section]
		if !ok || skip[category] {
			continue
		}
		found[category] = true
	}

	gaps := make([]string, 0, len(found))
	for category := range found {
		gaps = append(gaps, category)
	}
	sort.Slice(gaps, func(i, j int) bool {
		pi, pj := gapPriorities[gaps[i]], gapPriorities[gaps[j]]
		if pi != pj {
			return pi > pj
		}
		return gaps[i] < gaps[j]
	})
	return gaps
}

// GapPriority returns the configured priority for a category, 0 if unknown.
func GapPriority(category string) int {
	return gapPriorities[category]
}

// CountHighPriorityGaps counts gaps at or above the given priority.
func CountHighPriorityGaps(gaps []string, minPriority int) int {
	n := 0
	for _, g := range gaps {
		if gapPriorities[g] >= minPriority {
			n++
		}
	}
	return n
}
