package research

import (
	"regexp"
	"strings"
)

// SectionInfo describes how completely one report section is filled in.
// Recomputed fresh on every call; never cached because the report text
// changes between iterations.
type SectionInfo struct {
	Found           bool     `json:"found"`
	Length          int      `json:"length"`
	MinLength       int      `json:"min_length"`
	ElementsFound   []string `json:"elements_found"`
	ElementsMissing []string `json:"elements_missing"`
	Score           float64  `json:"score"`
	Complete        bool     `json:"complete"`
}

// sectionDef is static configuration for one expected report section:
// header patterns that locate it, a minimum body length, and keywords the
// body is expected to mention.
type sectionDef struct {
	headerPatterns []*regexp.Regexp
	minLength      int
	elements       []string
}

// nextHeaderPattern marks the start of the following markdown section and
// therefore the end of the current section body.
var nextHeaderPattern = regexp.MustCompile(`\n##?\s+\d*\.?\s*[A-Z]`)

var sectionDefs = map[string]sectionDef{
	"company_overview": {
		headerPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*(company\s+overview|about\s+the\s+company|overview)`),
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*(introduction|background)`),
		},
		minLength: 300,
		elements:  []string{"founded", "headquarters", "employees", "industry"},
	},
	"financial_performance": {
		headerPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*financial(\s+(performance|overview|results|highlights))?`),
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*financials`),
		},
		minLength: 500,
		elements:  []string{"revenue", "profit", "market cap", "growth"},
	},
	"market_position": {
		headerPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*market\s+(position|share|presence)`),
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*industry\s+(position|standing)`),
		},
		minLength: 400,
		elements:  []string{"market share", "industry", "position"},
	},
	"competitive_landscape": {
		headerPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*competit(ive\s+landscape|ition|itors)`),
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*(key\s+)?competitors`),
		},
		minLength: 400,
		elements:  []string{"competitor", "versus", "advantage"},
	},
	"strategic_initiatives": {
		headerPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*strateg(ic\s+initiatives|y)`),
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*(future\s+)?(outlook|plans|roadmap)`),
		},
		minLength: 300,
		elements:  []string{"strategy", "initiative", "investment"},
	},
	"recent_developments": {
		headerPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*recent\s+(developments|news|events)`),
			regexp.MustCompile(`(?i)#{1,3}\s*\d*\.?\s*(latest\s+news|news)`),
		},
		minLength: 250,
		elements:  []string{"announced", "launched", "202"},
	},
}

// AnalyzeSectionCompleteness locates every defined section in the report
// text and scores how completely each is filled in. Pure function of the
// input text.
func AnalyzeSectionCompleteness(text string) map[string]SectionInfo {
	out := make(map[string]SectionInfo, len(sectionDefs))
	for name, def := range sectionDefs {
		out[name] = analyzeSection(text, def)
	}
	return out
}

func analyzeSection(text string, def sectionDef) SectionInfo {
	info := SectionInfo{MinLength: def.minLength}

	body, ok := sectionBody(text, def.headerPatterns)
	if !ok {
		info.ElementsMissing = append([]string{}, def.elements...)
		return info
	}
	info.Found = true
	info.Length = len(body)

	lower := strings.ToLower(body)
	for _, el := range def.elements {
		if strings.Contains(lower, el) {
			info.ElementsFound = append(info.ElementsFound, el)
		} else {
			info.ElementsMissing = append(info.ElementsMissing, el)
		}
	}

	lengthScore := float64(len(body)) / float64(def.minLength)
	if lengthScore > 1 {
		lengthScore = 1
	}
	elementsScore := 1.0
	if len(def.elements) > 0 {
		elementsScore = float64(len(info.ElementsFound)) / float64(len(def.elements))
	}
	info.Score = 0.6*lengthScore + 0.4*elementsScore
	info.Complete = len(body) >= int(0.7*float64(def.minLength)) && info.Score >= 0.6
	return info
}

// sectionBody returns the text between the first matching header and the
// next markdown header (or end of document).
func sectionBody(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		loc := p.FindStringIndex(text)
		if loc == nil {
			continue
		}
		body := text[loc[1]:]
		if next := nextHeaderPattern.FindStringIndex(body); next != nil {
			body = body[:next[0]]
		}
		return strings.TrimSpace(body), true
	}
	return "", false
}

// SectionNames returns the defined section names. Order is not significant.
func SectionNames() []string {
	names := make([]string, 0, len(sectionDefs))
	for name := range sectionDefs {
		names = append(names, name)
	}
	return names
}
