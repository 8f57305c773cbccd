package research

import "regexp"

// financialIndicators are scanned over the whole report text; each match
// contributes its weight to the financial bonus, capped at 15.
var financialIndicators = []struct {
	pattern *regexp.Regexp
	points  float64
}{
	{regexp.MustCompile(`\$[\d,.]+\s*(billion|million|B|M)?`), 5},
	{regexp.MustCompile(`(?i)market\s+cap(italization)?`), 3},
	{regexp.MustCompile(`(?i)p/e\s+ratio`), 3},
	{regexp.MustCompile(`(?i)revenue`), 2},
	{regexp.MustCompile(`(?i)\bEPS\b|earnings\s+per\s+share`), 2},
}

// CalculateQualityScore summarizes how complete a synthesized report is on
// a 0-100 scale. Pure function of the report text and source count.
func CalculateQualityScore(text string, sourceCount int) float64 {
	score := 30.0

	switch {
	case sourceCount >= 15:
		score += 15
	case sourceCount >= 10:
		score += 12
	case sourceCount >= 5:
		score += 8
	case sourceCount >= 3:
		score += 5
	}

	sections := AnalyzeSectionCompleteness(text)
	complete := 0
	for _, info := range sections {
		if info.Complete {
			complete++
		}
	}
	if len(sections) > 0 {
		score += float64(complete) / float64(len(sections)) * 30
	}

	financial := 0.0
	for _, ind := range financialIndicators {
		if ind.pattern.MatchString(text) {
			financial += ind.points
		}
	}
	if financial > 15 {
		financial = 15
	}
	score += financial

	switch {
	case len(text) > 5000:
		score += 10
	case len(text) > 3000:
		score += 7
	case len(text) > 1500:
		score += 4
	}

	if score > 100 {
		score = 100
	}
	return score
}
