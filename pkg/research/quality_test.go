package research

import (
	"strings"
	"testing"
)

func TestCalculateQualityScoreBase(t *testing.T) {
	// Empty text, no sources: only the base score remains.
	if got := CalculateQualityScore("", 0); got != 30 {
		t.Errorf("CalculateQualityScore(empty) = %v, want 30", got)
	}
}

func TestCalculateQualityScoreSourceBonus(t *testing.T) {
	tests := []struct {
		name    string
		sources int
		want    float64
	}{
		{"No sources", 0, 30},
		{"Three sources", 3, 35},
		{"Five sources", 5, 38},
		{"Ten sources", 10, 42},
		{"Fifteen sources", 15, 45},
		{"Many sources caps at fifteen tier", 40, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateQualityScore("", tt.sources); got != tt.want {
				t.Errorf("CalculateQualityScore(%d sources) = %v, want %v", tt.sources, got, tt.want)
			}
		})
	}
}

func TestCalculateQualityScoreFinancialBonusCapped(t *testing.T) {
	// All five indicators present: 5+3+3+2+2 = 15, already at the cap.
	text := "Revenue of $5 billion, market cap of $80 billion, P/E ratio of 25, EPS of 3.10."
	got := CalculateQualityScore(text, 0)
	if got != 30+15 {
		t.Errorf("CalculateQualityScore = %v, want %v", got, 30+15)
	}
}

func TestCalculateQualityScoreLengthBonus(t *testing.T) {
	// Filler with no sections or financial indicators isolates the length
	// bonus tiers.
	filler := func(n int) string { return strings.Repeat("x", n) }

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"Short", filler(1000), 30},
		{"Over 1500", filler(1600), 34},
		{"Over 3000", filler(3100), 37},
		{"Over 5000", filler(5100), 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateQualityScore(tt.text, 0); got != tt.want {
				t.Errorf("CalculateQualityScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateQualityScoreNeverExceeds100(t *testing.T) {
	got := CalculateQualityScore(fullReport(""), 50)
	if got > 100 {
		t.Errorf("CalculateQualityScore = %v, want <= 100", got)
	}
	if got < 80 {
		t.Errorf("CalculateQualityScore = %v for a complete report, expected a high score", got)
	}
}
