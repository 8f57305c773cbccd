package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// maxSourceContentLen caps how much of one source's content goes into the
// synthesis prompt.
const maxSourceContentLen = 1200

const synthesisSystemPrompt = `You are a company research analyst.
Write a thorough research report about the subject based only on the provided sources.
Structure the report as Markdown with these numbered sections:
## 1. Company Overview
## 2. Financial Performance
## 3. Market Position
## 4. Competitive Landscape
## 5. Strategic Initiatives
## 6. Recent Developments
Where the sources do not cover a point, say explicitly that the data is not available.`

// LLMSynthesizer implements Synthesizer over a langchaingo model.
type LLMSynthesizer struct {
	LLM    llms.Model
	Logger *slog.Logger
}

func NewLLMSynthesizer(model llms.Model, logger *slog.Logger) *LLMSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSynthesizer{LLM: model, Logger: logger}
}

// Synthesize produces the report text for the current iteration from the
// accumulated sources. Sources are deduplicated by title before prompting.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, subject string, profile *Profile, sources []SearchResult) (Synthesis, error) {
	input := buildSynthesisInput(subject, profile, sources)

	content, usage, err := s.generateWithRetry(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, synthesisSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, input),
	})
	if err != nil {
		return Synthesis{}, err
	}
	return Synthesis{Text: content, Usage: usage}, nil
}

// generateWithRetry attempts generation up to 3 times with linear backoff,
// matching the behavior of the rest of our LLM call sites.
func (s *LLMSynthesizer) generateWithRetry(ctx context.Context, prompts []llms.MessageContent) (string, TokenUsage, error) {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			s.Logger.Warn("Retrying synthesis", "attempt", i+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", TokenUsage{}, ctx.Err()
			case <-time.After(time.Second * time.Duration(i)):
			}
		}

		resp, err := s.LLM.GenerateContent(ctx, prompts)
		if err != nil {
			lastErr = fmt.Errorf("llm generation failed: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		choice := resp.Choices[0]
		if strings.TrimSpace(choice.Content) == "" {
			lastErr = fmt.Errorf("llm returned empty content")
			continue
		}
		return choice.Content, usageFromChoice(choice), nil
	}

	return "", TokenUsage{}, fmt.Errorf("synthesis failed after %d retries: %w", maxRetries, lastErr)
}

// usageFromChoice extracts token counts from the provider-specific
// GenerationInfo map. Providers disagree on key names.
func usageFromChoice(choice *llms.ContentChoice) TokenUsage {
	var usage TokenUsage
	if choice.GenerationInfo == nil {
		return usage
	}
	for _, key := range []string{"input_tokens", "PromptTokens", "prompt_tokens"} {
		if v, ok := choice.GenerationInfo[key]; ok {
			usage.Input = asInt(v)
			break
		}
	}
	for _, key := range []string{"output_tokens", "CompletionTokens", "completion_tokens"} {
		if v, ok := choice.GenerationInfo[key]; ok {
			usage.Output = asInt(v)
			break
		}
	}
	return usage
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func buildSynthesisInput(subject string, profile *Profile, sources []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", subject)

	if profile != nil {
		if profile.Industry != "" {
			fmt.Fprintf(&b, "Industry: %s\n", profile.Industry)
		}
		if profile.Country != "" {
			fmt.Fprintf(&b, "Country: %s\n", profile.Country)
		}
		if profile.Ticker != "" {
			fmt.Fprintf(&b, "Ticker: %s\n", profile.Ticker)
		}
		if len(profile.Competitors) > 0 {
			fmt.Fprintf(&b, "Known competitors: %s\n", strings.Join(profile.Competitors, ", "))
		}
	}

	b.WriteString("\nSources:\n\n")
	seen := make(map[string]bool)
	n := 0
	for _, src := range sources {
		titleKey := strings.ToLower(strings.TrimSpace(src.Title))
		if titleKey != "" && seen[titleKey] {
			continue
		}
		seen[titleKey] = true
		n++

		content := src.Content
		runes := []rune(content)
		if len(runes) > maxSourceContentLen {
			content = string(runes[:maxSourceContentLen]) + "..."
		}
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", n, src.Title, src.URL, content)
	}
	if n == 0 {
		b.WriteString("(no sources were found)\n")
	}
	return b.String()
}
