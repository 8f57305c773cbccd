package search

// Credentials holds the API keys for the configured backends. Empty keys
// simply leave that backend unavailable; the cascade skips it.
type Credentials struct {
	BraveKey     string
	MojeekKey    string
	GoogleCSEKey string
	GoogleCSEID  string
	SerpAPIKey   string
	TavilyKey    string
	TavilyDepth  string
}

// DefaultCascade builds the standard backend order: DuckDuckGo (no
// credential), Brave, Mojeek, Google CSE (daily quota), SerpAPI (monthly
// quota), then Tavily as the paid last resort.
func DefaultCascade(c Credentials) []Backend {
	return []Backend{
		{Provider: NewDuckDuckGo(), Cooldown: DefaultCooldown},
		{Provider: NewBrave(c.BraveKey), Cooldown: DefaultCooldown},
		{Provider: NewMojeek(c.MojeekKey), Cooldown: DefaultCooldown},
		{Provider: NewGoogleCSE(c.GoogleCSEKey, c.GoogleCSEID), Cooldown: QuotaCooldown},
		{Provider: NewSerpAPI(c.SerpAPIKey), Cooldown: QuotaCooldown},
		{Provider: NewTavily(c.TavilyKey, c.TavilyDepth), Cooldown: DefaultCooldown, Paid: true},
	}
}
