package consts

// Stage identifiers for every dispatchable role in the pipeline.
const (
	// Analyst team
	MarketAnalyst       = "market_analyst"
	SocialMediaAnalyst  = "social_media_analyst"
	NewsAnalyst         = "news_analyst"
	FundamentalsAnalyst = "fundamentals_analyst"

	// Research team
	BullResearcher  = "bull_researcher"
	BearResearcher  = "bear_researcher"
	ResearchManager = "research_manager"

	// Trading team
	Trader = "trader"

	// Risk management team
	RiskyAnalyst   = "risky_analyst"
	SafeAnalyst    = "safe_analyst"
	NeutralAnalyst = "neutral_analyst"
	RiskJudge      = "risk_judge"

	// Portfolio management team
	PortfolioManager = "portfolio_manager"
)

const (
	// Analyst selection keys, as accepted in requests.
	AnalystMarket       = "market"
	AnalystSocial       = "social"
	AnalystNews         = "news"
	AnalystFundamentals = "fundamentals"
)

// AnalystOrder is the canonical dispatch and merge order for analyst stages.
var AnalystOrder = []string{AnalystMarket, AnalystSocial, AnalystNews, AnalystFundamentals}

// AnalystStages maps an analyst selection key to its stage identifier.
var AnalystStages = map[string]string{
	AnalystMarket:       MarketAnalyst,
	AnalystSocial:       SocialMediaAnalyst,
	AnalystNews:         NewsAnalyst,
	AnalystFundamentals: FundamentalsAnalyst,
}
