package models

import "fmt"

// Section is one ordered block of the rendered narrative.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// DecisionArtifact is the final output of a completed run.
type DecisionArtifact struct {
	SessionID string `json:"session_id"`

	StockSymbol      string     `json:"stock_symbol"`
	MarketType       MarketType `json:"market_type"`
	AnalysisDate     string     `json:"analysis_date"`
	SelectedAnalysts []string   `json:"selected_analysts"`
	ResearchDepth    int        `json:"research_depth"`

	AnalystReports   map[string]string `json:"analyst_reports"`
	ResearchVerdict  string            `json:"research_verdict"`
	ResearchRounds   int               `json:"research_rounds"`
	ConsensusReached bool              `json:"consensus_reached"`
	TraderPlan       string            `json:"trader_plan"`
	RiskVerdict      string            `json:"risk_verdict"`
	RiskRounds       int               `json:"risk_rounds"`
	FinalDecision    string            `json:"final_decision"`

	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	IsDemo     bool   `json:"is_demo"`
	DemoReason string `json:"demo_reason,omitempty"`

	// Sections is the narrative in fixed order: analysts, research debate,
	// trading plan, risk debate, final verdict.
	Sections []Section `json:"sections"`

	Provenance []StageRecord `json:"provenance"`
}

// FailureArtifact is returned when a mandatory stage failed or the run was
// cancelled. It implements error so the engine can surface it directly.
type FailureArtifact struct {
	SessionID string `json:"session_id"`

	StockSymbol  string     `json:"stock_symbol"`
	MarketType   MarketType `json:"market_type"`
	AnalysisDate string     `json:"analysis_date"`

	Stage  string `json:"stage"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`

	Provenance []StageRecord `json:"provenance"`
}

func (f *FailureArtifact) Error() string {
	return fmt.Sprintf("analysis failed at stage %s (%s): %s", f.Stage, f.Kind, f.Reason)
}
