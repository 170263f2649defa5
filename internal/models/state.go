package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mohaoran/AlphaCouncil/consts"
)

// MarketType identifies which market a symbol trades on.
type MarketType string

const (
	MarketCN MarketType = "A股"
	MarketHK MarketType = "港股"
	MarketUS MarketType = "美股"
)

func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(s) {
	case MarketCN, MarketHK, MarketUS:
		return MarketType(s), nil
	}
	switch s {
	case "cn", "a-share", "A":
		return MarketCN, nil
	case "hk", "HK":
		return MarketHK, nil
	case "us", "US":
		return MarketUS, nil
	}
	return "", fmt.Errorf("unknown market type %q", s)
}

// AnalysisRequest is the caller-provided context for one run.
type AnalysisRequest struct {
	StockSymbol      string     `json:"stock_symbol"`
	MarketType       MarketType `json:"market_type"`
	AnalysisDate     string     `json:"analysis_date"`
	SelectedAnalysts []string   `json:"selected_analysts"`
	ResearchDepth    int        `json:"research_depth"`
}

// DebateTurn is one statement in a debate history.
type DebateTurn struct {
	Speaker   string `json:"speaker"`
	Statement string `json:"statement"`
}

// DebateState holds the shared debate sub-state. The research debate cycles
// two speakers, the risk debate three; the shape is identical.
type DebateState struct {
	Turns            []DebateTurn `json:"turns"`
	RoundCount       int          `json:"round_count"`
	ConsensusReached bool         `json:"consensus_reached"`
	JudgeDecision    string       `json:"judge_decision"`
	Terminal         bool         `json:"terminal"`
}

// History renders the debate transcript for prompt building.
func (d *DebateState) History() string {
	out := ""
	for _, t := range d.Turns {
		if out != "" {
			out += "\n"
		}
		out += t.Speaker + ": " + t.Statement
	}
	return out
}

// AnalysisState is the single record threaded through one run. It is owned
// by the engine; stages write only the fields granted to them.
type AnalysisState struct {
	SessionID string `json:"session_id"`

	Request AnalysisRequest `json:"request"`

	// Analyst artifacts are written at most once per analyst kind. A failed
	// optional analyst is recorded in AnalystFailures, never as an empty
	// report.
	AnalystReports  map[string]string `json:"analyst_reports"`
	AnalystFailures map[string]string `json:"analyst_failures"`

	ResearchDebate DebateState `json:"research_debate"`
	RiskDebate     DebateState `json:"risk_debate"`

	TraderPlan    string `json:"trader_plan"`
	TraderPlanSet bool   `json:"trader_plan_set"`

	Decision *DecisionArtifact `json:"decision,omitempty"`

	Provenance []StageRecord `json:"provenance"`
}

// NewAnalysisState creates the run state with identity and request context
// populated. Selected analysts are normalized into canonical order.
func NewAnalysisState(req AnalysisRequest) *AnalysisState {
	req.SelectedAnalysts = NormalizeAnalysts(req.SelectedAnalysts)
	return &AnalysisState{
		SessionID:       uuid.NewString(),
		Request:         req,
		AnalystReports:  make(map[string]string),
		AnalystFailures: make(map[string]string),
	}
}

// NormalizeAnalysts dedupes a selection and orders it canonically
// (market, social, news, fundamentals). Unknown kinds are dropped here;
// validation rejects them earlier.
func NormalizeAnalysts(selected []string) []string {
	want := make(map[string]bool, len(selected))
	for _, a := range selected {
		want[a] = true
	}
	out := make([]string, 0, len(selected))
	for _, a := range consts.AnalystOrder {
		if want[a] {
			out = append(out, a)
		}
	}
	return out
}

// SetAnalystReport records an analyst artifact. Writing twice is a
// programming error.
func (s *AnalysisState) SetAnalystReport(kind, report string) error {
	if _, ok := s.AnalystReports[kind]; ok {
		return fmt.Errorf("analyst report %s already set", kind)
	}
	s.AnalystReports[kind] = report
	return nil
}

// MarkAnalystFailed records a degraded analyst outcome.
func (s *AnalysisState) MarkAnalystFailed(kind, reason string) {
	if _, ok := s.AnalystFailures[kind]; !ok {
		s.AnalystFailures[kind] = reason
	}
}

// PendingAnalysts returns the selected analysts that have neither an
// artifact nor an exhausted retry budget, in canonical order.
func (s *AnalysisState) PendingAnalysts() []string {
	var pending []string
	for _, kind := range s.Request.SelectedAnalysts {
		if _, done := s.AnalystReports[kind]; done {
			continue
		}
		if _, failed := s.AnalystFailures[kind]; failed {
			continue
		}
		pending = append(pending, kind)
	}
	return pending
}

// View returns the read snapshot handed to role invokers. Maps and slices
// are copied so an invoker can never mutate run state.
func (s *AnalysisState) View() StateView {
	reports := make(map[string]string, len(s.AnalystReports))
	for k, v := range s.AnalystReports {
		reports[k] = v
	}
	return StateView{
		SessionID:        s.SessionID,
		StockSymbol:      s.Request.StockSymbol,
		MarketType:       s.Request.MarketType,
		AnalysisDate:     s.Request.AnalysisDate,
		ResearchDepth:    s.Request.ResearchDepth,
		AnalystReports:   reports,
		ResearchHistory:  s.ResearchDebate.History(),
		ResearchVerdict:  s.ResearchDebate.JudgeDecision,
		RiskHistory:      s.RiskDebate.History(),
		RiskVerdict:      s.RiskDebate.JudgeDecision,
		TraderPlan:       s.TraderPlan,
		ResearchTurns:    append([]DebateTurn(nil), s.ResearchDebate.Turns...),
		RiskTurns:        append([]DebateTurn(nil), s.RiskDebate.Turns...),
		ResearchRounds:   s.ResearchDebate.RoundCount,
		RiskRounds:       s.RiskDebate.RoundCount,
		SelectedAnalysts: append([]string(nil), s.Request.SelectedAnalysts...),
	}
}

// StateView is the immutable snapshot a role invoker reads from.
type StateView struct {
	SessionID        string            `json:"session_id"`
	StockSymbol      string            `json:"stock_symbol"`
	MarketType       MarketType        `json:"market_type"`
	AnalysisDate     string            `json:"analysis_date"`
	ResearchDepth    int               `json:"research_depth"`
	SelectedAnalysts []string          `json:"selected_analysts"`
	AnalystReports   map[string]string `json:"analyst_reports"`
	ResearchTurns    []DebateTurn      `json:"research_turns"`
	ResearchHistory  string            `json:"research_history"`
	ResearchRounds   int               `json:"research_rounds"`
	ResearchVerdict  string            `json:"research_verdict"`
	RiskTurns        []DebateTurn      `json:"risk_turns"`
	RiskHistory      string            `json:"risk_history"`
	RiskRounds       int               `json:"risk_rounds"`
	RiskVerdict      string            `json:"risk_verdict"`
	TraderPlan       string            `json:"trader_plan"`
}

// StageRecord is one provenance entry: a single invocation attempt of a
// stage, with its outcome.
type StageRecord struct {
	Stage      string    `json:"stage"`
	Attempt    int       `json:"attempt"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
}

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
)
