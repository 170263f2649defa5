package workflow

import (
	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// Pseudo-stage identifiers the router hands back for debate steps; the
// debate controllers decide which concrete role speaks.
const (
	StepResearchDebate = "research_debate"
	StepRiskDebate     = "risk_debate"
)

// Step is the router's answer: either a set of analyst stages that may be
// dispatched concurrently, a single sequential stage, or Done.
type Step struct {
	Analysts []string
	Stage    string
	Done     bool
}

// NextStep is the pure routing function. The ordering is the pipeline's core
// invariant: analysts precede the research debate, which precedes trading,
// which precedes the risk debate, which precedes the final decision. Every
// rule strictly advances a counter or an artifact-presence flag, so the
// engine loop is bounded.
func NextStep(st *models.AnalysisState) Step {
	if pending := st.PendingAnalysts(); len(pending) > 0 {
		return Step{Analysts: pending}
	}
	if !st.ResearchDebate.Terminal {
		return Step{Stage: StepResearchDebate}
	}
	if !st.TraderPlanSet {
		return Step{Stage: consts.Trader}
	}
	if !st.RiskDebate.Terminal {
		return Step{Stage: StepRiskDebate}
	}
	if st.Decision == nil {
		return Step{Stage: consts.PortfolioManager}
	}
	return Step{Done: true}
}
