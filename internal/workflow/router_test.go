package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

func routerState() *models.AnalysisState {
	return models.NewAnalysisState(models.AnalysisRequest{
		StockSymbol:      "AAPL",
		MarketType:       models.MarketUS,
		AnalysisDate:     "2025-06-02",
		SelectedAnalysts: []string{"fundamentals", "market"},
		ResearchDepth:    1,
	})
}

func TestRouterDispatchesPendingAnalystsFirst(t *testing.T) {
	st := routerState()

	step := NextStep(st)
	assert.Equal(t, []string{"market", "fundamentals"}, step.Analysts, "canonical order regardless of request order")

	// A completed analyst leaves the pending set.
	_ = st.SetAnalystReport("market", "report")
	step = NextStep(st)
	assert.Equal(t, []string{"fundamentals"}, step.Analysts)

	// A failed analyst with exhausted budget leaves it too.
	st.MarkAnalystFailed("fundamentals", "permanent")
	step = NextStep(st)
	assert.Empty(t, step.Analysts)
	assert.Equal(t, StepResearchDebate, step.Stage)
}

func TestRouterFixedOrdering(t *testing.T) {
	st := routerState()
	_ = st.SetAnalystReport("market", "r1")
	_ = st.SetAnalystReport("fundamentals", "r2")

	assert.Equal(t, StepResearchDebate, NextStep(st).Stage, "trading never precedes research verdict")

	st.ResearchDebate.Terminal = true
	st.ResearchDebate.JudgeDecision = "verdict"
	assert.Equal(t, consts.Trader, NextStep(st).Stage)

	st.TraderPlan = "plan"
	st.TraderPlanSet = true
	assert.Equal(t, StepRiskDebate, NextStep(st).Stage, "portfolio never precedes risk verdict")

	st.RiskDebate.Terminal = true
	st.RiskDebate.JudgeDecision = "risk verdict"
	assert.Equal(t, consts.PortfolioManager, NextStep(st).Stage)

	st.Decision = &models.DecisionArtifact{}
	assert.True(t, NextStep(st).Done)
}

func TestAnalystReportIsWriteOnce(t *testing.T) {
	st := routerState()
	assert.NoError(t, st.SetAnalystReport("market", "first"))
	assert.Error(t, st.SetAnalystReport("market", "second"))
	assert.Equal(t, "first", st.AnalystReports["market"])
}
