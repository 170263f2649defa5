package workflow

import (
	"fmt"
	"strings"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

var analystSectionTitles = map[string]string{
	consts.AnalystMarket:       "Market Analysis",
	consts.AnalystSocial:       "Social Sentiment Analysis",
	consts.AnalystNews:         "News Analysis",
	consts.AnalystFundamentals: "Fundamentals Analysis",
}

// Aggregate assembles the terminal state into the final decision artifact.
// It never mutates state. Section ordering is fixed: analysts, research
// debate, trading plan, risk debate, final verdict.
func Aggregate(st *models.AnalysisState, finalDecision string) *models.DecisionArtifact {
	reports := make(map[string]string, len(st.AnalystReports))
	for k, v := range st.AnalystReports {
		reports[k] = v
	}

	art := &models.DecisionArtifact{
		SessionID:        st.SessionID,
		StockSymbol:      st.Request.StockSymbol,
		MarketType:       st.Request.MarketType,
		AnalysisDate:     st.Request.AnalysisDate,
		SelectedAnalysts: append([]string(nil), st.Request.SelectedAnalysts...),
		ResearchDepth:    st.Request.ResearchDepth,
		AnalystReports:   reports,
		ResearchVerdict:  st.ResearchDebate.JudgeDecision,
		ResearchRounds:   st.ResearchDebate.RoundCount,
		ConsensusReached: st.ResearchDebate.ConsensusReached,
		TraderPlan:       st.TraderPlan,
		RiskVerdict:      st.RiskDebate.JudgeDecision,
		RiskRounds:       st.RiskDebate.RoundCount,
		FinalDecision:    finalDecision,
		Success:          true,
		Provenance:       append([]models.StageRecord(nil), st.Provenance...),
	}

	if len(st.AnalystFailures) > 0 {
		art.IsDemo = true
		art.DemoReason = demoReason(st)
	}

	for _, kind := range st.Request.SelectedAnalysts {
		report, ok := st.AnalystReports[kind]
		if !ok {
			continue
		}
		art.Sections = append(art.Sections, models.Section{
			Title: analystSectionTitles[kind],
			Body:  report,
		})
	}
	art.Sections = append(art.Sections,
		models.Section{Title: "Research Debate", Body: debateBody(&st.ResearchDebate)},
		models.Section{Title: "Trading Plan", Body: st.TraderPlan},
		models.Section{Title: "Risk Debate", Body: debateBody(&st.RiskDebate)},
		models.Section{Title: "Final Verdict", Body: finalDecision},
	)

	return art
}

func debateBody(d *models.DebateState) string {
	var b strings.Builder
	if h := d.History(); h != "" {
		b.WriteString(h)
		b.WriteString("\n\n")
	}
	b.WriteString("Verdict: ")
	b.WriteString(d.JudgeDecision)
	return b.String()
}

func demoReason(st *models.AnalysisState) string {
	var parts []string
	for _, kind := range st.Request.SelectedAnalysts {
		if reason, ok := st.AnalystFailures[kind]; ok {
			parts = append(parts, fmt.Sprintf("%s analyst unavailable (%s)", kind, reason))
		}
	}
	return strings.Join(parts, "; ")
}
