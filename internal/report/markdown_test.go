package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mohaoran/AlphaCouncil/internal/models"
)

func sampleDecision() *models.DecisionArtifact {
	return &models.DecisionArtifact{
		SessionID:    "sess-1",
		StockSymbol:  "AAPL",
		MarketType:   models.MarketUS,
		AnalysisDate: "2025-06-02",
		ResearchDepth: 2,
		Success:      true,
		FinalDecision: "HOLD",
		Sections: []models.Section{
			{Title: "Market Analysis", Body: "momentum is fading"},
			{Title: "Final Verdict", Body: "HOLD"},
		},
	}
}

func TestRenderMarkdownSectionOrder(t *testing.T) {
	out := RenderMarkdown(sampleDecision())

	require.True(t, strings.HasPrefix(out, "# AAPL Analysis Report"))
	require.Contains(t, out, "- Market: 美股")
	require.Less(t,
		strings.Index(out, "## Market Analysis"),
		strings.Index(out, "## Final Verdict"))
	require.NotContains(t, out, "Degraded run")
}

func TestRenderMarkdownDegradedRun(t *testing.T) {
	decision := sampleDecision()
	decision.IsDemo = true
	decision.DemoReason = "market analyst unavailable"

	out := RenderMarkdown(decision)
	require.Contains(t, out, "- Degraded run: market analyst unavailable")
}

func TestExportWritesUnderSymbolAndDate(t *testing.T) {
	dir := t.TempDir()

	path, err := Export(dir, sampleDecision())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "AAPL", "2025-06-02", "analysis_report.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "## Final Verdict")
}
