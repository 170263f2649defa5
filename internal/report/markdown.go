package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// RenderMarkdown renders the decision narrative as a markdown document.
func RenderMarkdown(decision *models.DecisionArtifact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Analysis Report\n\n", decision.StockSymbol)
	fmt.Fprintf(&b, "- Market: %s\n", decision.MarketType)
	fmt.Fprintf(&b, "- Analysis date: %s\n", decision.AnalysisDate)
	fmt.Fprintf(&b, "- Research depth: %d\n", decision.ResearchDepth)
	fmt.Fprintf(&b, "- Session: %s\n", decision.SessionID)
	if decision.IsDemo {
		fmt.Fprintf(&b, "- Degraded run: %s\n", decision.DemoReason)
	}
	b.WriteString("\n")

	for _, section := range decision.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", section.Title, section.Body)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// Export writes the rendered report under resultsDir/<symbol>/<date>/ and
// returns the file path.
func Export(resultsDir string, decision *models.DecisionArtifact) (string, error) {
	dir := filepath.Join(resultsDir, decision.StockSymbol, decision.AnalysisDate)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "analysis_report.md")
	if err := os.WriteFile(path, []byte(RenderMarkdown(decision)), 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	log.Printf("[Report] written to: %s", path)
	return path, nil
}
