package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mohaoran/AlphaCouncil/internal/models"
	"github.com/mohaoran/AlphaCouncil/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(72)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#10B981"))

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	verdictStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981")).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2)
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner() {
	banner := titleStyle.Render("AlphaCouncil — Multi-Agent Trading Analysis")
	fmt.Println()
	fmt.Println(banner)
	fmt.Println()
}

// displayRunHeader prints the run parameters before dispatch starts.
func displayRunHeader(req models.AnalysisRequest) {
	analysts := strings.Join(req.SelectedAnalysts, ", ")
	if analysts == "" {
		analysts = "market, fundamentals (default)"
	}
	header := fmt.Sprintf("🚀 Analyzing %s (%s) on %s\nAnalysts: %s | Depth: %d",
		req.StockSymbol, req.MarketType, req.AnalysisDate, analysts, req.ResearchDepth)
	fmt.Println(headerStyle.Render(header))
}

// progressDisplay prints each stage as the engine dispatches it.
type progressDisplay struct {
	count int
}

func newProgressDisplay() *progressDisplay {
	return &progressDisplay{}
}

func (p *progressDisplay) StageStarted(stage string) {
	p.count++
	fmt.Println(stageStyle.Render(fmt.Sprintf("  [%2d] %s", p.count, stage)))
}

// displayDecision renders the final artifact.
func displayDecision(decision *models.DecisionArtifact, elapsed time.Duration) {
	fmt.Println()
	if decision.IsDemo {
		fmt.Println(warnStyle.Render("⚠️  Degraded run: " + decision.DemoReason))
	}

	for _, section := range decision.Sections {
		fmt.Println(sectionTitleStyle.Render("── " + section.Title))
		fmt.Println(section.Body)
		fmt.Println()
	}

	fmt.Println(verdictStyle.Render("Final Decision: " + decision.FinalDecision))
	fmt.Printf("\n✅ Completed in %s (session %s)\n", elapsed.Round(time.Second), decision.SessionID)
}

// displayFailure renders a failed run.
func displayFailure(failure *models.FailureArtifact) {
	fmt.Println()
	fmt.Println(errorStyle.Render(fmt.Sprintf("❌ Run failed at stage %s (%s)", failure.Stage, failure.Kind)))
	fmt.Println(failure.Reason)
	if len(failure.Provenance) > 0 {
		fmt.Printf("%d stage attempts recorded before the failure\n", len(failure.Provenance))
	}
}

// displayRunHistory renders the stored run list.
func displayRunHistory(runs []storage.RunSummary) {
	if len(runs) == 0 {
		fmt.Println("No analysis runs recorded yet.")
		return
	}

	fmt.Println(sectionTitleStyle.Render("Recent analysis runs"))
	for _, run := range runs {
		line := fmt.Sprintf("%-10s %-6s %-12s depth=%d %-9s %s",
			run.Symbol, run.MarketType, run.AnalysisDate, run.ResearchDepth, run.Status, run.FinalDecision)
		switch run.Status {
		case storage.StatusFailed:
			fmt.Println(errorStyle.Render(line))
		case storage.StatusDegraded:
			fmt.Println(warnStyle.Render(line))
		default:
			fmt.Println(line)
		}
	}
}
