package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
	"github.com/mohaoran/AlphaCouncil/internal/workflow"
)

// consensusMarker is the first line the research manager prompt asks for.
// The marker is parsed into the explicit consensus signal and stripped from
// the stored verdict.
const consensusMarker = "CONSENSUS_REACHED:"

// MarketDataProvider supplies live market context for analyst prompts.
// A fetch failure degrades the prompt, never the run.
type MarketDataProvider interface {
	MarketSnapshot(ctx context.Context, symbol string, market models.MarketType) (string, error)
	RecentHeadlines(ctx context.Context, symbol string) (string, error)
}

// promptPaths maps each workflow role to its embedded template.
var promptPaths = map[string]string{
	consts.MarketAnalyst:       "analysts/market",
	consts.SocialMediaAnalyst:  "analysts/social",
	consts.NewsAnalyst:         "analysts/news",
	consts.FundamentalsAnalyst: "analysts/fundamentals",
	consts.BullResearcher:      "researchers/bull",
	consts.BearResearcher:      "researchers/bear",
	consts.ResearchManager:     "managers/research_manager",
	consts.Trader:              "trader",
	consts.RiskyAnalyst:        "risk/risky",
	consts.SafeAnalyst:         "risk/safe",
	consts.NeutralAnalyst:      "risk/neutral",
	consts.RiskJudge:           "risk/judge",
	consts.PortfolioManager:    "portfolio_manager",
}

// LLMInvoker drives every workflow role through a single chat model,
// selecting the role's prompt template and formatting it from the state
// snapshot.
type LLMInvoker struct {
	cfg   *config.Config
	model model.ChatModel
	data  MarketDataProvider
}

// NewLLMInvoker builds the invoker. data may be nil, in which case analyst
// prompts run without live market context.
func NewLLMInvoker(cfg *config.Config, cm model.ChatModel, data MarketDataProvider) *LLMInvoker {
	return &LLMInvoker{cfg: cfg, model: cm, data: data}
}

// Invoke formats the role's prompt from the snapshot, generates a response
// and parses the arbiter consensus marker when present.
func (inv *LLMInvoker) Invoke(ctx context.Context, role string, view models.StateView) (*workflow.RoleResult, error) {
	path, ok := promptPaths[role]
	if !ok {
		return nil, workflow.Permanent("no prompt registered for role %s", role)
	}
	tpl, err := LoadPrompt(path)
	if err != nil {
		return nil, workflow.Permanent("load prompt: %v", err)
	}

	vars := inv.promptVars(ctx, role, view)
	messages, err := prompt.FromMessages(schema.FString,
		schema.UserMessage(tpl),
	).Format(ctx, vars)
	if err != nil {
		return nil, workflow.Permanent("format %s prompt: %v", role, err)
	}

	resp, err := inv.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", role, err)
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, fmt.Errorf("%s returned an empty response", role)
	}

	result := &workflow.RoleResult{Content: content}
	if role == consts.ResearchManager {
		result.Content, result.ConsensusReached = parseConsensusMarker(content)
	}
	return result, nil
}

// promptVars assembles the template variables each role prompt expects.
func (inv *LLMInvoker) promptVars(ctx context.Context, role string, view models.StateView) map[string]any {
	vars := map[string]any{
		"stock_symbol":  view.StockSymbol,
		"market_type":   string(view.MarketType),
		"analysis_date": view.AnalysisDate,
		"thoroughness":  inv.thoroughness(view.ResearchDepth),
	}
	switch role {
	case consts.MarketAnalyst:
		vars["market_data"] = inv.marketSnapshot(ctx, view)
	case consts.NewsAnalyst:
		vars["headlines"] = inv.headlines(ctx, view)
	case consts.BullResearcher, consts.BearResearcher:
		vars["reports"] = reportsBlock(view)
		vars["history"] = debateHistory(view.ResearchHistory)
	case consts.ResearchManager:
		vars["history"] = debateHistory(view.ResearchHistory)
	case consts.Trader:
		vars["research_verdict"] = view.ResearchVerdict
		vars["reports"] = reportsBlock(view)
	case consts.RiskyAnalyst, consts.SafeAnalyst, consts.NeutralAnalyst, consts.RiskJudge:
		vars["trader_plan"] = view.TraderPlan
		vars["history"] = debateHistory(view.RiskHistory)
	case consts.PortfolioManager:
		vars["research_verdict"] = view.ResearchVerdict
		vars["trader_plan"] = view.TraderPlan
		vars["risk_verdict"] = view.RiskVerdict
	}
	return vars
}

func (inv *LLMInvoker) thoroughness(depth int) string {
	settings, err := inv.cfg.DepthSettingsFor(depth)
	if err != nil {
		return "standard"
	}
	return settings.Thoroughness
}

func (inv *LLMInvoker) marketSnapshot(ctx context.Context, view models.StateView) string {
	if inv.data == nil {
		return "(live market data unavailable)"
	}
	snapshot, err := inv.data.MarketSnapshot(ctx, view.StockSymbol, view.MarketType)
	if err != nil || strings.TrimSpace(snapshot) == "" {
		return "(live market data unavailable)"
	}
	return snapshot
}

func (inv *LLMInvoker) headlines(ctx context.Context, view models.StateView) string {
	if inv.data == nil {
		return "(no recent headlines available)"
	}
	headlines, err := inv.data.RecentHeadlines(ctx, view.StockSymbol)
	if err != nil || strings.TrimSpace(headlines) == "" {
		return "(no recent headlines available)"
	}
	return headlines
}

// reportsBlock joins the analyst artifacts in canonical order so the same
// state always yields the same prompt.
func reportsBlock(view models.StateView) string {
	var b strings.Builder
	for _, kind := range consts.AnalystOrder {
		report, ok := view.AnalystReports[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", kind, report)
	}
	if b.Len() == 0 {
		return "(no analyst reports available)"
	}
	return strings.TrimSpace(b.String())
}

func debateHistory(history string) string {
	if strings.TrimSpace(history) == "" {
		return "(the debate has not started)"
	}
	return history
}

// parseConsensusMarker splits the arbiter's marker line from the verdict
// body. A missing or malformed marker reads as no consensus.
func parseConsensusMarker(content string) (verdict string, consensus bool) {
	line, rest, found := strings.Cut(content, "\n")
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), consensusMarker) {
		return content, false
	}
	answer := strings.TrimSpace(line[strings.Index(line, ":")+1:])
	if !found {
		rest = ""
	}
	verdict = strings.TrimSpace(rest)
	if verdict == "" {
		verdict = content
	}
	return verdict, strings.EqualFold(answer, "yes")
}
