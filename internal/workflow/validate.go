package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// ValidateRequest checks the run parameters before any stage executes.
// Failures here are configuration errors: the run never starts.
func ValidateRequest(req models.AnalysisRequest) error {
	symbol := strings.TrimSpace(strings.ToUpper(req.StockSymbol))
	if symbol == "" {
		return &InvocationError{Kind: KindConfig, Message: "stock symbol is required"}
	}
	if len(symbol) > 10 || !symbolPattern.MatchString(symbol) {
		return &InvocationError{Kind: KindConfig, Message: fmt.Sprintf("invalid stock symbol %q", req.StockSymbol)}
	}

	if _, err := models.ParseMarketType(string(req.MarketType)); err != nil {
		return &InvocationError{Kind: KindConfig, Message: err.Error()}
	}

	if req.ResearchDepth < 1 || req.ResearchDepth > 5 {
		return &InvocationError{Kind: KindConfig, Message: fmt.Sprintf("research depth %d out of range 1-5", req.ResearchDepth)}
	}

	for _, a := range req.SelectedAnalysts {
		if _, ok := consts.AnalystStages[a]; !ok {
			return &InvocationError{Kind: KindConfig, Message: fmt.Sprintf("unknown analyst kind %q", a)}
		}
	}

	date, err := time.Parse("2006-01-02", req.AnalysisDate)
	if err != nil {
		return &InvocationError{Kind: KindConfig, Message: fmt.Sprintf("invalid analysis date %q, want YYYY-MM-DD", req.AnalysisDate)}
	}
	if date.After(time.Now().AddDate(0, 0, 1)) {
		return &InvocationError{Kind: KindConfig, Message: fmt.Sprintf("analysis date %s is in the future", req.AnalysisDate)}
	}

	return nil
}
