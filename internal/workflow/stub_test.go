package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

// stubResponse scripts one invocation of a role.
type stubResponse struct {
	content   string
	consensus bool
	err       error
	delay     time.Duration
}

// stubInvoker is a deterministic role invoker: scripted responses per role,
// repeating the last entry once the script is exhausted. Roles without a
// script succeed with a synthesized statement.
type stubInvoker struct {
	mu     sync.Mutex
	script map[string][]stubResponse
	calls  map[string]int
}

func newStubInvoker() *stubInvoker {
	return &stubInvoker{
		script: make(map[string][]stubResponse),
		calls:  make(map[string]int),
	}
}

func (s *stubInvoker) on(role string, responses ...stubResponse) *stubInvoker {
	s.script[role] = append(s.script[role], responses...)
	return s
}

func (s *stubInvoker) callCount(role string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[role]
}

func (s *stubInvoker) Invoke(ctx context.Context, role string, view models.StateView) (*RoleResult, error) {
	s.mu.Lock()
	n := s.calls[role]
	s.calls[role] = n + 1
	script := s.script[role]
	s.mu.Unlock()

	var resp stubResponse
	switch {
	case len(script) == 0:
		resp = stubResponse{content: fmt.Sprintf("%s statement %d for %s", role, n+1, view.StockSymbol)}
	case n < len(script):
		resp = script[n]
	default:
		resp = script[len(script)-1]
	}

	if resp.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resp.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return &RoleResult{Content: resp.content, ConsensusReached: resp.consensus}, nil
}

// consensusNow scripts an arbiter that signals consensus on its first look.
func consensusNow(content string) stubResponse {
	return stubResponse{content: content, consensus: true}
}

func testConfig() *config.Config {
	return &config.Config{
		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
		MaxParallelAnalysts:  2,
		Retry: config.RetryPolicy{
			MaxAttempts:  3,
			BaseDelay:    time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
			StageTimeout: 200 * time.Millisecond,
		},
	}
}

func testRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		StockSymbol:      "AAPL",
		MarketType:       models.MarketUS,
		AnalysisDate:     "2025-06-02",
		SelectedAnalysts: []string{"market", "fundamentals"},
		ResearchDepth:    1,
	}
}
