package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

func TestRunHappyPathDispatchSequence(t *testing.T) {
	inv := newStubInvoker().
		on(consts.ResearchManager, consensusNow("go long")).
		on(consts.RiskJudge, stubResponse{content: "risk acceptable"})

	var dispatched []string
	eng := NewEngine(testConfig(), inv, WithDispatchObserver(func(stage string) {
		dispatched = append(dispatched, stage)
	}))

	art, err := eng.Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, art)

	want := []string{
		consts.MarketAnalyst,
		consts.FundamentalsAnalyst,
		consts.BullResearcher,
		consts.BearResearcher,
		consts.ResearchManager,
		consts.Trader,
		consts.RiskyAnalyst,
		consts.SafeAnalyst,
		consts.NeutralAnalyst,
		consts.RiskJudge,
		consts.PortfolioManager,
	}
	assert.Equal(t, want, dispatched)

	assert.True(t, art.Success)
	assert.Empty(t, art.Error)
	assert.False(t, art.IsDemo)
	assert.Equal(t, 1, art.ResearchRounds)
	assert.Equal(t, 1, art.RiskRounds)
	assert.True(t, art.ConsensusReached)
	assert.Equal(t, "go long", art.ResearchVerdict)
	assert.Equal(t, "risk acceptable", art.RiskVerdict)
	assert.Len(t, art.AnalystReports, 2)
	assert.NotEmpty(t, art.SessionID)
}

func TestRunIsDeterministicWithDeterministicInvoker(t *testing.T) {
	run := func() (*models.DecisionArtifact, []string) {
		inv := newStubInvoker().
			on(consts.ResearchManager, consensusNow("verdict")).
			on(consts.RiskJudge, stubResponse{content: "risk verdict"})

		var dispatched []string
		eng := NewEngine(testConfig(), inv, WithDispatchObserver(func(stage string) {
			dispatched = append(dispatched, stage)
		}))
		art, err := eng.Run(context.Background(), testRequest())
		require.NoError(t, err)
		return art, dispatched
	}

	art1, seq1 := run()
	art2, seq2 := run()

	assert.Equal(t, seq1, seq2)
	assert.Equal(t, art1.AnalystReports, art2.AnalystReports)
	assert.Equal(t, art1.ResearchVerdict, art2.ResearchVerdict)
	assert.Equal(t, art1.TraderPlan, art2.TraderPlan)
	assert.Equal(t, art1.RiskVerdict, art2.RiskVerdict)
	assert.Equal(t, art1.FinalDecision, art2.FinalDecision)
	assert.Equal(t, art1.Sections, art2.Sections)
}

func TestStageOrderingInvariant(t *testing.T) {
	inv := newStubInvoker().
		on(consts.ResearchManager,
			stubResponse{content: "keep debating"},
			consensusNow("final verdict")).
		on(consts.RiskJudge, stubResponse{content: "risk verdict"})

	cfg := testConfig()
	cfg.MaxDebateRounds = 3
	cfg.MaxRiskDiscussRounds = 2

	var dispatched []string
	eng := NewEngine(cfg, inv, WithDispatchObserver(func(stage string) {
		dispatched = append(dispatched, stage)
	}))

	req := testRequest()
	req.SelectedAnalysts = []string{"market", "social", "news", "fundamentals"}
	_, err := eng.Run(context.Background(), req)
	require.NoError(t, err)

	index := func(stage string) int {
		last := -1
		for i, s := range dispatched {
			if s == stage {
				last = i
			}
		}
		return last
	}
	first := func(stage string) int {
		for i, s := range dispatched {
			if s == stage {
				return i
			}
		}
		return -1
	}

	// Analysts precede the research debate, which precedes trading, which
	// precedes the risk debate, which precedes the final decision.
	for _, analyst := range []string{consts.MarketAnalyst, consts.SocialMediaAnalyst, consts.NewsAnalyst, consts.FundamentalsAnalyst} {
		assert.Less(t, index(analyst), first(consts.BullResearcher), "analyst %s after debate start", analyst)
	}
	assert.Less(t, index(consts.ResearchManager), first(consts.Trader))
	assert.Less(t, index(consts.Trader), first(consts.RiskyAnalyst))
	assert.Less(t, index(consts.RiskJudge), first(consts.PortfolioManager))
}

func TestOptionalAnalystPermanentFailureDegradesRun(t *testing.T) {
	inv := newStubInvoker().
		on(consts.FundamentalsAnalyst, stubResponse{err: Permanent("quota exceeded")}).
		on(consts.ResearchManager, consensusNow("verdict")).
		on(consts.RiskJudge, stubResponse{content: "risk verdict"})

	eng := NewEngine(testConfig(), inv)
	art, err := eng.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, art.Success)
	assert.True(t, art.IsDemo)
	assert.Contains(t, art.DemoReason, "fundamentals")
	_, hasFundamentals := art.AnalystReports["fundamentals"]
	assert.False(t, hasFundamentals)
	assert.Contains(t, art.AnalystReports, "market")

	// Permanent failure is not retried.
	assert.Equal(t, 1, inv.callCount(consts.FundamentalsAnalyst))
}

func TestTraderPermanentFailureFailsRun(t *testing.T) {
	inv := newStubInvoker().
		on(consts.ResearchManager, consensusNow("verdict")).
		on(consts.Trader, stubResponse{err: Permanent("invalid plan input")})

	eng := NewEngine(testConfig(), inv)
	art, err := eng.Run(context.Background(), testRequest())
	require.Nil(t, art)
	require.Error(t, err)

	fa, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, consts.Trader, fa.Stage)
	assert.Equal(t, string(KindPermanent), fa.Kind)
	assert.NotEmpty(t, fa.Provenance)
}

func TestTransientFailuresAreRetriedAndRecorded(t *testing.T) {
	inv := newStubInvoker().
		on(consts.BullResearcher,
			stubResponse{err: Transient("upstream 502")},
			stubResponse{err: Transient("upstream 502")},
			stubResponse{content: "bull case"}).
		on(consts.ResearchManager, consensusNow("verdict")).
		on(consts.RiskJudge, stubResponse{content: "risk verdict"})

	eng := NewEngine(testConfig(), inv)
	art, err := eng.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, art.Success)

	var bullAttempts int
	for _, rec := range art.Provenance {
		if rec.Stage == consts.BullResearcher {
			bullAttempts++
		}
	}
	assert.Equal(t, 3, bullAttempts)
	assert.Equal(t, 3, inv.callCount(consts.BullResearcher))
}

func TestRoundCountNeverExceedsConfiguredMax(t *testing.T) {
	for _, limits := range []struct{ research, risk int }{
		{1, 1}, {1, 3}, {2, 1}, {3, 2}, {4, 4},
	} {
		// Arbiters never signal consensus, forcing every debate to its cap.
		inv := newStubInvoker().
			on(consts.ResearchManager, stubResponse{content: "still undecided"}).
			on(consts.RiskJudge, stubResponse{content: "risk verdict"})

		cfg := testConfig()
		cfg.MaxDebateRounds = limits.research
		cfg.MaxRiskDiscussRounds = limits.risk

		eng := NewEngine(cfg, inv)
		art, err := eng.Run(context.Background(), testRequest())
		require.NoError(t, err, "limits %+v", limits)

		assert.Equal(t, limits.research, art.ResearchRounds, "research rounds for %+v", limits)
		assert.Equal(t, limits.risk, art.RiskRounds, "risk rounds for %+v", limits)
		assert.False(t, art.ConsensusReached)
	}
}

func TestConfigurationErrorsFailBeforeAnyStage(t *testing.T) {
	inv := newStubInvoker()
	eng := NewEngine(testConfig(), inv)

	for _, req := range []models.AnalysisRequest{
		{StockSymbol: "", MarketType: models.MarketUS, AnalysisDate: "2025-06-02", ResearchDepth: 1},
		{StockSymbol: "AAPL", MarketType: "nasdaq", AnalysisDate: "2025-06-02", ResearchDepth: 1},
		{StockSymbol: "AAPL", MarketType: models.MarketUS, AnalysisDate: "not-a-date", ResearchDepth: 1},
		{StockSymbol: "AAPL", MarketType: models.MarketUS, AnalysisDate: "2025-06-02", ResearchDepth: 9},
		{StockSymbol: "AAPL", MarketType: models.MarketUS, AnalysisDate: "2025-06-02", ResearchDepth: 1,
			SelectedAnalysts: []string{"astrology"}},
	} {
		art, err := eng.Run(context.Background(), req)
		require.Nil(t, art)
		fa, ok := AsFailure(err)
		require.True(t, ok, "request %+v", req)
		assert.Equal(t, "configuration", fa.Stage)
	}

	// No role was ever invoked.
	for _, stage := range []string{consts.MarketAnalyst, consts.BullResearcher, consts.Trader} {
		assert.Zero(t, inv.callCount(stage))
	}
}

func TestCancellationAbortsRunAndPreservesProvenance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	inv := newStubInvoker()

	// Cancel the run while the bull researcher is mid-flight.
	invoker := RoleInvokerFunc(func(c context.Context, role string, view models.StateView) (*RoleResult, error) {
		if role == consts.BullResearcher {
			cancel()
			<-c.Done()
			return nil, c.Err()
		}
		return inv.Invoke(c, role, view)
	})

	eng := NewEngine(testConfig(), invoker)
	art, err := eng.Run(ctx, testRequest())
	require.Nil(t, art)

	fa, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, string(KindCancelled), fa.Kind)
	assert.NotEmpty(t, fa.Provenance, "partial provenance must survive cancellation")
}

func TestDefaultAnalystSelection(t *testing.T) {
	inv := newStubInvoker().
		on(consts.ResearchManager, consensusNow("verdict")).
		on(consts.RiskJudge, stubResponse{content: "risk verdict"})

	eng := NewEngine(testConfig(), inv)
	req := testRequest()
	req.SelectedAnalysts = nil

	art, err := eng.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"market", "fundamentals"}, art.SelectedAnalysts)
}
