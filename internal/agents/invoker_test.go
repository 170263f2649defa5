package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/mohaoran/AlphaCouncil/consts"
	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
	"github.com/mohaoran/AlphaCouncil/internal/workflow"
)

type stubChatModel struct {
	reply    string
	err      error
	lastSent []*schema.Message
}

func (s *stubChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	s.lastSent = in
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply, nil), nil
}

func (s *stubChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (s *stubChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func testView() models.StateView {
	return models.StateView{
		StockSymbol:  "AAPL",
		MarketType:   models.MarketUS,
		AnalysisDate: "2025-06-02",
		ResearchDepth: 3,
		AnalystReports: map[string]string{
			consts.AnalystMarket: "momentum looks strong",
		},
	}
}

func TestInvokeFormatsRolePrompt(t *testing.T) {
	cm := &stubChatModel{reply: "sentiment is improving"}
	inv := NewLLMInvoker(config.DefaultConfig(), cm, nil)

	result, err := inv.Invoke(context.Background(), consts.SocialMediaAnalyst, testView())
	require.NoError(t, err)
	require.Equal(t, "sentiment is improving", result.Content)
	require.False(t, result.ConsensusReached)

	require.Len(t, cm.lastSent, 1)
	require.Contains(t, cm.lastSent[0].Content, "AAPL")
	require.Contains(t, cm.lastSent[0].Content, "2025-06-02")
	require.Contains(t, cm.lastSent[0].Content, "standard")
}

func TestInvokeUnknownRoleIsPermanent(t *testing.T) {
	inv := NewLLMInvoker(config.DefaultConfig(), &stubChatModel{reply: "x"}, nil)

	_, err := inv.Invoke(context.Background(), "janitor", testView())
	require.Error(t, err)
	require.Equal(t, workflow.KindPermanent, workflow.Classify(err))
}

func TestInvokeEmptyResponseIsRetryable(t *testing.T) {
	inv := NewLLMInvoker(config.DefaultConfig(), &stubChatModel{reply: "   "}, nil)

	_, err := inv.Invoke(context.Background(), consts.Trader, testView())
	require.Error(t, err)
	require.Equal(t, workflow.KindTransient, workflow.Classify(err))
}

func TestResearchManagerConsensusMarker(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		consensus bool
		verdict   string
	}{
		{
			name:      "consensus yes",
			reply:     "CONSENSUS_REACHED: yes\nBuy on the bull case.",
			consensus: true,
			verdict:   "Buy on the bull case.",
		},
		{
			name:      "consensus no",
			reply:     "CONSENSUS_REACHED: no\nNeed another round.",
			consensus: false,
			verdict:   "Need another round.",
		},
		{
			name:      "missing marker reads as no consensus",
			reply:     "Buy on the bull case.",
			consensus: false,
			verdict:   "Buy on the bull case.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := NewLLMInvoker(config.DefaultConfig(), &stubChatModel{reply: tc.reply}, nil)
			result, err := inv.Invoke(context.Background(), consts.ResearchManager, testView())
			require.NoError(t, err)
			require.Equal(t, tc.consensus, result.ConsensusReached)
			require.Equal(t, tc.verdict, result.Content)
		})
	}
}

func TestReportsBlockCanonicalOrder(t *testing.T) {
	view := testView()
	view.AnalystReports[consts.AnalystFundamentals] = "valuation is rich"

	block := reportsBlock(view)
	market := strings.Index(block, "momentum looks strong")
	fundamentals := strings.Index(block, "valuation is rich")
	require.GreaterOrEqual(t, market, 0)
	require.GreaterOrEqual(t, fundamentals, 0)
	require.Less(t, market, fundamentals)
}
