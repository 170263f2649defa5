package dataflows

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
)

const (
	snapshotDays = 30
	maxHeadlines = 10
)

// Provider routes market data requests to the venue-appropriate client and
// renders the results as prompt-ready text. US symbols go through Yahoo
// Finance, HK and A-share symbols through Longport when credentials are
// configured.
type Provider struct {
	yahoo    *YahooClient
	longport *LongportClient
	news     *NewsClient
}

func NewProvider(cfg *config.Config) *Provider {
	p := &Provider{
		yahoo: NewYahooClient(cfg),
		news:  NewNewsClient(cfg),
	}
	lp, err := NewLongportClient(cfg)
	if err != nil {
		log.Printf("[Dataflows] Longport disabled: %v", err)
	} else {
		p.longport = lp
	}
	return p
}

// MarketSnapshot returns a text summary of recent price action for the
// analyst prompts.
func (p *Provider) MarketSnapshot(ctx context.Context, symbol string, market models.MarketType) (string, error) {
	bars, err := p.fetchBars(ctx, symbol, market)
	if err != nil {
		return "", err
	}
	return formatSnapshot(bars), nil
}

func (p *Provider) fetchBars(ctx context.Context, symbol string, market models.MarketType) ([]*MarketData, error) {
	switch market {
	case models.MarketUS:
		return p.yahoo.History(symbol, time.Now(), snapshotDays)
	case models.MarketHK, models.MarketCN:
		if p.longport == nil {
			return nil, fmt.Errorf("no quote provider configured for %s", market)
		}
		return p.longport.DailyBars(ctx, venueSymbol(symbol, market), snapshotDays)
	default:
		return nil, fmt.Errorf("unknown market type %q", market)
	}
}

// RecentHeadlines returns recent news headlines about the symbol as a
// bulleted list.
func (p *Provider) RecentHeadlines(_ context.Context, symbol string) (string, error) {
	articles, err := p.news.Search(symbol+" stock", maxHeadlines)
	if err != nil {
		return "", err
	}
	return formatHeadlines(articles), nil
}

// venueSymbol appends the exchange suffix Longport expects. Shanghai
// listings start with 6, everything else on the mainland trades in
// Shenzhen.
func venueSymbol(symbol string, market models.MarketType) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	switch market {
	case models.MarketHK:
		return symbol + ".HK"
	case models.MarketCN:
		if strings.HasPrefix(symbol, "6") {
			return symbol + ".SH"
		}
		return symbol + ".SZ"
	}
	return symbol
}

func formatSnapshot(bars []*MarketData) string {
	if len(bars) == 0 {
		return ""
	}
	latest := bars[len(bars)-1]
	first := bars[0]

	high := latest.High
	low := latest.Low
	var volume int64
	for _, b := range bars {
		if b.High.GreaterThan(high) {
			high = b.High
		}
		if b.Low.LessThan(low) && b.Low.GreaterThan(decimal.Zero) {
			low = b.Low
		}
		volume += b.Volume
	}
	avgVolume := volume / int64(len(bars))

	var b strings.Builder
	fmt.Fprintf(&b, "Latest close: %s (%s)\n", latest.Close.StringFixed(2), latest.Date.Format("2006-01-02"))
	if first.Close.GreaterThan(decimal.Zero) {
		change := latest.Close.Sub(first.Close).Div(first.Close).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(&b, "Change over %d sessions: %s%%\n", len(bars), change.StringFixed(2))
	}
	fmt.Fprintf(&b, "Range: %s - %s\n", low.StringFixed(2), high.StringFixed(2))
	fmt.Fprintf(&b, "Average daily volume: %d\n", avgVolume)
	return strings.TrimSpace(b.String())
}

func formatHeadlines(articles []*NewsArticle) string {
	if len(articles) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", a.Title, a.Source, a.PublishedAt.Format("2006-01-02"))
	}
	return strings.TrimSpace(b.String())
}
