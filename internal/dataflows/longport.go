package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"github.com/mohaoran/AlphaCouncil/internal/config"
)

// LongportClient fetches HK and A-share daily candlesticks through the
// Longport OpenAPI. It is only constructed when all three credentials are
// present.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg *config.Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}
	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote context: %w", err)
	}
	return &LongportClient{quoteCtx: quoteContext}, nil
}

// DailyBars returns the most recent count daily candlesticks for a symbol,
// e.g. "700.HK" or "600519.SH".
func (lc *LongportClient) DailyBars(ctx context.Context, symbol string, count int) ([]*MarketData, error) {
	if lc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	sticks, err := lc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", symbol, err)
	}

	bars := make([]*MarketData, 0, len(sticks))
	for _, stick := range sticks {
		bars = append(bars, &MarketData{
			Symbol:    symbol,
			Date:      time.Unix(stick.Timestamp, 0),
			Open:      derefDecimal(stick.Open),
			High:      derefDecimal(stick.High),
			Low:       derefDecimal(stick.Low),
			Close:     derefDecimal(stick.Close),
			Volume:    stick.Volume,
			Timestamp: time.Now(),
		})
	}
	return bars, nil
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
