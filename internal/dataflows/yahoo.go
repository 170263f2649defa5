package dataflows

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/mohaoran/AlphaCouncil/internal/config"
)

// YahooClient fetches US market quotes and daily bars from Yahoo Finance.
type YahooClient struct {
	cache *CacheManager
}

func NewYahooClient(cfg *config.Config) *YahooClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo")
	return &YahooClient{
		cache: NewCacheManager(cacheDir, 24*time.Hour, cfg.CacheEnabled),
	}
}

// Quote returns the latest quote for a symbol collapsed into a single bar.
func (yc *YahooClient) Quote(symbol string) (*MarketData, error) {
	var cached MarketData
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("yahoo quote %s: no data", symbol)
	}

	result := &MarketData{
		Symbol:    symbol,
		Date:      time.Now(),
		Open:      decimal.NewFromFloat(q.RegularMarketOpen),
		High:      decimal.NewFromFloat(q.RegularMarketDayHigh),
		Low:       decimal.NewFromFloat(q.RegularMarketDayLow),
		Close:     decimal.NewFromFloat(q.RegularMarketPrice),
		Volume:    int64(q.RegularMarketVolume),
		Timestamp: time.Now(),
	}
	yc.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// History returns daily bars for the trailing window ending at end.
func (yc *YahooClient) History(symbol string, end time.Time, days int) ([]*MarketData, error) {
	start := end.AddDate(0, 0, -days)
	cacheKey := map[string]any{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}
	var cached []*MarketData
	if yc.cache.Get("yahoo", "history", cacheKey, &cached) {
		return cached, nil
	}

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	result := make([]*MarketData, 0, days)
	for iter.Next() {
		bar := iter.Bar()
		result = append(result, &MarketData{
			Symbol:    symbol,
			Date:      time.Unix(int64(bar.Timestamp), 0),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
			Timestamp: time.Now(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo history %s: %w", symbol, err)
	}

	yc.cache.Set("yahoo", "history", cacheKey, result)
	return result, nil
}
