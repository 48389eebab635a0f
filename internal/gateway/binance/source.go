package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"abyss/internal/logger"
	"abyss/internal/market"
)

const maxHistoryLimit = 1000

// Source 通过 Binance REST 拉取日线，作为 market.Loader 的一种实现。
// 用于没有本地 .day 数据时对加密标的跑同一套筛选。
type Source struct {
	cfg    Config
	client *binance.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := binance.NewClient("", "")
	client.HTTPClient.Timeout = final.httpTimeout()
	return &Source{cfg: final, client: client}
}

func (s *Source) LoadBars(ctx context.Context, symbol string) (market.Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return market.Series{}, fmt.Errorf("symbol is required")
	}
	logger.Debugf("[binance] klines %s 1d limit=%d", symbol, s.cfg.Limit)
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval("1d").
		Limit(s.cfg.Limit).
		Do(ctx)
	if err != nil {
		return market.Series{}, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	bars := make([]market.Bar, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, market.Bar{
			Date:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   toFloat(k.Open),
			High:   toFloat(k.High),
			Low:    toFloat(k.Low),
			Close:  toFloat(k.Close),
			Volume: toFloat(k.Volume),
			Amount: toFloat(k.QuoteAssetVolume),
		})
	}
	return market.NewSeries(symbol, market.PeriodDaily, bars)
}

func toFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
