package market

import (
	"fmt"
	"time"
)

// Period 表示序列的重采样周期。
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

func (p Period) Valid() bool { return p == PeriodDaily || p == PeriodWeekly }

// Bar 是单个交易周期的 OHLCV 记录，加载后不可变。
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Amount float64   `json:"amount,omitempty"`
}

// Validate 校验单根 K 线的价格包络与成交量。
func (b Bar) Validate() error {
	if b.Date.IsZero() {
		return fmt.Errorf("bar has zero date")
	}
	lo, hi := b.Open, b.Open
	if b.Close < lo {
		lo = b.Close
	}
	if b.Close > hi {
		hi = b.Close
	}
	if b.Low > lo || b.High < hi || b.Low > b.High {
		return fmt.Errorf("bar %s violates low<=open/close<=high (o=%.4f h=%.4f l=%.4f c=%.4f)",
			b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s has negative volume %.2f", b.Date.Format("2006-01-02"), b.Volume)
	}
	return nil
}

// Series 是单只标的按日期升序排列的 K 线序列。
type Series struct {
	Symbol string `json:"symbol"`
	Period Period `json:"period"`
	Bars   []Bar  `json:"bars"`
}

// NewSeries 构造并校验一个序列：symbol 非空、周期合法、日期严格递增、每根 K 线自洽。
func NewSeries(symbol string, period Period, bars []Bar) (Series, error) {
	if symbol == "" {
		return Series{}, fmt.Errorf("symbol is required")
	}
	if !period.Valid() {
		return Series{}, fmt.Errorf("invalid period %q", period)
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return Series{}, fmt.Errorf("%s bar[%d]: %w", symbol, i, err)
		}
		if i > 0 && !bars[i-1].Date.Before(b.Date) {
			return Series{}, fmt.Errorf("%s bar[%d]: dates not strictly increasing (%s >= %s)",
				symbol, i, bars[i-1].Date.Format("2006-01-02"), b.Date.Format("2006-01-02"))
		}
	}
	return Series{Symbol: symbol, Period: period, Bars: bars}, nil
}

func (s Series) Len() int { return len(s.Bars) }

// Last 返回最新一根 K 线；序列为空时 ok=false。
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Tail 返回最近 n 根 K 线（不拷贝，调用方只读）。
func (s Series) Tail(n int) []Bar {
	if n <= 0 || len(s.Bars) == 0 {
		return nil
	}
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	return s.Bars[len(s.Bars)-n:]
}

// Truncate 返回只包含前 n 根 K 线的序列视图，用于历史回放。
func (s Series) Truncate(n int) Series {
	if n < 0 {
		n = 0
	}
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	return Series{Symbol: s.Symbol, Period: s.Period, Bars: s.Bars[:n]}
}

// Closes 将收盘价展开为平行数组，供指标计算使用。
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}
