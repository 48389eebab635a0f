package backtest

import (
	"errors"
	"fmt"
	"time"

	"abyss/internal/market"
)

// Config 是单笔模拟的风控参数：固定止损/止盈/持仓时限。
type Config struct {
	StopLossPct       float64 `toml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct     float64 `toml:"take_profit_pct" json:"take_profit_pct"`
	MaxHoldingPeriods int     `toml:"max_holding_periods" json:"max_holding_periods"`
}

func DefaultConfig() Config {
	return Config{StopLossPct: 0.08, TakeProfitPct: 0.15, MaxHoldingPeriods: 30}
}

func (c Config) Validate() error {
	var errs []error
	if c.StopLossPct <= 0 || c.StopLossPct >= 1 {
		errs = append(errs, fmt.Errorf("stop_loss_pct: must be in (0,1), got %v", c.StopLossPct))
	}
	if c.TakeProfitPct <= 0 {
		errs = append(errs, fmt.Errorf("take_profit_pct: must be positive, got %v", c.TakeProfitPct))
	}
	if c.MaxHoldingPeriods <= 0 {
		errs = append(errs, fmt.Errorf("max_holding_periods: must be positive, got %v", c.MaxHoldingPeriods))
	}
	return errors.Join(errs...)
}

// ExitReason 标记平仓原因。
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitTimeStop   ExitReason = "TIME_STOP"
)

// TradeRecord 是一笔已平仓模拟交易，创建后只读。
type TradeRecord struct {
	Symbol         string     `json:"symbol"`
	EntryDate      time.Time  `json:"entry_date"`
	EntryPrice     float64    `json:"entry_price"`
	ExitDate       time.Time  `json:"exit_date"`
	ExitPrice      float64    `json:"exit_price"`
	HoldingPeriods int        `json:"holding_periods"`
	PnLPct         float64    `json:"pnl_pct"`
	MaxProfitPct   float64    `json:"max_profit_pct"`
	MaxDrawdownPct float64    `json:"max_drawdown_pct"`
	PeriodsToPeak  int        `json:"periods_to_peak"`
	ExitReason     ExitReason `json:"exit_reason"`
}

// Replay 从信号位 entryIndex 起模拟一笔多头：下一根 K 线开盘进场（不允许同根成交），
// 逐根向前走，止损先于止盈判定——只有 OHLC 没有盘中路径，同根双触时保守取更差结果。
// 无法建仓（信号在最后一根、开盘价退化）时返回 ok=false。
func Replay(series market.Series, entryIndex int, cfg Config) (TradeRecord, bool) {
	bars := series.Bars
	entryBar := entryIndex + 1
	if entryIndex < 0 || entryBar >= len(bars) {
		return TradeRecord{}, false
	}
	entryPrice := bars[entryBar].Open
	if entryPrice <= 0 {
		return TradeRecord{}, false
	}

	stop := entryPrice * (1 - cfg.StopLossPct)
	target := entryPrice * (1 + cfg.TakeProfitPct)

	trade := TradeRecord{
		Symbol:     series.Symbol,
		EntryDate:  bars[entryBar].Date,
		EntryPrice: entryPrice,
	}

	last := entryBar + cfg.MaxHoldingPeriods - 1
	if last >= len(bars) {
		last = len(bars) - 1
	}
	for i := entryBar; i <= last; i++ {
		bar := bars[i]
		held := i - entryBar + 1

		// 持仓期内最差/最好的盘中偏移，赢单也记录其回撤。
		if dd := (bar.Low - entryPrice) / entryPrice; dd < trade.MaxDrawdownPct {
			trade.MaxDrawdownPct = dd
		}
		if up := (bar.High - entryPrice) / entryPrice; up > trade.MaxProfitPct {
			trade.MaxProfitPct = up
			trade.PeriodsToPeak = held
		}

		if bar.Low <= stop {
			return closeTrade(trade, bar.Date, stop, held, ExitStopLoss), true
		}
		if bar.High >= target {
			return closeTrade(trade, bar.Date, target, held, ExitTakeProfit), true
		}
	}

	final := bars[last]
	return closeTrade(trade, final.Date, final.Close, last-entryBar+1, ExitTimeStop), true
}

func closeTrade(t TradeRecord, date time.Time, price float64, held int, reason ExitReason) TradeRecord {
	t.ExitDate = date
	t.ExitPrice = price
	t.HoldingPeriods = held
	t.PnLPct = (price - t.EntryPrice) / t.EntryPrice
	t.ExitReason = reason
	return t
}
