package backtest

// Stats 是一批模拟交易的聚合统计。
type Stats struct {
	Trades          int                `json:"trades"`
	Wins            int                `json:"wins"`
	WinRate         float64            `json:"win_rate"`
	AvgPnLPct       float64            `json:"avg_pnl_pct"`
	AvgMaxProfitPct float64            `json:"avg_max_profit_pct"`
	AvgDrawdownPct  float64            `json:"avg_drawdown_pct"`
	AvgPeriodsToPeak float64           `json:"avg_periods_to_peak"`
	ExitCounts      map[ExitReason]int `json:"exit_counts"`
}

// Summarize 聚合交易记录；空输入返回零值统计而非错误。
func Summarize(trades []TradeRecord) Stats {
	stats := Stats{Trades: len(trades), ExitCounts: make(map[ExitReason]int, 3)}
	if len(trades) == 0 {
		return stats
	}
	var pnl, maxProfit, drawdown, toPeak float64
	for _, t := range trades {
		if t.PnLPct > 0 {
			stats.Wins++
		}
		pnl += t.PnLPct
		maxProfit += t.MaxProfitPct
		drawdown += t.MaxDrawdownPct
		toPeak += float64(t.PeriodsToPeak)
		stats.ExitCounts[t.ExitReason]++
	}
	n := float64(len(trades))
	stats.WinRate = float64(stats.Wins) / n
	stats.AvgPnLPct = pnl / n
	stats.AvgMaxProfitPct = maxProfit / n
	stats.AvgDrawdownPct = drawdown / n
	stats.AvgPeriodsToPeak = toPeak / n
	return stats
}
