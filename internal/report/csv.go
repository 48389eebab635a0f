package report

import (
	"strconv"
	"strings"

	"abyss/internal/backtest"
	"abyss/internal/screener"
)

// BuildSignalsCSV 生成信号 CSV，首行包含列头。下游 sink 决定落地方式。
func BuildSignalsCSV(results []screener.FunnelResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Symbol,Stage,Path,Date,Close\n")
	for _, r := range results {
		b.WriteString(r.Symbol)
		b.WriteByte(',')
		b.WriteString(r.HighestStage.String())
		b.WriteByte(',')
		b.WriteString(string(r.Path))
		b.WriteByte(',')
		b.WriteString(r.LastDate.Format("2006-01-02"))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(r.LastClose, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// BuildTradesCSV 生成回测成交 CSV。
func BuildTradesCSV(trades []backtest.TradeRecord) string {
	if len(trades) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Symbol,EntryDate,EntryPrice,ExitDate,ExitPrice,Held,PnLPct,Reason\n")
	for _, t := range trades {
		cols := []string{
			t.Symbol,
			t.EntryDate.Format("2006-01-02"),
			strconv.FormatFloat(t.EntryPrice, 'f', 4, 64),
			t.ExitDate.Format("2006-01-02"),
			strconv.FormatFloat(t.ExitPrice, 'f', 4, 64),
			strconv.Itoa(t.HoldingPeriods),
			strconv.FormatFloat(t.PnLPct, 'f', 4, 64),
			string(t.ExitReason),
		}
		b.WriteString(strings.Join(cols, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
