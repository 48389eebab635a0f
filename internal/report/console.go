package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"abyss/internal/backtest"
	"abyss/internal/screener"
)

// WriteFunnelTable 输出漏斗分布与终态标的的文本报告。
// 即使没有任何标的到达终态，漏斗分布也照常输出——这是调参的主要反馈。
func WriteFunnelTable(w io.Writer, sum screener.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("漏斗分析 %s (%s)", sum.RunID[:8], sum.Period))
	t.AppendHeader(table.Row{"阶段", "到达数", "占比"})
	evaluated := len(sum.Results)
	for _, stage := range []screener.Stage{
		screener.StageLaunched,
		screener.StageHibernating,
		screener.StageDeclined,
		screener.StageNotDeclined,
	} {
		count := sum.StageCounts[stage]
		ratio := 0.0
		if evaluated > 0 {
			ratio = float64(count) / float64(evaluated)
		}
		t.AppendRow(table.Row{stage.String(), count, fmt.Sprintf("%.1f%%", ratio*100)})
	}
	t.AppendFooter(table.Row{"evaluated / skipped", evaluated, sum.Skipped})
	t.Render()

	launched := sum.Launched()
	if len(launched) == 0 {
		fmt.Fprintln(w, "no launched signals this run")
		return
	}
	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetTitle("终态信号")
	st.AppendHeader(table.Row{"代码", "路径", "收盘", "日期"})
	for _, r := range launched {
		st.AppendRow(table.Row{r.Symbol, string(r.Path), fmt.Sprintf("%.3f", r.LastClose),
			r.LastDate.Format("2006-01-02")})
	}
	st.Render()
}

// WriteBacktestTable 输出历史信号回测统计表。
func WriteBacktestTable(w io.Writer, list []backtest.Verification) {
	if len(list) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("历史信号回测")
	t.AppendHeader(table.Row{"代码", "信号", "成交", "胜率", "均收益", "均最大浮盈", "均回撤", "均达峰"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	for _, v := range list {
		t.AppendRow(table.Row{
			v.Symbol, v.Signals, v.Stats.Trades,
			fmt.Sprintf("%.1f%%", v.Stats.WinRate*100),
			fmt.Sprintf("%+.2f%%", v.Stats.AvgPnLPct*100),
			fmt.Sprintf("%+.2f%%", v.Stats.AvgMaxProfitPct*100),
			fmt.Sprintf("%.2f%%", v.Stats.AvgDrawdownPct*100),
			fmt.Sprintf("%.1f", v.Stats.AvgPeriodsToPeak),
		})
	}
	t.Render()
}
