package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"abyss/internal/market"
	"abyss/internal/screener"
)

// klineChartBars 控制 K 线图只画最近这么多根，整段历史画出来没法看。
const klineChartBars = 160

// WriteHTML 渲染一轮扫描的 HTML 报告：漏斗柱状图 + 每只终态标的的 K 线。
// seriesBySymbol 允许为空（比如只想要漏斗图）。
func WriteHTML(path string, sum screener.Summary, seriesBySymbol map[string]market.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("abyss scan %s", sum.RunID[:8])
	page.AddCharts(funnelChart(sum))
	for _, r := range sum.Launched() {
		series, ok := seriesBySymbol[r.Symbol]
		if !ok || series.Len() == 0 {
			continue
		}
		page.AddCharts(klineChart(r, series))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return page.Render(f)
}

func funnelChart(sum screener.Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "阶段漏斗",
			Subtitle: fmt.Sprintf("period=%s evaluated=%d skipped=%d", sum.Period, len(sum.Results), sum.Skipped),
		}),
	)
	stages := []screener.Stage{
		screener.StageNotDeclined,
		screener.StageDeclined,
		screener.StageHibernating,
		screener.StageLaunched,
	}
	labels := make([]string, 0, len(stages))
	values := make([]opts.BarData, 0, len(stages))
	for _, st := range stages {
		labels = append(labels, st.String())
		values = append(values, opts.BarData{Value: sum.StageCounts[st]})
	}
	bar.SetXAxis(labels).AddSeries("symbols", values)
	return bar
}

func klineChart(r screener.FunnelResult, series market.Series) *charts.Kline {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    r.Symbol,
			Subtitle: fmt.Sprintf("path=%s close=%.3f", r.Path, r.LastClose),
		}),
		charts.WithXAxisOpts(opts.XAxis{Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	bars := series.Tail(klineChartBars)
	dates := make([]string, 0, len(bars))
	values := make([]opts.KlineData, 0, len(bars))
	for _, b := range bars {
		dates = append(dates, b.Date.Format("2006-01-02"))
		values = append(values, opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}})
	}
	kline.SetXAxis(dates).AddSeries("kline", values)
	return kline
}
