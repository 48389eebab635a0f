package screener

import (
	"fmt"

	"abyss/internal/market"
)

// hibernationResult 携带蛰伏区间的支撑/压力与量能基线，供洗盘与拉升阶段复用。
type hibernationResult struct {
	Evidence   Evidence
	Support    float64
	Resistance float64
	AvgVolume  float64
}

// detectHibernation 检测深跌后的横盘收敛。
// 窗口取最近 washout_window 根之前的 hibernation_window 根，
// 保证蛰伏期先于、且区别于随后的挖坑洗盘。
func detectHibernation(series market.Series, cfg Thresholds) hibernationResult {
	n := series.Len()
	need := cfg.HibernationWindow + cfg.WashoutWindow
	if n < need {
		return hibernationResult{Evidence: failEvidence(EvidenceHibernation,
			fmt.Sprintf("insufficient data: %d bars, need %d", n, need),
			map[string]float64{"bars": float64(n)})}
	}

	end := n - cfg.WashoutWindow
	window := series.Bars[end-cfg.HibernationWindow : end]

	support, resistance := window[0].Low, window[0].High
	var closeSum, volSum float64
	for _, b := range window {
		if b.Low < support {
			support = b.Low
		}
		if b.High > resistance {
			resistance = b.High
		}
		closeSum += b.Close
		volSum += b.Volume
	}
	meanClose := closeSum / float64(len(window))
	avgVolume := volSum / float64(len(window))
	if meanClose <= 0 {
		return hibernationResult{Evidence: failEvidence(EvidenceHibernation,
			"degenerate window: non-positive mean close",
			map[string]float64{"mean_close": meanClose})}
	}

	volatility := (resistance - support) / meanClose
	metrics := map[string]float64{
		"support":    support,
		"resistance": resistance,
		"mean_close": meanClose,
		"volatility": volatility,
		"avg_volume": avgVolume,
	}
	passed := volatility <= cfg.HibernationVolatilityMax
	note := ""
	if !passed {
		note = fmt.Sprintf("range too wide: volatility %.3f > %.3f", volatility, cfg.HibernationVolatilityMax)
	}
	return hibernationResult{
		Evidence:   Evidence{Stage: EvidenceHibernation, Passed: passed, Metrics: metrics, Note: note},
		Support:    support,
		Resistance: resistance,
		AvgVolume:  avgVolume,
	}
}
