package screener

import (
	"fmt"

	"abyss/internal/analysis/indicator"
	"abyss/internal/market"
)

// 拉升确认共 4 个独立条件，采取多数表决而非一票否决：
// 嘈杂的技术信号若要求全部同时成立，实盘几乎筛不出任何标的，
// 阈值 min_conditions_met 是刻意的设计选择。
const liftoffConditionCount = 4

// evaluateLiftoff 以给定基线价/基线量评估最近 1-2 根 K 线的起涨迹象。
// stage 用于区分挖坑路径（坑底为基线）与平台路径（蛰伏支撑为基线）。
func evaluateLiftoff(series market.Series, frame indicator.Frame, cfg Thresholds,
	stage string, baselinePrice, baselineVolume float64) Evidence {

	n := series.Len()
	if n < 2 {
		return failEvidence(stage, "insufficient data: need at least 2 bars",
			map[string]float64{"bars": float64(n)})
	}
	if baselinePrice <= 0 {
		return failEvidence(stage, "degenerate baseline price",
			map[string]float64{"baseline_price": baselinePrice})
	}

	latest := series.Bars[n-1]
	prev := series.Bars[n-2]

	// 条件 1：收阳且收高于昨收，当日走强。
	recovering := latest.Close > latest.Open && latest.Close > prev.Close

	// 条件 2：仍贴近基线，起涨要早发现，不追已经涨起来的。
	riseFromBottom := (latest.Close - baselinePrice) / baselinePrice
	nearBaseline := riseFromBottom < cfg.MaxRiseFromBottom

	// 条件 3：量能配合，启动需要有新增参与度。
	volumeConfirm := false
	volumeRatio := 0.0
	if baselineVolume > 0 {
		volumeRatio = latest.Volume / baselineVolume
		volumeConfirm = volumeRatio > cfg.LiftoffVolumeIncreaseRatio
	}

	// 条件 4：RSI 落在配置区间内，有起色但未超买。
	rsi, rsiOK := frame.LastRSI()
	rsiInRange := rsiOK && rsi >= cfg.RSILow && rsi <= cfg.RSIHigh

	met := 0
	for _, ok := range []bool{recovering, nearBaseline, volumeConfirm, rsiInRange} {
		if ok {
			met++
		}
	}

	metrics := map[string]float64{
		"baseline_price":     baselinePrice,
		"baseline_volume":    baselineVolume,
		"latest_close":       latest.Close,
		"latest_volume":      latest.Volume,
		"rise_from_baseline": riseFromBottom,
		"volume_ratio":       volumeRatio,
		"conditions_met":     float64(met),
		"cond_recovering":    boolMetric(recovering),
		"cond_near_baseline": boolMetric(nearBaseline),
		"cond_volume":        boolMetric(volumeConfirm),
		"cond_rsi":           boolMetric(rsiInRange),
	}
	if rsiOK {
		metrics["rsi"] = rsi
	}

	passed := met >= cfg.MinConditionsMet
	note := ""
	if !passed {
		note = fmt.Sprintf("only %d/%d conditions met, need %d", met, liftoffConditionCount, cfg.MinConditionsMet)
	}
	return Evidence{Stage: stage, Passed: passed, Metrics: metrics, Note: note}
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
