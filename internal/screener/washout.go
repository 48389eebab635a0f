package screener

import (
	"fmt"

	"abyss/internal/market"
)

// washoutResult 携带坑底价，作为路径 A 拉升确认的基线。
type washoutResult struct {
	Evidence Evidence
	PitLow   float64
}

// detectWashout 检测对蛰伏支撑位的末段缩量下破（挖坑）。
// 下破必须发生在比本已清淡的蛰伏量能更低的成交量上，才视为无真实抛压的洗盘。
func detectWashout(series market.Series, cfg Thresholds, hib hibernationResult) washoutResult {
	n := series.Len()
	if n < cfg.WashoutWindow {
		return washoutResult{Evidence: failEvidence(EvidenceWashout,
			fmt.Sprintf("insufficient data: %d bars, need %d", n, cfg.WashoutWindow),
			map[string]float64{"bars": float64(n)})}
	}
	if hib.Support <= 0 || hib.AvgVolume <= 0 {
		return washoutResult{Evidence: failEvidence(EvidenceWashout,
			"degenerate hibernation baseline",
			map[string]float64{"support": hib.Support, "hibernation_avg_volume": hib.AvgVolume})}
	}

	recent := series.Tail(cfg.WashoutWindow)
	pitLow := recent[0].Low
	var belowSum float64
	belowCount := 0
	for _, b := range recent {
		if b.Low < pitLow {
			pitLow = b.Low
		}
		if b.Low < hib.Support {
			belowSum += b.Volume
			belowCount++
		}
	}

	metrics := map[string]float64{
		"pit_low":         pitLow,
		"support":         hib.Support,
		"undercut_bars":   float64(belowCount),
		"break_threshold": hib.Support * cfg.WashoutBreakThreshold,
	}

	if pitLow >= hib.Support*cfg.WashoutBreakThreshold {
		return washoutResult{Evidence: failEvidence(EvidenceWashout,
			fmt.Sprintf("no undercut: pit %.3f >= %.3f", pitLow, hib.Support*cfg.WashoutBreakThreshold),
			metrics), PitLow: pitLow}
	}
	if belowCount == 0 {
		return washoutResult{Evidence: failEvidence(EvidenceWashout,
			"no bars traded below support", metrics), PitLow: pitLow}
	}

	belowAvg := belowSum / float64(belowCount)
	volumeRatio := belowAvg / hib.AvgVolume
	metrics["undercut_avg_volume"] = belowAvg
	metrics["undercut_volume_ratio"] = volumeRatio

	passed := volumeRatio <= cfg.WashoutVolumeShrinkRatio
	note := ""
	if !passed {
		note = fmt.Sprintf("undercut on heavy volume: ratio %.3f > %.3f", volumeRatio, cfg.WashoutVolumeShrinkRatio)
	}
	return washoutResult{
		Evidence: Evidence{Stage: EvidenceWashout, Passed: passed, Metrics: metrics, Note: note},
		PitLow:   pitLow,
	}
}
