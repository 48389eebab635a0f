package screener

import (
	"fmt"

	"abyss/internal/market"
)

// declineResult 把阶段 0 的中间量带给后续阶段。
type declineResult struct {
	Evidence     Evidence
	LongTermHigh float64
	LongTermLow  float64
}

// detectDeepDecline 检测长期深跌：价格位于长期区间底部、距高点回撤足够深、
// 且近期成交量相对历史持续萎缩。数据不足或区间退化一律 fail closed。
func detectDeepDecline(series market.Series, cfg Thresholds) declineResult {
	n := series.Len()
	if n < cfg.LongTermWindow {
		return declineResult{Evidence: failEvidence(EvidenceDeepDecline,
			fmt.Sprintf("insufficient data: %d bars, need %d", n, cfg.LongTermWindow),
			map[string]float64{"bars": float64(n)})}
	}

	window := series.Tail(cfg.LongTermWindow)
	high, low := window[0].High, window[0].Low
	for _, b := range window {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	if high <= low || high <= 0 {
		return declineResult{Evidence: failEvidence(EvidenceDeepDecline,
			"degenerate price range: flat history has no usable signal",
			map[string]float64{"long_term_high": high, "long_term_low": low})}
	}

	cur := window[len(window)-1].Close
	pricePosition := (cur - low) / (high - low)
	dropPercent := (high - cur) / high

	metrics := map[string]float64{
		"long_term_high": high,
		"long_term_low":  low,
		"current_close":  cur,
		"price_position": pricePosition,
		"drop_percent":   dropPercent,
	}

	shrinkOK, note := volumeShrink(window, cfg, metrics)
	passed := pricePosition <= cfg.PriceLowPercentile &&
		dropPercent >= cfg.MinDropPercent &&
		shrinkOK

	ev := Evidence{Stage: EvidenceDeepDecline, Passed: passed, Metrics: metrics, Note: note}
	return declineResult{Evidence: ev, LongTermHigh: high, LongTermLow: low}
}

// volumeShrink 校验成交量萎缩子条件：
// 近 N 根均量相对窗口前半段均量缩到阈值之下，且缩量天数占比达标。
// 占比检查专门用来排除单日缩量噪声，只有持续缩量才视为抛压枯竭。
func volumeShrink(window []market.Bar, cfg Thresholds, metrics map[string]float64) (bool, string) {
	half := len(window) / 2
	if half == 0 {
		return false, "window too short for volume baseline"
	}
	var histSum float64
	for _, b := range window[:half] {
		histSum += b.Volume
	}
	histAvg := histSum / float64(half)
	if histAvg <= 0 {
		return false, "zero historical volume baseline"
	}

	recentN := cfg.VolumeAnalysisBars
	if recentN > len(window) {
		recentN = len(window)
	}
	recent := window[len(window)-recentN:]
	var recentSum float64
	shrunkDays := 0
	dayCap := histAvg * cfg.VolumeShrinkThreshold
	for _, b := range recent {
		recentSum += b.Volume
		if b.Volume <= dayCap {
			shrunkDays++
		}
	}
	recentAvg := recentSum / float64(len(recent))
	shrinkRatio := recentAvg / histAvg
	consistency := float64(shrunkDays) / float64(len(recent))

	metrics["historical_avg_volume"] = histAvg
	metrics["recent_avg_volume"] = recentAvg
	metrics["volume_shrink_ratio"] = shrinkRatio
	metrics["volume_consistency"] = consistency

	if shrinkRatio > cfg.VolumeShrinkThreshold {
		return false, fmt.Sprintf("volume not shrunk: ratio %.3f > %.3f", shrinkRatio, cfg.VolumeShrinkThreshold)
	}
	if consistency < cfg.VolumeConsistencyThreshold {
		return false, fmt.Sprintf("shrink not sustained: %.3f < %.3f", consistency, cfg.VolumeConsistencyThreshold)
	}
	return true, ""
}
