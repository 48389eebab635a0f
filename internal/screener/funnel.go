package screener

import (
	"time"

	"abyss/internal/analysis/indicator"
	"abyss/internal/market"
)

// FunnelResult 是一次分类的完整结果：最高到达阶段、达成路径与全部证据链。
// 每次扫描为每只标的生成一份，生成后只读。
type FunnelResult struct {
	Symbol       string        `json:"symbol"`
	Period       market.Period `json:"period"`
	HighestStage Stage         `json:"highest_stage"`
	Path         Path          `json:"path"`
	Evidence     []Evidence    `json:"evidence"`
	LastClose    float64       `json:"last_close"`
	LastDate     time.Time     `json:"last_date"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// Launched 报告是否达到终态。
func (r FunnelResult) Launched() bool { return r.HighestStage == StageLaunched }

// Classify 按顺序跑完四个阶段闸门，任一阶段失败即短路返回。
// 逐级闸门本身就是产品需求：扫描 N 只标的后按“到达各阶段的数量”出漏斗报告，
// 供运营者经验性校准阈值。
func Classify(series market.Series, cfg Thresholds) FunnelResult {
	result := FunnelResult{
		Symbol:       series.Symbol,
		Period:       series.Period,
		HighestStage: StageNotDeclined,
		Path:         PathNone,
		GeneratedAt:  time.Now(),
	}
	if last, ok := series.Last(); ok {
		result.LastClose = last.Close
		result.LastDate = last.Date
	}

	decline := detectDeepDecline(series, cfg)
	result.Evidence = append(result.Evidence, decline.Evidence)
	if !decline.Evidence.Passed {
		return result
	}
	result.HighestStage = StageDeclined

	hib := detectHibernation(series, cfg)
	result.Evidence = append(result.Evidence, hib.Evidence)
	if !hib.Evidence.Passed {
		return result
	}
	result.HighestStage = StageHibernating

	// 指标帧只在需要拉升确认时才计算。
	frame, err := indicator.Compute(series, indicator.Settings{
		MAPeriods: cfg.MAPeriods,
		RSIPeriod: cfg.RSIPeriod,
	})
	if err != nil {
		result.Evidence = append(result.Evidence,
			failEvidence(EvidenceLiftoffPlatform, "indicator frame unavailable: "+err.Error(), nil))
		return result
	}

	// 路径 A：挖坑洗盘成立时，以坑底为基线评估起涨。
	washout := detectWashout(series, cfg, hib)
	result.Evidence = append(result.Evidence, washout.Evidence)
	var washoutLiftoff *Evidence
	if washout.Evidence.Passed {
		ev := evaluateLiftoff(series, frame, cfg, EvidenceLiftoffWashout, washout.PitLow, hib.AvgVolume)
		result.Evidence = append(result.Evidence, ev)
		washoutLiftoff = &ev
	}

	// 路径 B：无论是否挖坑，都独立评估以蛰伏支撑为基线的平台突破。
	platformLiftoff := evaluateLiftoff(series, frame, cfg, EvidenceLiftoffPlatform, hib.Support, hib.AvgVolume)
	result.Evidence = append(result.Evidence, platformLiftoff)

	// 两条路径都通过时取挖坑路径：既然洗盘成立，坑底就是更贴近事实的起涨基线。
	switch {
	case washoutLiftoff != nil && washoutLiftoff.Passed:
		result.HighestStage = StageLaunched
		result.Path = PathWashout
	case platformLiftoff.Passed:
		result.HighestStage = StageLaunched
		result.Path = PathPlatform
	}
	return result
}
