package screener

import (
	"errors"
	"fmt"

	"abyss/internal/market"
)

// Thresholds 是一套完整的筛选阈值。日线与周线各自维护一份独立配置，
// 互不推导：两套参数分别校验，避免按 key 名换算周期造成的静默单位错误。
type Thresholds struct {
	Period market.Period `toml:"period" json:"period"`

	// 阶段 0：深跌
	LongTermWindow             int     `toml:"long_term_window" json:"long_term_window"`
	MinDropPercent             float64 `toml:"min_drop_percent" json:"min_drop_percent"`
	PriceLowPercentile         float64 `toml:"price_low_percentile" json:"price_low_percentile"`
	VolumeShrinkThreshold      float64 `toml:"volume_shrink_threshold" json:"volume_shrink_threshold"`
	VolumeConsistencyThreshold float64 `toml:"volume_consistency_threshold" json:"volume_consistency_threshold"`
	VolumeAnalysisBars         int     `toml:"volume_analysis_bars" json:"volume_analysis_bars"`

	// 阶段 1：横盘蛰伏
	HibernationWindow        int     `toml:"hibernation_window" json:"hibernation_window"`
	HibernationVolatilityMax float64 `toml:"hibernation_volatility_max" json:"hibernation_volatility_max"`

	// 阶段 2：挖坑洗盘（可选路径）
	WashoutWindow            int     `toml:"washout_window" json:"washout_window"`
	WashoutBreakThreshold    float64 `toml:"washout_break_threshold" json:"washout_break_threshold"`
	WashoutVolumeShrinkRatio float64 `toml:"washout_volume_shrink_ratio" json:"washout_volume_shrink_ratio"`

	// 阶段 3：拉升确认
	MaxRiseFromBottom          float64 `toml:"max_rise_from_bottom" json:"max_rise_from_bottom"`
	LiftoffVolumeIncreaseRatio float64 `toml:"liftoff_volume_increase_ratio" json:"liftoff_volume_increase_ratio"`
	MinConditionsMet           int     `toml:"min_conditions_met" json:"min_conditions_met"`
	RSILow                     float64 `toml:"rsi_low" json:"rsi_low"`
	RSIHigh                    float64 `toml:"rsi_high" json:"rsi_high"`

	// 指标参数
	RSIPeriod int   `toml:"rsi_period" json:"rsi_period"`
	MAPeriods []int `toml:"ma_periods" json:"ma_periods"`
}

// DailyDefaults 返回日线档位的默认阈值。
func DailyDefaults() Thresholds {
	return Thresholds{
		Period:                     market.PeriodDaily,
		LongTermWindow:             400,
		MinDropPercent:             0.40,
		PriceLowPercentile:         0.35,
		VolumeShrinkThreshold:      0.70,
		VolumeConsistencyThreshold: 0.30,
		VolumeAnalysisBars:         30,
		HibernationWindow:          60,
		HibernationVolatilityMax:   0.40,
		WashoutWindow:              15,
		WashoutBreakThreshold:      0.98,
		WashoutVolumeShrinkRatio:   0.85,
		MaxRiseFromBottom:          0.18,
		LiftoffVolumeIncreaseRatio: 1.30,
		MinConditionsMet:           3,
		RSILow:                     25,
		RSIHigh:                    60,
		RSIPeriod:                  14,
		MAPeriods:                  []int{20, 60, 120},
	}
}

// WeeklyDefaults 返回周线档位的默认阈值（独立配置，不由日线换算）。
func WeeklyDefaults() Thresholds {
	return Thresholds{
		Period:                     market.PeriodWeekly,
		LongTermWindow:             80,
		MinDropPercent:             0.40,
		PriceLowPercentile:         0.35,
		VolumeShrinkThreshold:      0.70,
		VolumeConsistencyThreshold: 0.30,
		VolumeAnalysisBars:         6,
		HibernationWindow:          12,
		HibernationVolatilityMax:   0.40,
		WashoutWindow:              3,
		WashoutBreakThreshold:      0.98,
		WashoutVolumeShrinkRatio:   0.85,
		MaxRiseFromBottom:          0.18,
		LiftoffVolumeIncreaseRatio: 1.30,
		MinConditionsMet:           3,
		RSILow:                     25,
		RSIHigh:                    60,
		RSIPeriod:                  14,
		MAPeriods:                  []int{10, 20, 30},
	}
}

// Validate 一次性收集所有非法项，启动期失败即退出，绝不带病运行。
func (t Thresholds) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if !t.Period.Valid() {
		add("period: invalid %q", t.Period)
	}
	if t.LongTermWindow <= 0 {
		add("long_term_window: must be positive, got %d", t.LongTermWindow)
	}
	if t.MinDropPercent <= 0 || t.MinDropPercent >= 1 {
		add("min_drop_percent: must be in (0,1), got %v", t.MinDropPercent)
	}
	if t.PriceLowPercentile <= 0 || t.PriceLowPercentile >= 1 {
		add("price_low_percentile: must be in (0,1), got %v", t.PriceLowPercentile)
	}
	if t.VolumeShrinkThreshold <= 0 || t.VolumeShrinkThreshold >= 1 {
		add("volume_shrink_threshold: must be in (0,1), got %v", t.VolumeShrinkThreshold)
	}
	if t.VolumeConsistencyThreshold <= 0 || t.VolumeConsistencyThreshold > 1 {
		add("volume_consistency_threshold: must be in (0,1], got %v", t.VolumeConsistencyThreshold)
	}
	if t.VolumeAnalysisBars <= 0 || t.VolumeAnalysisBars > t.LongTermWindow {
		add("volume_analysis_bars: must be in [1,long_term_window], got %d", t.VolumeAnalysisBars)
	}
	if t.HibernationWindow <= 0 {
		add("hibernation_window: must be positive, got %d", t.HibernationWindow)
	}
	if t.HibernationVolatilityMax <= 0 {
		add("hibernation_volatility_max: must be positive, got %v", t.HibernationVolatilityMax)
	}
	if t.WashoutWindow <= 0 {
		add("washout_window: must be positive, got %d", t.WashoutWindow)
	}
	if t.WashoutBreakThreshold <= 0 || t.WashoutBreakThreshold >= 1 {
		add("washout_break_threshold: must be in (0,1), got %v", t.WashoutBreakThreshold)
	}
	if t.WashoutVolumeShrinkRatio <= 0 {
		add("washout_volume_shrink_ratio: must be positive, got %v", t.WashoutVolumeShrinkRatio)
	}
	if t.MaxRiseFromBottom <= 0 {
		add("max_rise_from_bottom: must be positive, got %v", t.MaxRiseFromBottom)
	}
	if t.LiftoffVolumeIncreaseRatio <= 0 {
		add("liftoff_volume_increase_ratio: must be positive, got %v", t.LiftoffVolumeIncreaseRatio)
	}
	if t.MinConditionsMet <= 0 || t.MinConditionsMet > liftoffConditionCount {
		add("min_conditions_met: must be in [1,%d], got %d", liftoffConditionCount, t.MinConditionsMet)
	}
	if t.RSILow < 0 || t.RSIHigh > 100 || t.RSILow >= t.RSIHigh {
		add("rsi_low/rsi_high: need 0<=low<high<=100, got %v/%v", t.RSILow, t.RSIHigh)
	}
	if t.RSIPeriod <= 0 {
		add("rsi_period: must be positive, got %d", t.RSIPeriod)
	}
	for _, p := range t.MAPeriods {
		if p <= 0 {
			add("ma_periods: must be positive, got %d", p)
		}
	}
	return errors.Join(errs...)
}
