package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"abyss/internal/market"
)

// Settings 指定需要计算的均线周期与 RSI 周期。
type Settings struct {
	MAPeriods []int `toml:"ma_periods" json:"ma_periods"`
	RSIPeriod int   `toml:"rsi_period" json:"rsi_period"`
}

func (s Settings) withDefaults() Settings {
	out := s
	if len(out.MAPeriods) == 0 {
		out.MAPeriods = []int{20, 60, 120}
	}
	if out.RSIPeriod <= 0 {
		out.RSIPeriod = 14
	}
	return out
}

// Frame 是与序列 1:1 对齐的指标平行数组。
// 回看长度不足的位置记为 NaN，通过访问器暴露为 ok=false，绝不外推。
type Frame struct {
	Length int
	mas    map[int][]float64
	rsi    []float64
}

// MA 返回位置 i 上周期为 period 的简单均线；未定义时 ok=false。
func (f Frame) MA(period, i int) (float64, bool) {
	series, exists := f.mas[period]
	if !exists || i < 0 || i >= len(series) {
		return 0, false
	}
	v := series[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// RSI 返回位置 i 上的 RSI；未定义时 ok=false。
func (f Frame) RSI(i int) (float64, bool) {
	if i < 0 || i >= len(f.rsi) {
		return 0, false
	}
	v := f.rsi[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// LastRSI 返回最新一根 K 线的 RSI。
func (f Frame) LastRSI() (float64, bool) { return f.RSI(f.Length - 1) }

// Compute 从序列派生指标帧。纯函数：同一序列重复计算结果逐位一致。
func Compute(series market.Series, cfg Settings) (Frame, error) {
	cfg = cfg.withDefaults()
	n := series.Len()
	if n == 0 {
		return Frame{}, fmt.Errorf("empty series for %s", series.Symbol)
	}
	closes := series.Closes()

	frame := Frame{Length: n, mas: make(map[int][]float64, len(cfg.MAPeriods))}
	for _, p := range cfg.MAPeriods {
		if p <= 0 {
			return Frame{}, fmt.Errorf("invalid ma period %d", p)
		}
		frame.mas[p] = maskWarmup(talib.Sma(closes, p), p-1)
	}
	frame.rsi = wilderRSI(closes, cfg.RSIPeriod)
	return frame, nil
}

// maskWarmup 把前 warmup 个位置置为 NaN（talib 在暖机区返回 0，这里显式标记为未定义）。
func maskWarmup(series []float64, warmup int) []float64 {
	if warmup > len(series) {
		warmup = len(series)
	}
	for i := 0; i < warmup; i++ {
		series[i] = math.NaN()
	}
	return series
}

// wilderRSI 计算全序列的 Wilder 平滑 RSI。
// avg_loss 为 0 时饱和在 100（只涨不跌），涨跌皆零的死盘记 50，绝不产生 NaN/除零。
func wilderRSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || n < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
