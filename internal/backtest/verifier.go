package backtest

import (
	"fmt"

	"abyss/internal/logger"
	"abyss/internal/market"
	"abyss/internal/screener"
)

// VerifyConfig 控制历史信号回放的步长。
type VerifyConfig struct {
	// Stride 是相邻两次历史分类之间的间隔（根数）。逐根分类太慢，
	// 信号本身是以周计的形态，步长取 3-5 根不会漏掉独立信号。
	Stride int `toml:"stride" json:"stride"`
}

func (c VerifyConfig) withDefaults() VerifyConfig {
	out := c
	if out.Stride <= 0 {
		out.Stride = 3
	}
	return out
}

// Verification 是一只标的的历史信号验证结果。
type Verification struct {
	Symbol  string        `json:"symbol"`
	Period  market.Period `json:"period"`
	Signals int           `json:"signals"`
	Trades  []TradeRecord `json:"trades"`
	Stats   Stats         `json:"stats"`
}

// Verify 沿历史前缀回放策略：每隔 stride 根对截断序列重新分类，
// 命中终态就从该位置向前模拟一笔交易，平仓后才允许下一个信号——
// 单标的不允许持仓重叠，这是信号质量回测，不是组合模拟。
func Verify(series market.Series, th screener.Thresholds, bt Config, vc VerifyConfig) (Verification, error) {
	if err := th.Validate(); err != nil {
		return Verification{}, fmt.Errorf("invalid thresholds: %w", err)
	}
	if err := bt.Validate(); err != nil {
		return Verification{}, fmt.Errorf("invalid backtest config: %w", err)
	}
	vc = vc.withDefaults()

	out := Verification{Symbol: series.Symbol, Period: series.Period}
	n := series.Len()
	if n <= th.LongTermWindow {
		out.Stats = Summarize(nil)
		return out, nil
	}

	i := th.LongTermWindow - 1
	for i < n-1 {
		prefix := series.Truncate(i + 1)
		result := screener.Classify(prefix, th)
		if !result.Launched() {
			i += vc.Stride
			continue
		}
		out.Signals++
		trade, ok := Replay(series, i, bt)
		if !ok {
			// 信号太靠近序列末尾，无法建仓。
			i += vc.Stride
			continue
		}
		out.Trades = append(out.Trades, trade)
		// 跳到平仓之后再继续找信号。
		exitIdx := i + 1 + trade.HoldingPeriods
		if exitIdx <= i {
			exitIdx = i + 1
		}
		i = exitIdx
	}

	out.Stats = Summarize(out.Trades)
	logger.Debugf("verify %s: signals=%d trades=%d win_rate=%.2f",
		series.Symbol, out.Signals, len(out.Trades), out.Stats.WinRate)
	return out, nil
}
