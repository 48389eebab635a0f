package backtest

import (
	"testing"

	"abyss/internal/market"
	"abyss/internal/screener"
)

func verifyThresholds() screener.Thresholds {
	return screener.Thresholds{
		Period:                     market.PeriodDaily,
		LongTermWindow:             120,
		MinDropPercent:             0.40,
		PriceLowPercentile:         0.35,
		VolumeShrinkThreshold:      0.70,
		VolumeConsistencyThreshold: 0.30,
		VolumeAnalysisBars:         10,
		HibernationWindow:          40,
		HibernationVolatilityMax:   0.40,
		WashoutWindow:              6,
		WashoutBreakThreshold:      0.98,
		WashoutVolumeShrinkRatio:   0.85,
		MaxRiseFromBottom:          0.18,
		LiftoffVolumeIncreaseRatio: 1.30,
		MinConditionsMet:           3,
		RSILow:                     25,
		RSIHigh:                    60,
		RSIPeriod:                  14,
		MAPeriods:                  []int{5, 10},
	}
}

func vbar(i int, open, high, low, close, vol float64) market.Bar {
	return market.Bar{Date: testBase.AddDate(0, 0, i), Open: open, High: high, Low: low, Close: close, Volume: vol}
}

// historyWithSignal 构造 130 根序列：前 120 根走完整的
// 高位平台→阴跌→蛰伏→挖坑→起涨形态（第 119 根触发终态信号），
// 随后 10 根延续上涨，让止盈可以成交。
func historyWithSignal(t *testing.T) market.Series {
	t.Helper()
	bars := make([]market.Bar, 0, 130)
	for i := 0; i < 40; i++ {
		bars = append(bars, vbar(i, 100, 100.5, 99.5, 100, 1_000_000))
	}
	prev := 100.0
	for i := 40; i < 60; i++ {
		close := 100 - 3.5*float64(i-39)
		bars = append(bars, vbar(i, prev, prev+0.2, close-0.2, close, 800_000))
		prev = close
	}
	for i := 60; i < 114; i++ {
		close := 29.7
		if i%2 == 0 {
			close = 30.3
		}
		bars = append(bars, vbar(i, prev, 30.8, 29.2, close, 300_000))
		prev = close
	}
	for i := 114; i < 119; i++ {
		close := 28.8
		bars = append(bars, vbar(i, prev, prev+0.1, 28.5, close, 200_000))
		prev = close
	}
	bars = append(bars, vbar(119, 29.5, 31.2, 29.4, 31.0, 400_000))

	// 信号之后的行情：次日开盘 31.2 进场，第 5 根触及 15% 止盈。
	rally := [][4]float64{
		{31.2, 32.2, 31.0, 32.0},
		{32.0, 33.2, 31.8, 33.0},
		{33.0, 34.4, 32.8, 34.2},
		{34.2, 35.7, 34.0, 35.5},
		{35.5, 36.4, 35.3, 36.2},
	}
	for i, r := range rally {
		bars = append(bars, vbar(120+i, r[0], r[1], r[2], r[3], 350_000))
	}
	prev = 36.2
	for i := 125; i < 130; i++ {
		bars = append(bars, vbar(i, prev, prev+0.1, 35.8, 36.0, 350_000))
		prev = 36.0
	}

	s, err := market.NewSeries("sh600001", market.PeriodDaily, bars)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}

func TestVerifyReplaysHistoricalSignal(t *testing.T) {
	s := historyWithSignal(t)
	v, err := Verify(s, verifyThresholds(), testConfig(), VerifyConfig{Stride: 3})
	if err != nil {
		t.Fatal(err)
	}

	if v.Signals != 1 {
		t.Fatalf("signals = %d, want 1", v.Signals)
	}
	if len(v.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(v.Trades))
	}
	trade := v.Trades[0]
	if trade.ExitReason != ExitTakeProfit {
		t.Fatalf("exit reason = %s, want TAKE_PROFIT", trade.ExitReason)
	}
	if !near(trade.EntryPrice, 31.2) {
		t.Errorf("entry price = %v, want next-bar open 31.2", trade.EntryPrice)
	}
	if !near(trade.ExitPrice, 31.2*1.15) {
		t.Errorf("exit price = %v", trade.ExitPrice)
	}
	if v.Stats.Trades != 1 || v.Stats.Wins != 1 {
		t.Errorf("stats = %+v", v.Stats)
	}
	if !near(v.Stats.WinRate, 1.0) {
		t.Errorf("win rate = %v", v.Stats.WinRate)
	}
}

func TestVerifyShortHistory(t *testing.T) {
	s := historyWithSignal(t)
	short := s.Truncate(100)
	v, err := Verify(short, verifyThresholds(), testConfig(), VerifyConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Signals != 0 || len(v.Trades) != 0 {
		t.Fatalf("short history produced signals: %+v", v)
	}
	if v.Stats.Trades != 0 {
		t.Errorf("stats not zero: %+v", v.Stats)
	}
}

func TestVerifyRejectsBadConfig(t *testing.T) {
	s := historyWithSignal(t)

	badTh := verifyThresholds()
	badTh.MinDropPercent = -1
	if _, err := Verify(s, badTh, testConfig(), VerifyConfig{}); err == nil {
		t.Error("invalid thresholds accepted")
	}

	badBT := testConfig()
	badBT.StopLossPct = 0
	if _, err := Verify(s, verifyThresholds(), badBT, VerifyConfig{}); err == nil {
		t.Error("invalid backtest config accepted")
	}
}
