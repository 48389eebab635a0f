package screener

import (
	"context"
	"errors"
	"testing"

	"abyss/internal/market"
)

func TestScannerIsolatesFailures(t *testing.T) {
	ideal := mustSeries(t, "aaa", idealBars())
	flat := func() market.Series {
		bars := make([]market.Bar, 120)
		for i := range bars {
			bars[i] = tbar(i, 50, 50, 50, 50, 1000)
		}
		return mustSeries(t, "bbb", bars)
	}()
	volatile := mustSeries(t, "eee", volatileBars())

	loader := market.LoaderFunc(func(ctx context.Context, symbol string) (market.Series, error) {
		switch symbol {
		case "aaa":
			return ideal, nil
		case "bbb":
			return flat, nil
		case "ccc":
			return market.Series{}, errors.New("socket closed")
		case "ddd":
			panic("detector bug")
		case "eee":
			return volatile, nil
		}
		t.Fatalf("unexpected symbol %s", symbol)
		return market.Series{}, nil
	})

	scanner, err := NewScanner(loader, testThresholds(), 4)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := scanner.Scan(context.Background(), []string{"aaa", "bbb", "ccc", "ddd", "eee"})
	if err != nil {
		t.Fatal(err)
	}

	if sum.Universe != 5 {
		t.Errorf("universe = %d, want 5", sum.Universe)
	}
	if sum.Skipped != 2 {
		t.Errorf("skipped = %d, want 2 (load error + panic)", sum.Skipped)
	}
	if len(sum.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(sum.Results))
	}

	// 排序与完成顺序无关：阶段降序，同阶段按代码升序。
	wantOrder := []string{"aaa", "eee", "bbb"}
	for i, want := range wantOrder {
		if sum.Results[i].Symbol != want {
			t.Errorf("results[%d] = %s, want %s", i, sum.Results[i].Symbol, want)
		}
	}
	if sum.Results[0].HighestStage != StageLaunched {
		t.Errorf("aaa stage = %s", sum.Results[0].HighestStage)
	}

	if got := sum.StageCounts[StageLaunched]; got != 1 {
		t.Errorf("launched count = %d, want 1", got)
	}
	if got := len(sum.Launched()); got != 1 {
		t.Errorf("Launched() = %d results, want 1", got)
	}
}

// 漏斗单调性：到达第 k+1 阶段的数量永远不超过到达第 k 阶段的数量。
func TestScannerFunnelMonotonic(t *testing.T) {
	ideal := mustSeries(t, "aaa", idealBars())
	volatile := mustSeries(t, "bbb", volatileBars())

	loader := market.LoaderFunc(func(ctx context.Context, symbol string) (market.Series, error) {
		if symbol == "aaa" {
			return ideal, nil
		}
		return market.Series{Symbol: symbol, Period: market.PeriodDaily, Bars: volatile.Bars}, nil
	})
	scanner, err := NewScanner(loader, testThresholds(), 2)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := scanner.Scan(context.Background(), []string{"aaa", "bbb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}

	prev := sum.ReachedAtLeast(StageNotDeclined)
	if prev != 3 {
		t.Fatalf("ReachedAtLeast(NOT_DECLINED) = %d, want 3", prev)
	}
	for _, stage := range []Stage{StageDeclined, StageHibernating, StageLaunched} {
		cur := sum.ReachedAtLeast(stage)
		if cur > prev {
			t.Fatalf("funnel not monotonic at %s: %d > %d", stage, cur, prev)
		}
		prev = cur
	}
}

func TestScannerSkipsPeriodMismatch(t *testing.T) {
	ideal := mustSeries(t, "aaa", idealBars())
	weekly := market.Series{Symbol: "aaa", Period: market.PeriodWeekly, Bars: ideal.Bars}
	loader := market.LoaderFunc(func(ctx context.Context, symbol string) (market.Series, error) {
		return weekly, nil
	})
	scanner, err := NewScanner(loader, testThresholds(), 1)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := scanner.Scan(context.Background(), []string{"aaa"})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Skipped != 1 || len(sum.Results) != 0 {
		t.Fatalf("skipped=%d results=%d, want mismatch skipped", sum.Skipped, len(sum.Results))
	}
}

func TestNewScannerRejectsBadInput(t *testing.T) {
	loader := market.LoaderFunc(func(ctx context.Context, symbol string) (market.Series, error) {
		return market.Series{}, nil
	})
	if _, err := NewScanner(nil, testThresholds(), 1); err == nil {
		t.Error("nil loader accepted")
	}
	bad := testThresholds()
	bad.MinDropPercent = 1.5
	if _, err := NewScanner(loader, bad, 1); err == nil {
		t.Error("invalid thresholds accepted")
	}
}
