package screener

import (
	"testing"

	"abyss/internal/analysis/indicator"
	"abyss/internal/market"
)

// liftoffFixture 构造一段不足以定义 RSI 的短序列（条件 4 恒为 false），
// 这样 3/4 的多数表决边界只由前三个条件控制。
func liftoffFixture(t *testing.T, latestVolume float64) (market.Series, indicator.Frame) {
	t.Helper()
	bars := []market.Bar{
		tbar(0, 10.0, 10.3, 9.9, 10.2, 100),
		tbar(1, 10.2, 10.3, 10.0, 10.1, 100),
		tbar(2, 10.1, 10.2, 9.9, 10.0, 100),
		tbar(3, 10.0, 10.2, 9.9, 10.0, 100),
		tbar(4, 10.1, 10.6, 10.0, 10.5, latestVolume),
	}
	s := mustSeries(t, "sh600020", bars)
	frame, err := indicator.Compute(s, indicator.Settings{MAPeriods: []int{5}, RSIPeriod: 14})
	if err != nil {
		t.Fatalf("compute frame: %v", err)
	}
	if _, ok := frame.LastRSI(); ok {
		t.Fatal("fixture too long: RSI must stay undefined")
	}
	return s, frame
}

func TestEvaluateLiftoffMajorityVote(t *testing.T) {
	cfg := testThresholds() // 需要 3/4

	t.Run("three conditions pass", func(t *testing.T) {
		// 收阳走强 + 贴近基线 + 量比 1.5 > 1.3，RSI 未定义。
		s, frame := liftoffFixture(t, 150)
		ev := evaluateLiftoff(s, frame, cfg, EvidenceLiftoffPlatform, 10.0, 100)
		if !ev.Passed {
			t.Fatalf("3/4 conditions must pass: %s", ev.Note)
		}
		if got := ev.Metrics["conditions_met"]; got != 3 {
			t.Fatalf("conditions_met = %v, want 3", got)
		}
	})

	t.Run("two conditions fail", func(t *testing.T) {
		// 量能不配合，只剩 2/4。
		s, frame := liftoffFixture(t, 100)
		ev := evaluateLiftoff(s, frame, cfg, EvidenceLiftoffPlatform, 10.0, 100)
		if ev.Passed {
			t.Fatal("2/4 conditions must not pass")
		}
		if got := ev.Metrics["conditions_met"]; got != 2 {
			t.Fatalf("conditions_met = %v, want 2", got)
		}
	})
}

func TestEvaluateLiftoffGuards(t *testing.T) {
	s, frame := liftoffFixture(t, 150)

	if ev := evaluateLiftoff(s, frame, testThresholds(), EvidenceLiftoffWashout, 0, 100); ev.Passed {
		t.Error("non-positive baseline price must fail closed")
	}

	short := mustSeries(t, "sh600021", []market.Bar{tbar(0, 10, 10.5, 9.5, 10.2, 100)})
	if ev := evaluateLiftoff(short, frame, testThresholds(), EvidenceLiftoffWashout, 10, 100); ev.Passed {
		t.Error("single-bar series must fail closed")
	}
}

func TestEvaluateLiftoffRejectsRunaway(t *testing.T) {
	// 已经涨离基线 18% 以上的不追：贴近基线条件失败，量能与 RSI 也不成立。
	s, frame := liftoffFixture(t, 100)
	ev := evaluateLiftoff(s, frame, testThresholds(), EvidenceLiftoffPlatform, 8.0, 100)
	if ev.Passed {
		t.Fatalf("runaway price must not pass: %+v", ev.Metrics)
	}
	if ev.Metrics["cond_near_baseline"] != 0 {
		t.Error("near-baseline condition should be false")
	}
}
