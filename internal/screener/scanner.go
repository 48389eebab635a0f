package screener

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"abyss/internal/logger"
	"abyss/internal/market"
)

// Summary 是一轮扫描的全量产出。
// 即使没有任何标的到达终态，StageCounts 也完整报告漏斗分布——这是阈值调参的主要反馈。
type Summary struct {
	RunID       string        `json:"run_id"`
	Period      market.Period `json:"period"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Universe    int           `json:"universe"`
	Skipped     int           `json:"skipped"`
	StageCounts map[Stage]int `json:"stage_counts"`
	Results     []FunnelResult `json:"results"`
}

// Launched 返回到达终态的结果子集（已按排序规则排好）。
func (s Summary) Launched() []FunnelResult {
	out := make([]FunnelResult, 0, 8)
	for _, r := range s.Results {
		if r.Launched() {
			out = append(out, r)
		}
	}
	return out
}

// ReachedAtLeast 统计到达 stage 及以上的标的数量。
func (s Summary) ReachedAtLeast(stage Stage) int {
	n := 0
	for st, c := range s.StageCounts {
		if st >= stage {
			n += c
		}
	}
	return n
}

// Scanner 对标的池做有界并发的独立评估。
// 标的之间零共享可变状态，单个标的的加载失败、历史不足或 detector panic
// 都被就地隔离，不影响其余标的。
type Scanner struct {
	loader  market.Loader
	cfg     Thresholds
	workers int
}

func NewScanner(loader market.Loader, cfg Thresholds, workers int) (*Scanner, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{loader: loader, cfg: cfg, workers: workers}, nil
}

// Scan 评估整个标的池。批处理作业：跑完为止，单标的失败只记日志。
func (s *Scanner) Scan(ctx context.Context, universe []string) (Summary, error) {
	sum := Summary{
		RunID:       uuid.NewString(),
		Period:      s.cfg.Period,
		StartedAt:   time.Now(),
		StageCounts: make(map[Stage]int, 4),
	}
	sum.Universe = len(universe)
	logger.Infof("scan %s start: %d symbols, period=%s, workers=%d",
		sum.RunID[:8], len(universe), s.cfg.Period, s.workers)

	var (
		mu      sync.Mutex
		results []FunnelResult
		skipped int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, symbol := range universe {
		symbol := symbol
		g.Go(func() error {
			res, ok := s.evaluate(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				skipped++
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	// 结果排序与完成顺序无关：先按阶段降序，再按代码升序。
	sort.Slice(results, func(i, j int) bool {
		if results[i].HighestStage != results[j].HighestStage {
			return results[i].HighestStage > results[j].HighestStage
		}
		return results[i].Symbol < results[j].Symbol
	})
	for _, r := range results {
		sum.StageCounts[r.HighestStage]++
	}
	sum.Results = results
	sum.Skipped = skipped
	sum.FinishedAt = time.Now()

	logger.Infof("scan %s done: evaluated=%d skipped=%d launched=%d in %s",
		sum.RunID[:8], len(results), skipped, len(sum.Launched()), sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond))
	return sum, nil
}

// evaluate 是单标的的隔离边界：加载与分类中的任何异常都不会逃出这里。
func (s *Scanner) evaluate(ctx context.Context, symbol string) (res FunnelResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scan %s: detector panic: %v", symbol, r)
			res, ok = FunnelResult{}, false
		}
	}()

	series, err := s.loader.LoadBars(ctx, symbol)
	if err != nil {
		logger.Warnf("scan %s: load failed: %v", symbol, err)
		return FunnelResult{}, false
	}
	if series.Len() == 0 {
		logger.Debugf("scan %s: empty series, skipped", symbol)
		return FunnelResult{}, false
	}
	if series.Period != s.cfg.Period {
		logger.Warnf("scan %s: period mismatch: series=%s config=%s, skipped",
			symbol, series.Period, s.cfg.Period)
		return FunnelResult{}, false
	}
	return Classify(series, s.cfg), true
}
