package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"abyss/internal/backtest"
	"abyss/internal/config"
	"abyss/internal/gateway/binance"
	"abyss/internal/gateway/tdx"
	"abyss/internal/logger"
	"abyss/internal/market"
	"abyss/internal/report"
	"abyss/internal/screener"
	"abyss/internal/store"
	httpscan "abyss/internal/transport/http/scan"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "配置文件路径")
		period     = flag.String("period", "", "覆盖扫描周期 (daily|weekly)")
		once       = flag.Bool("once", false, "只跑一轮扫描后退出（忽略 schedule/http）")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *period != "" {
		cfg.Scan.Period = market.Period(*period)
		if !cfg.Scan.Period.Valid() {
			fmt.Fprintf(os.Stderr, "invalid -period %q\n", *period)
			os.Exit(1)
		}
	}
	logger.Init(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()

	if err := run(cfg, *once); err != nil {
		logger.Errorf("abyss exit with error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	loader := buildLoader(cfg)

	if once || (!cfg.Schedule.Enabled && !cfg.HTTP.Enabled) {
		return runScan(ctx, cfg, loader, st)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Schedule.Enabled {
		c := cron.New(cron.WithSeconds())
		if _, err := c.AddFunc(cfg.Schedule.Cron, func() {
			if err := runScan(gctx, cfg, loader, st); err != nil {
				logger.Errorf("scheduled scan failed: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("register cron %q: %w", cfg.Schedule.Cron, err)
		}
		c.Start()
		logger.Infof("scheduler started: %s", cfg.Schedule.Cron)
		g.Go(func() error {
			<-gctx.Done()
			c.Stop()
			return nil
		})
	}

	if cfg.HTTP.Enabled {
		srv, err := httpscan.NewServer(httpscan.Config{Addr: cfg.HTTP.Addr, Store: st})
		if err != nil {
			return err
		}
		logger.Infof("http api listening on %s", cfg.HTTP.Addr)
		g.Go(func() error { return srv.Start(gctx) })
	}

	return g.Wait()
}

// buildLoader 根据数据源装配 Loader；周线扫描在日线之上重采样。
func buildLoader(cfg *config.Config) market.Loader {
	var daily market.Loader
	switch cfg.Data.Source {
	case "binance":
		daily = binance.New(cfg.Data.Binance)
	default:
		daily = tdx.NewLoader(cfg.Data.TDXDir)
	}
	if cfg.Scan.Period != market.PeriodWeekly {
		return daily
	}
	return market.LoaderFunc(func(ctx context.Context, symbol string) (market.Series, error) {
		series, err := daily.LoadBars(ctx, symbol)
		if err != nil {
			return market.Series{}, err
		}
		return market.ResampleWeekly(series), nil
	})
}

// runScan 执行一轮完整批处理：扫描 → 报表 → 历史信号回测 → 落库。
// 落库只在所有 worker 返回之后由本协程串行完成。
func runScan(ctx context.Context, cfg *config.Config, loader market.Loader, st *store.Store) error {
	universe, err := cfg.ResolveUniverse()
	if err != nil {
		return err
	}
	th := cfg.ActiveThresholds()
	scanner, err := screener.NewScanner(loader, th, cfg.Scan.Workers)
	if err != nil {
		return err
	}
	sum, err := scanner.Scan(ctx, universe)
	if err != nil {
		return err
	}

	report.WriteFunnelTable(os.Stdout, sum)

	// 终态标的再跑一遍历史信号验证，并顺手留住序列画 K 线。
	var verifications []backtest.Verification
	seriesBySymbol := make(map[string]market.Series)
	for _, r := range sum.Launched() {
		series, err := loader.LoadBars(ctx, r.Symbol)
		if err != nil {
			logger.Warnf("verify %s: reload failed: %v", r.Symbol, err)
			continue
		}
		seriesBySymbol[r.Symbol] = series
		v, err := backtest.Verify(series, th, cfg.Backtest, cfg.Verify)
		if err != nil {
			logger.Warnf("verify %s: %v", r.Symbol, err)
			continue
		}
		verifications = append(verifications, v)
	}
	report.WriteBacktestTable(os.Stdout, verifications)

	stamp := sum.StartedAt.Format("20060102_150405")
	jsonPath := filepath.Join(cfg.Report.Dir, fmt.Sprintf("scan_%s.json", stamp))
	if err := report.WriteJSON(jsonPath, sum, verifications); err != nil {
		logger.Warnf("write json report: %v", err)
	}
	htmlPath := filepath.Join(cfg.Report.Dir, fmt.Sprintf("scan_%s.html", stamp))
	if err := report.WriteHTML(htmlPath, sum, seriesBySymbol); err != nil {
		logger.Warnf("write html report: %v", err)
	}
	if csv := report.BuildSignalsCSV(sum.Results); csv != "" {
		csvPath := filepath.Join(cfg.Report.Dir, fmt.Sprintf("signals_%s.csv", stamp))
		if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
			logger.Warnf("write signals csv: %v", err)
		}
	}
	var allTrades []backtest.TradeRecord
	for _, v := range verifications {
		allTrades = append(allTrades, v.Trades...)
	}
	if csv := report.BuildTradesCSV(allTrades); csv != "" {
		csvPath := filepath.Join(cfg.Report.Dir, fmt.Sprintf("trades_%s.csv", stamp))
		if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
			logger.Warnf("write trades csv: %v", err)
		}
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.SaveRun(saveCtx, sum); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := st.SaveVerifications(saveCtx, sum.RunID, verifications); err != nil {
		return fmt.Errorf("save verifications: %w", err)
	}
	logger.Infof("run %s persisted, reports in %s", sum.RunID[:8], cfg.Report.Dir)
	return nil
}
