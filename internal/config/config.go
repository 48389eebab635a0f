package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"abyss/internal/backtest"
	"abyss/internal/gateway/binance"
	"abyss/internal/market"
	"abyss/internal/screener"
)

// Config 是整个程序的配置。入口处加载一次、校验一次，然后显式下发，
// 任何组件都不回头读全局状态。
type Config struct {
	Log      Log                   `toml:"log"`
	Data     Data                  `toml:"data"`
	Scan     Scan                  `toml:"scan"`
	Daily    screener.Thresholds   `toml:"daily"`
	Weekly   screener.Thresholds   `toml:"weekly"`
	Backtest backtest.Config       `toml:"backtest"`
	Verify   backtest.VerifyConfig `toml:"verify"`
	Store    Store                 `toml:"store"`
	HTTP     HTTP                  `toml:"http"`
	Schedule Schedule              `toml:"schedule"`
	Report   Report                `toml:"report"`
}

type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Data 描述标的池与行情来源。
type Data struct {
	Source       string         `toml:"source"` // tdx | binance
	TDXDir       string         `toml:"tdx_dir"`
	Binance      binance.Config `toml:"binance"`
	Universe     []string       `toml:"universe"`
	UniverseFile string         `toml:"universe_file"`
}

type Scan struct {
	Period  market.Period `toml:"period"` // daily | weekly
	Workers int           `toml:"workers"`
}

type Store struct {
	Path string `toml:"path"`
}

type HTTP struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type Schedule struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

type Report struct {
	Dir string `toml:"dir"`
}

// Default 返回完整的默认配置：日线/周线两套阈值各自独立，互不推导。
func Default() Config {
	return Config{
		Log:      Log{Level: "info"},
		Data:     Data{Source: "tdx", TDXDir: "data/day"},
		Scan:     Scan{Period: market.PeriodDaily},
		Daily:    screener.DailyDefaults(),
		Weekly:   screener.WeeklyDefaults(),
		Backtest: backtest.DefaultConfig(),
		Verify:   backtest.VerifyConfig{Stride: 3},
		Store:    Store{Path: "data/abyss.db"},
		HTTP:     HTTP{Addr: ":9920"},
		Schedule: Schedule{Cron: "0 30 17 * * 1-5"}, // 交易日收盘后
		Report:   Report{Dir: "reports"},
	}
}

// Load 读取 TOML 配置并套用环境变量覆盖；文件不存在时使用默认值。
// 校验失败立即报错，绝不悄悄给缺失项补默认值再混用旧值。
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("ABYSS_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("ABYSS_TDX_DIR"); v != "" {
		cfg.Data.TDXDir = v
	}
	if v := os.Getenv("ABYSS_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// 两套阈值的周期标签由配置段决定，不接受文件里写反。
	cfg.Daily.Period = market.PeriodDaily
	cfg.Weekly.Period = market.PeriodWeekly

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 汇总所有配置错误一次性报告。
func (c *Config) Validate() error {
	var errs []error
	if !c.Scan.Period.Valid() {
		errs = append(errs, fmt.Errorf("scan.period: must be daily or weekly, got %q", c.Scan.Period))
	}
	switch c.Data.Source {
	case "tdx":
		if c.Data.TDXDir == "" {
			errs = append(errs, errors.New("data.tdx_dir: required when source is tdx"))
		}
	case "binance":
	default:
		errs = append(errs, fmt.Errorf("data.source: must be tdx or binance, got %q", c.Data.Source))
	}
	if len(c.Data.Universe) == 0 && c.Data.UniverseFile == "" {
		errs = append(errs, errors.New("data.universe or data.universe_file: required"))
	}
	if err := c.Daily.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("daily thresholds: %w", err))
	}
	if err := c.Weekly.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("weekly thresholds: %w", err))
	}
	if err := c.Backtest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backtest: %w", err))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path: required"))
	}
	return errors.Join(errs...)
}

// ActiveThresholds 返回当前扫描周期对应的那套阈值。
func (c *Config) ActiveThresholds() screener.Thresholds {
	if c.Scan.Period == market.PeriodWeekly {
		return c.Weekly
	}
	return c.Daily
}

// ResolveUniverse 合并内联列表与标的池文件（每行一个代码，# 开头为注释）。
func (c *Config) ResolveUniverse() ([]string, error) {
	out := append([]string{}, c.Data.Universe...)
	if c.Data.UniverseFile != "" {
		data, err := os.ReadFile(c.Data.UniverseFile)
		if err != nil {
			return nil, fmt.Errorf("read universe file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("universe is empty")
	}
	return out, nil
}
