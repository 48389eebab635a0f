package binance

import "time"

// Config 描述 Binance Source 运行所需的参数。
type Config struct {
	Limit          int `toml:"limit"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Limit <= 0 || out.Limit > maxHistoryLimit {
		out.Limit = 500
	}
	if out.TimeoutSeconds <= 0 {
		out.TimeoutSeconds = 15
	}
	return out
}

func (c Config) httpTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
