package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"abyss/internal/backtest"
	"abyss/internal/screener"
)

// Document 是 JSON 报告的顶层结构；下游 sink 自行决定如何消费。
type Document struct {
	Summary       screener.Summary        `json:"summary"`
	Verifications []backtest.Verification `json:"verifications,omitempty"`
}

// WriteJSON 把一轮扫描（含回测验证）写成带缩进的 JSON 文件。
func WriteJSON(path string, sum screener.Summary, verifications []backtest.Verification) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(Document{Summary: sum, Verifications: verifications}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
