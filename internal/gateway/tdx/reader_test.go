package tdx

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"abyss/internal/market"
)

type dayRecord struct {
	date                   uint32
	open, high, low, close uint32 // 价格 ×100
	amount                 float32
	volume                 uint32
}

func writeDayFile(t *testing.T, dir, symbol string, records []dayRecord) string {
	t.Helper()
	buf := make([]byte, 0, len(records)*recordSize)
	for _, r := range records {
		rec := make([]byte, recordSize)
		binary.LittleEndian.PutUint32(rec[0:4], r.date)
		binary.LittleEndian.PutUint32(rec[4:8], r.open)
		binary.LittleEndian.PutUint32(rec[8:12], r.high)
		binary.LittleEndian.PutUint32(rec[12:16], r.low)
		binary.LittleEndian.PutUint32(rec[16:20], r.close)
		binary.LittleEndian.PutUint32(rec[20:24], math.Float32bits(r.amount))
		binary.LittleEndian.PutUint32(rec[24:28], r.volume)
		buf = append(buf, rec...)
	}
	path := filepath.Join(dir, symbol+".day")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBars(t *testing.T) {
	dir := t.TempDir()
	writeDayFile(t, dir, "sh600000", []dayRecord{
		{date: 20240102, open: 1234, high: 1300, low: 1200, close: 1250, amount: 1.5e6, volume: 100000},
		{date: 20240103, open: 1250, high: 1320, low: 1240, close: 1300, amount: 2.0e6, volume: 120000},
	})

	series, err := NewLoader(dir).LoadBars(context.Background(), "sh600000")
	if err != nil {
		t.Fatal(err)
	}
	if series.Symbol != "sh600000" || series.Period != market.PeriodDaily {
		t.Fatalf("series header = %s/%s", series.Symbol, series.Period)
	}
	if series.Len() != 2 {
		t.Fatalf("bars = %d, want 2", series.Len())
	}

	b := series.Bars[0]
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !b.Date.Equal(want) {
		t.Errorf("date = %s, want %s", b.Date, want)
	}
	if b.Open != 12.34 || b.High != 13.00 || b.Low != 12.00 || b.Close != 12.50 {
		t.Errorf("OHLC = %v/%v/%v/%v", b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume != 100000 {
		t.Errorf("volume = %v", b.Volume)
	}
	if b.Amount != float64(float32(1.5e6)) {
		t.Errorf("amount = %v", b.Amount)
	}
}

func TestLoadBarsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeDayFile(t, dir, "sh600001", []dayRecord{
		{date: 20240102, open: 1000, high: 1100, low: 900, close: 1050, volume: 1},
	})
	data, _ := os.ReadFile(path)
	if err := os.WriteFile(path, data[:recordSize-5], 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader(dir).LoadBars(context.Background(), "sh600001"); err == nil {
		t.Error("truncated file accepted")
	}
}

func TestLoadBarsInvalidDate(t *testing.T) {
	dir := t.TempDir()
	writeDayFile(t, dir, "sh600002", []dayRecord{
		{date: 20241341, open: 1000, high: 1100, low: 900, close: 1050, volume: 1},
	})
	if _, err := NewLoader(dir).LoadBars(context.Background(), "sh600002"); err == nil {
		t.Error("invalid date accepted")
	}
}

func TestLoadBarsMissingFile(t *testing.T) {
	if _, err := NewLoader(t.TempDir()).LoadBars(context.Background(), "nope"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadBarsHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader(t.TempDir()).LoadBars(ctx, "sh600000"); err == nil {
		t.Error("cancelled context accepted")
	}
}
