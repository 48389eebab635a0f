package tdx

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"abyss/internal/market"
)

// recordSize 是通达信 .day 文件的定长记录：
// date(u32,YYYYMMDD) open/high/low/close(u32,价格×100) amount(f32,元) volume(u32,股) reserved(u32)。
const recordSize = 32

// Loader 从本地 .day 文件目录加载日线序列，实现 market.Loader。
// 文件名约定 <symbol>.day，如 sh600000.day。
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader { return &Loader{dir: dir} }

func (l *Loader) LoadBars(ctx context.Context, symbol string) (market.Series, error) {
	if err := ctx.Err(); err != nil {
		return market.Series{}, err
	}
	path := filepath.Join(l.dir, symbol+".day")
	data, err := os.ReadFile(path)
	if err != nil {
		return market.Series{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data)%recordSize != 0 {
		return market.Series{}, fmt.Errorf("%s: truncated file, %d bytes is not a multiple of %d",
			path, len(data), recordSize)
	}

	bars := make([]market.Bar, 0, len(data)/recordSize)
	for off := 0; off < len(data); off += recordSize {
		rec := data[off : off+recordSize]
		date, err := parseDate(binary.LittleEndian.Uint32(rec[0:4]))
		if err != nil {
			return market.Series{}, fmt.Errorf("%s record %d: %w", path, off/recordSize, err)
		}
		bars = append(bars, market.Bar{
			Date:   date,
			Open:   float64(binary.LittleEndian.Uint32(rec[4:8])) / 100,
			High:   float64(binary.LittleEndian.Uint32(rec[8:12])) / 100,
			Low:    float64(binary.LittleEndian.Uint32(rec[12:16])) / 100,
			Close:  float64(binary.LittleEndian.Uint32(rec[16:20])) / 100,
			Amount: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[20:24]))),
			Volume: float64(binary.LittleEndian.Uint32(rec[24:28])),
		})
	}
	return market.NewSeries(symbol, market.PeriodDaily, bars)
}

func parseDate(v uint32) (time.Time, error) {
	year := int(v / 10000)
	month := int(v / 100 % 100)
	day := int(v % 100)
	if year < 1990 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date field %d", v)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
