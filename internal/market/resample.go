package market

// ResampleWeekly 把日线序列按 ISO 周聚合为周线：
// open 取周内首根、close 取周内末根、high/low 取极值、volume/amount 求和。
// 周线日期使用该周最后一个交易日。
func ResampleWeekly(daily Series) Series {
	out := Series{Symbol: daily.Symbol, Period: PeriodWeekly}
	if len(daily.Bars) == 0 {
		return out
	}
	var (
		cur     Bar
		curYear int
		curWeek int
		open    bool
	)
	flush := func() {
		if open {
			out.Bars = append(out.Bars, cur)
			open = false
		}
	}
	for _, b := range daily.Bars {
		y, w := b.Date.ISOWeek()
		if !open || y != curYear || w != curWeek {
			flush()
			cur = b
			curYear, curWeek = y, w
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
		cur.Amount += b.Amount
		cur.Date = b.Date
	}
	flush()
	return out
}
