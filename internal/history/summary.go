package history

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"stock-analyst/internal/types"
)

type tickerRow struct {
	Ticker        string
	Runs          int
	Bullish       int
	Bearish       int
	Neutral       int
	ConfidenceSum float64
	LastAction    types.Action
	LastTime      string
}

func (l *Log) summaryPath(t time.Time) string {
	return filepath.Join(l.dir, "summary", t.In(Shanghai).Format(dayLayout)+".csv")
}

// SummarizeDay aggregates the day's journal per ticker into a CSV and returns its path.
// A day without analyses yields an empty path and no file.
func (l *Log) SummarizeDay(t time.Time) (string, error) {
	f, err := os.Open(l.dailyPath(t))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows := map[string]*tickerRow{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		row := rows[e.Ticker]
		if row == nil {
			row = &tickerRow{Ticker: e.Ticker}
			rows[e.Ticker] = row
		}
		row.Runs++
		row.ConfidenceSum += e.Confidence
		switch e.Action {
		case types.Bullish:
			row.Bullish++
		case types.Bearish:
			row.Bearish++
		default:
			row.Neutral++
		}
		if e.Time >= row.LastTime {
			row.LastTime, row.LastAction = e.Time, e.Action
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := l.summaryPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"ticker", "runs", "bullish", "bearish", "neutral", "avg_confidence", "last_action", "last_time"}); err != nil {
		return "", err
	}
	total := 0
	for _, k := range keys {
		r := rows[k]
		total += r.Runs
		rec := []string{
			r.Ticker,
			strconv.Itoa(r.Runs),
			strconv.Itoa(r.Bullish),
			strconv.Itoa(r.Bearish),
			strconv.Itoa(r.Neutral),
			fmt.Sprintf("%.4f", r.ConfidenceSum/float64(r.Runs)),
			string(r.LastAction),
			r.LastTime,
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	if err := w.Write([]string{"TOTAL", strconv.Itoa(total), "", "", "", "", "", ""}); err != nil {
		return "", err
	}
	w.Flush()
	return outPath, w.Error()
}
