// Package history keeps an append-only journal of completed analyses, one JSON line per
// decision in a file per trading day, and summarizes a day into CSV.
package history

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock-analyst/internal/types"
)

// Shanghai is the exchange time zone; day boundaries follow it.
var Shanghai = time.FixedZone("CST", 8*3600)

const dayLayout = "2006-01-02"

type Entry struct {
	Time       string               `json:"time"`
	RunID      string               `json:"run_id"`
	Ticker     string               `json:"ticker"`
	Action     types.Action         `json:"action"`
	Confidence float64              `json:"confidence"`
	Votes      map[types.Action]int `json:"votes"`
	Signals    []types.AgentSignal  `json:"agent_signals"`
	StartDate  string               `json:"start_date,omitempty"`
	EndDate    string               `json:"end_date,omitempty"`
}

type Log struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

func (l *Log) Dir() string { return l.dir }

func (l *Log) dailyPath(t time.Time) string {
	return filepath.Join(l.dir, t.In(Shanghai).Format(dayLayout)+".jsonl")
}

// Append records one completed analysis.
func (l *Log) Append(res *types.AnalysisResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().In(Shanghai)
	e := Entry{
		Time:       now.Format("2006-01-02 15:04:05"),
		RunID:      res.RunID,
		Ticker:     res.Ticker,
		Action:     res.Decision.Action,
		Confidence: res.Decision.Confidence,
		Votes:      res.Decision.Votes,
		Signals:    res.Decision.AgentSignals,
	}
	if v, ok := res.Data["start_date"].(string); ok {
		e.StartDate = v
	}
	if v, ok := res.Data["end_date"].(string); ok {
		e.EndDate = v
	}

	p := l.dailyPath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files last modified more than retentionDays ago.
// Zero or negative retention keeps everything as is.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, d := range entries {
		if d.IsDir() || filepath.Ext(d.Name()) != ".jsonl" {
			continue
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := gzipFile(filepath.Join(l.dir, d.Name())); err != nil {
			return fmt.Errorf("compress %s: %w", d.Name(), err)
		}
	}
	return nil
}

// gzipFile replaces p with p.gz. An existing p.gz wins and p is removed.
func gzipFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); closeErr == nil {
		closeErr = err
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(gz)
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}
	return os.Remove(p)
}
