package history

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/types"
)

func result(ticker string, action types.Action, conf float64) *types.AnalysisResult {
	return &types.AnalysisResult{
		Ticker: ticker,
		Status: "completed",
		RunID:  ticker + "-run",
		Decision: types.Decision{
			Action:     action,
			Confidence: conf,
			Votes:      map[types.Action]int{action: 1},
		},
		Data: map[string]any{"start_date": "2024-01-01", "end_date": "2024-06-28"},
	}
}

func fixedLog(t *testing.T, at time.Time) *Log {
	l := New(t.TempDir())
	l.now = func() time.Time { return at }
	return l
}

func TestAppendAndSummarizeDay(t *testing.T) {
	day := time.Date(2024, 7, 1, 10, 0, 0, 0, Shanghai)
	l := fixedLog(t, day)

	require.NoError(t, l.Append(result("600310", types.Bullish, 0.5)))
	require.NoError(t, l.Append(result("000001", types.Bearish, 1)))
	l.now = func() time.Time { return day.Add(time.Hour) }
	require.NoError(t, l.Append(result("600310", types.Neutral, 0.25)))

	raw, err := os.ReadFile(filepath.Join(l.Dir(), "2024-07-01.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"ticker":"600310"`)
	assert.Contains(t, lines[0], `"start_date":"2024-01-01"`)

	path, err := l.SummarizeDay(day)
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, recs, 4)
	assert.Equal(t, []string{"000001", "1", "0", "1", "0", "1.0000", "bearish", "2024-07-01 10:00:00"}, recs[1])
	assert.Equal(t, []string{"600310", "2", "1", "0", "1", "0.3750", "neutral", "2024-07-01 11:00:00"}, recs[2])
	assert.Equal(t, "TOTAL", recs[3][0])
	assert.Equal(t, "3", recs[3][1])
}

func TestSummarizeEmptyDay(t *testing.T) {
	l := fixedLog(t, time.Now())
	path, err := l.SummarizeDay(time.Date(2020, 1, 1, 0, 0, 0, 0, Shanghai))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCompressOlder(t *testing.T) {
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, Shanghai)
	l := fixedLog(t, now)

	old := filepath.Join(l.Dir(), "2024-06-01.jsonl")
	fresh := filepath.Join(l.Dir(), "2024-07-09.jsonl")
	require.NoError(t, os.WriteFile(old, []byte(`{"ticker":"600310"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte(`{"ticker":"000001"}`+"\n"), 0o644))
	require.NoError(t, os.Chtimes(old, now.AddDate(0, 0, -40), now.AddDate(0, 0, -40)))
	require.NoError(t, os.Chtimes(fresh, now.AddDate(0, 0, -1), now.AddDate(0, 0, -1)))

	require.NoError(t, l.CompressOlder(30))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, fresh)

	gzf, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer gzf.Close()
	zr, err := gzip.NewReader(gzf)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, `{"ticker":"600310"}`+"\n", string(body))

	assert.NoError(t, New(filepath.Join(t.TempDir(), "missing")).CompressOlder(1))
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) Analyze(_ context.Context, req types.AnalysisRequest) (*types.AnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return result(req.Ticker, types.Bullish, 0.75), nil
}

func TestRecord(t *testing.T) {
	day := time.Date(2024, 7, 1, 10, 0, 0, 0, Shanghai)
	l := fixedLog(t, day)

	res, err := Record(stubAnalyzer{}, l).Analyze(context.Background(), types.AnalysisRequest{Ticker: "600310"})
	require.NoError(t, err)
	assert.Equal(t, "600310", res.Ticker)
	assert.FileExists(t, filepath.Join(l.Dir(), "2024-07-01.jsonl"))

	boom := errors.New("boom")
	_, err = Record(stubAnalyzer{err: boom}, l).Analyze(context.Background(), types.AnalysisRequest{Ticker: "000001"})
	assert.ErrorIs(t, err, boom)

	// a journal that cannot be written does not fail the request
	blocked := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))
	_, err = Record(stubAnalyzer{}, New(blocked)).Analyze(context.Background(), types.AnalysisRequest{Ticker: "600310"})
	assert.NoError(t, err)
}
