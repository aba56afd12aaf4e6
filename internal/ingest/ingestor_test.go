package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BullionLedger/internal/collector"
	"BullionLedger/internal/logger"
	"BullionLedger/internal/model"
	"BullionLedger/internal/recorder"
)

const goldPage = `<table>
<tr><td>24K</td><td>1 g</td><td>₹6,250</td></tr>
<tr><td>22K</td><td>1 g</td><td>₹5,730</td></tr>
</table>`

type captureRecorder struct {
	recorder.NoopRecorder
	runs []*model.RunSummary
}

func (c *captureRecorder) RecordRun(s *model.RunSummary) error {
	c.runs = append(c.runs, s)
	return nil
}

func readJSON(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_FailureDoesNotStopOtherCommodities(t *testing.T) {
	logger.Discard()
	coms := model.DefaultCommodities()
	gold, silver, copper := coms[0], coms[1], coms[2]
	fetcher := &collector.MockFetcher{
		Pages: map[string]string{
			gold.URL:   goldPage,
			copper.URL: `<span class="commodityPrice">812.35</span>`,
		},
		Errs: map[string]error{silver.URL: errors.New("dial tcp: i/o timeout")},
	}
	dir := t.TempDir()
	rec := &captureRecorder{}
	in := NewIngestor(collector.NewCollector(fetcher), coms, dir, rec)

	summary := in.Run(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	require.Len(t, summary.Results, 3)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.True(t, summary.Results[0].OK())
	assert.Len(t, summary.Results[0].Observations, 2)
	assert.Equal(t, model.KindFetch, model.KindOf(summary.Results[1].Err))
	assert.True(t, summary.Results[2].OK())
	assert.NotEmpty(t, summary.ID)
	require.Len(t, rec.runs, 1)
	assert.Same(t, summary, rec.runs[0])

	goldRecs := readJSON(t, filepath.Join(dir, "gold.json"))
	require.Len(t, goldRecs, 2)
	assert.Equal(t, "24K", goldRecs[0]["purity"])
	assert.EqualValues(t, 6250, goldRecs[0]["close"])

	copperRecs := readJSON(t, filepath.Join(dir, "copper.json"))
	require.Len(t, copperRecs, 1)
	assert.EqualValues(t, 812350, copperRecs[0]["close"])

	_, err := os.Stat(filepath.Join(dir, "silver.json"))
	assert.True(t, os.IsNotExist(err))

	rows := readCSV(t, filepath.Join(dir, "hourly", "gold_22k_hourly.csv"))
	assert.Equal(t, [][]string{{"date", "unit", "p_01"}, {"2024-01-01", "INR/gram", "5730"}}, rows)
	rows = readCSV(t, filepath.Join(dir, "hourly", "copper_hourly.csv"))
	assert.Equal(t, []string{"2024-01-01", "INR/kg", "812.35"}, rows[1])
}

func TestRun_RepeatedRunsBuildOHLCAndIntraday(t *testing.T) {
	logger.Discard()
	silver := model.DefaultCommodities()[1]
	fetcher := &collector.MockFetcher{Pages: map[string]string{}}
	dir := t.TempDir()
	in := NewIngestor(collector.NewCollector(fetcher), []model.Commodity{silver}, dir, nil)
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	for _, p := range []string{"72,000", "72,400", "71,900"} {
		fetcher.Pages[silver.URL] = `<span class="commodityPrice">` + p + `</span>`
		s := in.Run(context.Background(), date)
		require.Equal(t, 0, s.Failed())
	}

	recs := readJSON(t, filepath.Join(dir, "silver.json"))
	require.Len(t, recs, 1)
	assert.EqualValues(t, 72000, recs[0]["open"])
	assert.EqualValues(t, 72400, recs[0]["high"])
	assert.EqualValues(t, 71900, recs[0]["low"])
	assert.EqualValues(t, 71900, recs[0]["close"])

	rows := readCSV(t, filepath.Join(dir, "hourly", "silver_hourly.csv"))
	assert.Equal(t, [][]string{
		{"date", "unit", "p_01", "p_02", "p_03"},
		{"2024-02-10", "INR/kg", "72000", "72400", "71900"},
	}, rows)

	daily := readCSV(t, filepath.Join(dir, "silver.csv"))
	assert.Equal(t, []string{"date", "close", "source", "open", "high", "low"}, daily[0])
}

func TestRun_PersistenceFailureIsReported(t *testing.T) {
	logger.Discard()
	copper := model.DefaultCommodities()[2]
	fetcher := &collector.MockFetcher{Pages: map[string]string{copper.URL: `<span class="commodityPrice">812</span>`}}
	dir := t.TempDir()
	// A regular file where the hourly directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hourly"), nil, 0644))
	in := NewIngestor(collector.NewCollector(fetcher), []model.Commodity{copper}, dir, nil)

	s := in.Run(context.Background(), time.Now())
	require.Len(t, s.Results, 1)
	assert.Equal(t, model.KindPersistence, model.KindOf(s.Results[0].Err))
}

func TestRun_IntradayFailureStillMergesDaily(t *testing.T) {
	logger.Discard()
	coms := model.DefaultCommodities()
	gold, silver := coms[0], coms[1]
	fetcher := &collector.MockFetcher{Pages: map[string]string{
		gold.URL:   goldPage,
		silver.URL: `<span class="commodityPrice">72,150</span>`,
	}}
	dir := t.TempDir()
	// A regular file where the hourly directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hourly"), nil, 0644))
	in := NewIngestor(collector.NewCollector(fetcher), []model.Commodity{gold, silver}, dir, nil)

	s := in.Run(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, s.Results, 2)
	for _, r := range s.Results {
		assert.Equal(t, model.KindPersistence, model.KindOf(r.Err), r.Commodity)
		assert.ErrorContains(t, r.Err, "append intraday")
	}

	silverRecs := readJSON(t, filepath.Join(dir, "silver.json"))
	require.Len(t, silverRecs, 1)
	assert.EqualValues(t, 72150, silverRecs[0]["close"])

	// Both purities are merged even though each intraday append failed.
	goldRecs := readJSON(t, filepath.Join(dir, "gold.json"))
	require.Len(t, goldRecs, 2)
	assert.Equal(t, "24K", goldRecs[0]["purity"])
	assert.Equal(t, "22K", goldRecs[1]["purity"])
}
