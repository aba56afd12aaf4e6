package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/model"
	"BullionLedger/internal/recorder"
)

const goldJSON = `[
  {"date": "2024-01-01", "purity": "24K", "open": 6200, "high": 6260, "low": 6190, "close": 6250, "source": "GoldPricesIndia"},
  {"date": "2024-01-01", "purity": "22K", "close": 5700, "source": "GoldPricesIndia"},
  {"date": "2024-01-02", "purity": "24K", "open": 6250, "high": 6300, "low": 6240, "close": 6240, "source": "GoldPricesIndia"}
]`

type stubRecorder struct {
	recorder.NoopRecorder
	runs []recorder.RunRecord
	err  error
}

func (s *stubRecorder) RecentRuns(limit int) ([]recorder.RunRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func setup(t *testing.T, rec recorder.Recorder) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Discard()
	dir := t.TempDir()
	gold := model.DefaultCommodities()[0]
	require.NoError(t, os.WriteFile(filepath.Join(dir, gold.DailyJSONFile()), []byte(goldJSON), 0644))
	return NewRouter(NewHandler(model.DefaultCommodities(), dir, rec))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

type pricesResponse struct {
	Commodity string `json:"commodity"`
	Unit      string `json:"unit"`
	Series    []struct {
		SubKey string  `json:"sub_key"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Bars   []struct {
			Date   string  `json:"date"`
			Close  float64 `json:"close"`
			Change string  `json:"change"`
		} `json:"bars"`
	} `json:"series"`
}

func TestGetPrices(t *testing.T) {
	h := setup(t, nil)

	w := get(t, h, "/v1/prices/gold")
	require.Equal(t, http.StatusOK, w.Code)
	var resp pricesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "gold", resp.Commodity)
	assert.Equal(t, "INR/gram", resp.Unit)
	require.Len(t, resp.Series, 2)
	s := resp.Series[0]
	assert.Equal(t, "24K", s.SubKey)
	assert.Equal(t, 6300.0, s.High)
	assert.Equal(t, 6190.0, s.Low)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, "2024-01-02", s.Bars[0].Date)
	assert.Equal(t, "down", s.Bars[0].Change)
	assert.Equal(t, "same", s.Bars[1].Change)
	assert.Equal(t, 5700.0, resp.Series[1].Bars[0].Close)
}

func TestGetPrices_Filters(t *testing.T) {
	h := setup(t, nil)

	w := get(t, h, "/v1/prices/gold?days=1&sub_key=24K")
	require.Equal(t, http.StatusOK, w.Code)
	var resp pricesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Series, 1)
	require.Len(t, resp.Series[0].Bars, 1)
	assert.Equal(t, 6240.0, resp.Series[0].Bars[0].Close)

	w = get(t, h, "/v1/prices/silver")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Series)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/prices/platinum").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/prices/gold?days=-3").Code)
}

func TestListRuns(t *testing.T) {
	started := time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC)
	rec := &stubRecorder{runs: []recorder.RunRecord{
		{ID: "b", Date: "2024-01-01", StartedAt: started.Add(time.Hour), FinishedAt: started.Add(time.Hour), Succeeded: 3},
		{ID: "a", Date: "2024-01-01", StartedAt: started, FinishedAt: started, Succeeded: 2, Failed: 1},
	}}
	h := setup(t, rec)

	w := get(t, h, "/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0]["id"])
	assert.Equal(t, "2024-01-01T04:30:00Z", runs[0]["started_at"])

	rec.err = errors.New("database is locked")
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/v1/runs").Code)
}

func TestHealthAndCommodities(t *testing.T) {
	h := setup(t, nil)

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	w := get(t, h, "/v1/commodities")
	require.Equal(t, http.StatusOK, w.Code)
	var coms []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &coms))
	require.Len(t, coms, 3)
	assert.Equal(t, "purity", coms[0]["sub_key_field"])
	assert.Equal(t, "INR/kg", coms[1]["unit"])

	assert.Equal(t, http.StatusOK, get(t, h, "/metrics").Code)
}
