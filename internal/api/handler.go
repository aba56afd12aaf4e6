package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"BullionLedger/internal/calculator"
	"BullionLedger/internal/logger"
	"BullionLedger/internal/model"
	"BullionLedger/internal/recorder"
	"BullionLedger/internal/store"
)

const (
	defaultDays = 7
	maxDays     = 366
	defaultRuns = 10
	maxRuns     = 100
)

type Handler struct {
	Commodities []model.Commodity
	DataDir     string
	Recorder    recorder.Recorder
}

func NewHandler(commodities []model.Commodity, dataDir string, rec recorder.Recorder) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Handler{Commodities: commodities, DataDir: dataDir, Recorder: rec}
}

type commodityInfo struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Source string `json:"source"`
	SubKey string `json:"sub_key_field,omitempty"`
}

type barView struct {
	model.DailyBar
	Change string `json:"change"`
}

type seriesView struct {
	SubKey string    `json:"sub_key,omitempty"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Bars   []barView `json:"bars"`
}

type runView struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListCommodities(c *gin.Context) {
	out := make([]commodityInfo, 0, len(h.Commodities))
	for _, com := range h.Commodities {
		out = append(out, commodityInfo{
			Name:   com.Name,
			Unit:   com.Unit.Label(),
			Source: com.Source,
			SubKey: com.SubKeyField,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetPrices returns the latest daily bars of a commodity, newest first,
// one series per sub key. ?days limits the window, ?sub_key picks a series.
func (h *Handler) GetPrices(c *gin.Context) {
	name := c.Param("commodity")
	var com *model.Commodity
	for i := range h.Commodities {
		if h.Commodities[i].Name == name {
			com = &h.Commodities[i]
			break
		}
	}
	if com == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown commodity " + name})
		return
	}

	days, ok := intQuery(c, "days", defaultDays, maxDays)
	if !ok {
		return
	}
	subKey := c.Query("sub_key")

	bars := store.NewDailyStore(h.DataDir, *com).Bars()
	series := make([]seriesView, 0)
	for _, s := range calculator.GroupBySubKey(bars) {
		if subKey != "" && s.SubKey != subKey {
			continue
		}
		recent := calculator.Recent(s.Bars, days)
		view := seriesView{SubKey: s.SubKey, Bars: make([]barView, 0, len(recent))}
		view.High, view.Low, _ = calculator.PeriodRange(recent)
		for i, b := range recent {
			dir := calculator.Same
			if i+1 < len(recent) {
				dir = calculator.Compare(b.Close, recent[i+1].Close)
			}
			view.Bars = append(view.Bars, barView{DailyBar: b, Change: dir.String()})
		}
		series = append(series, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"commodity": com.Name,
		"unit":      com.Unit.Label(),
		"series":    series,
	})
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultRuns, maxRuns)
	if !ok {
		return
	}
	runs, err := h.Recorder.RecentRuns(limit)
	if err != nil {
		logger.Get().WithError(err).Error("load run history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run history unavailable"})
		return
	}
	out := make([]runView, 0, len(runs))
	for _, r := range runs {
		out = append(out, runView{
			ID:         r.ID,
			Date:       r.Date,
			StartedAt:  r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			FinishedAt: r.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Succeeded:  r.Succeeded,
			Failed:     r.Failed,
		})
	}
	c.JSON(http.StatusOK, out)
}

// intQuery reads a positive integer parameter capped at max. It writes a 400
// and returns false when the value is malformed.
func intQuery(c *gin.Context, key string, def, max int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be a positive integer"})
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}
