package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/metrics"
	"BullionLedger/internal/model"
	"BullionLedger/internal/recorder"
	"BullionLedger/internal/store"
)

// Source produces today's observations for one commodity.
type Source interface {
	Collect(ctx context.Context, com model.Commodity, date time.Time) ([]model.Observation, error)
}

// Ingestor runs one pass per commodity and folds each observation into the
// commodity's intraday table and daily store.
type Ingestor struct {
	Source      Source
	Commodities []model.Commodity
	DataDir     string
	Recorder    recorder.Recorder
	now         func() time.Time
}

// NewIngestor creates an Ingestor writing under dataDir.
func NewIngestor(src Source, commodities []model.Commodity, dataDir string, rec recorder.Recorder) *Ingestor {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Ingestor{
		Source:      src,
		Commodities: commodities,
		DataDir:     dataDir,
		Recorder:    rec,
		now:         time.Now,
	}
}

// Run ingests every commodity for date. A failing commodity is reported in
// its Result and does not stop the others.
func (in *Ingestor) Run(ctx context.Context, date time.Time) *model.RunSummary {
	summary := &model.RunSummary{
		ID:        uuid.NewString(),
		Date:      date,
		StartedAt: in.now(),
	}
	log := logger.Get().WithFields(logrus.Fields{"run_id": summary.ID, "date": date.Format(model.DateLayout)})
	log.Info("ingestion run started")

	for _, com := range in.Commodities {
		res := in.ingestOne(ctx, com, date)
		summary.Results = append(summary.Results, res)

		entry := log.WithField("commodity", com.Name)
		if res.OK() {
			metrics.CommodityResults.WithLabelValues(com.Name, "ok").Inc()
			entry.WithField("observations", len(res.Observations)).Info("commodity ingested")
		} else {
			metrics.CommodityResults.WithLabelValues(com.Name, string(model.KindOf(res.Err))).Inc()
			entry.WithError(res.Err).Error("commodity failed")
		}
	}

	summary.FinishedAt = in.now()
	metrics.RunsTotal.Inc()
	metrics.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))

	if err := in.Recorder.RecordRun(summary); err != nil {
		log.WithError(err).Error("record run")
	}
	log.WithFields(logrus.Fields{"ok": summary.Succeeded(), "failed": summary.Failed()}).Info("ingestion run finished")
	return summary
}

func (in *Ingestor) ingestOne(ctx context.Context, com model.Commodity, date time.Time) model.Result {
	res := model.Result{Commodity: com.Name}

	obs, err := in.Source.Collect(ctx, com, date)
	if err != nil {
		res.Err = err
		return res
	}

	daily := store.NewDailyStore(in.DataDir, com)
	var errs []error
	for _, o := range obs {
		if err := in.persist(com, daily, o); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Observations = append(res.Observations, o)
		metrics.ObservationsTotal.WithLabelValues(com.Name).Inc()
	}
	if len(errs) > 0 {
		res.Err = &model.IngestError{Kind: model.KindPersistence, Commodity: com.Name, Err: errors.Join(errs...)}
	}
	return res
}

// persist appends o to its intraday table and merges it into the daily
// store. Both writes are always attempted; a failure of one does not skip
// the other.
func (in *Ingestor) persist(com model.Commodity, daily *store.DailyStore, o model.Observation) error {
	path := filepath.Join(in.DataDir, com.IntradayFile(o.SubKey()))
	col, intradayErr := store.AppendIntraday(path, o.DateKey(), o.Unit.Label(), o.Value)
	if intradayErr != nil {
		intradayErr = fmt.Errorf("append intraday: %w", intradayErr)
	}

	ohlc, dailyErr := daily.Merge(o)
	if dailyErr != nil {
		dailyErr = fmt.Errorf("merge daily: %w", dailyErr)
	}
	if err := errors.Join(intradayErr, dailyErr); err != nil {
		return err
	}

	logger.Get().WithFields(logrus.Fields{
		"commodity": com.Name,
		"sub_key":   o.SubKey(),
		"column":    col,
		"open":      ohlc.Open,
		"high":      ohlc.High,
		"low":       ohlc.Low,
		"close":     ohlc.Close,
	}).Debug("observation stored")
	return nil
}
