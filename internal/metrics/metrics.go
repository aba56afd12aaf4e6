package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bullion_runs_total",
		Help: "Total number of ingestion runs",
	})

	CommodityResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullion_commodity_results_total",
		Help: "Per-commodity ingestion outcomes",
	}, []string{"commodity", "result"})

	ObservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullion_observations_total",
		Help: "Price observations folded into the stores",
	}, []string{"commodity"})

	StoreRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bullion_store_recoveries_total",
		Help: "Unreadable store files that were replaced by an empty store",
	}, []string{"kind"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bullion_last_run_timestamp_seconds",
		Help: "Unix time the last ingestion run finished",
	})
)
