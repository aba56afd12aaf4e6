package recorder

import (
	"time"

	"BullionLedger/internal/model"
)

// RunRecord is a stored run summary row.
type RunRecord struct {
	ID         string
	Date       string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(summary *model.RunSummary) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
