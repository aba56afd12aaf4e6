package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/model"
	"BullionLedger/internal/notifier"
	"BullionLedger/internal/recorder"
	"BullionLedger/internal/store"
)

// Runner performs one ingestion pass for a date.
type Runner interface {
	Run(ctx context.Context, date time.Time) *model.RunSummary
}

// Notifier delivers run reports.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler triggers ingestion runs on a cron schedule.
type Scheduler struct {
	Cron            *cron.Cron
	Runner          Runner
	Notifier        Notifier
	Recorder        recorder.Recorder
	Location        *time.Location
	NotifyOnSuccess bool
	Ctx             context.Context

	// Commodities and DataDir back the /prices board.
	Commodities []model.Commodity
	DataDir     string

	now    func() time.Time
	runMu  sync.Mutex // serializes runs; one writer per commodity's files
	lastMu sync.Mutex
	last   *model.RunSummary
}

// NewScheduler creates a new Scheduler. notifier may be nil.
func NewScheduler(ctx context.Context, runner Runner, n Notifier, rec recorder.Recorder, loc *time.Location) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Runner:   runner,
		Notifier: n,
		Recorder: rec,
		Location: loc,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// Register adds the ingestion task on spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Get().Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Get().Info("scheduler stopped")
}

// Today returns the invocation date in the scheduler's timezone.
func (s *Scheduler) Today() time.Time {
	n := s.now().In(s.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.Location)
}

// RunNow executes an ingestion run immediately and reports it.
func (s *Scheduler) RunNow() *model.RunSummary {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	summary := s.Runner.Run(s.Ctx, s.Today())
	s.lastMu.Lock()
	s.last = summary
	s.lastMu.Unlock()

	if summary.Failed() > 0 || s.NotifyOnSuccess {
		s.trySend(notifier.FormatRunSummary(summary))
	}
	return summary
}

// LastSummary returns the most recent run, or nil before the first one.
func (s *Scheduler) LastSummary() *model.RunSummary {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	// Group chats address commands as /cmd@botname.
	command, _, _ = strings.Cut(strings.TrimSpace(command), "@")
	switch command {
	case "/run":
		return notifier.FormatRunSummary(s.RunNow())
	case "/status":
		last := s.LastSummary()
		if last == nil {
			return "No run since start"
		}
		return notifier.FormatRunSummary(last)
	case "/history":
		runs, err := s.Recorder.RecentRuns(10)
		if err != nil {
			logger.Get().WithError(err).Error("load run history")
			return "History unavailable"
		}
		return notifier.FormatRecentRuns(runs)
	case "/prices":
		return s.priceBoard()
	default:
		return "Commands:\n• /run\n• /status\n• /history\n• /prices"
	}
}

const boardDays = 7

func (s *Scheduler) priceBoard() string {
	if len(s.Commodities) == 0 {
		return "No commodities configured"
	}
	var b strings.Builder
	for _, c := range s.Commodities {
		bars := store.NewDailyStore(s.DataDir, c).Bars()
		b.WriteString(notifier.FormatPriceBoard(c, bars, boardDays))
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger.Get().WithError(err).Error("send notification")
	}
}
