package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/model"
)

type fakeRunner struct {
	dates []time.Time
	fail  bool
}

func (f *fakeRunner) Run(_ context.Context, date time.Time) *model.RunSummary {
	f.dates = append(f.dates, date)
	s := &model.RunSummary{ID: "r", Date: date, Results: []model.Result{{Commodity: "silver"}}}
	if f.fail {
		s.Results = append(s.Results, model.Result{Commodity: "copper", Err: errors.New("boom")})
	}
	return s
}

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.sent = append(f.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, r *fakeRunner, n *fakeNotifier) *Scheduler {
	t.Helper()
	logger.Discard()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	var notif Notifier
	if n != nil {
		notif = n
	}
	s := NewScheduler(context.Background(), r, notif, nil, loc)
	// 20:00 UTC is already the next day in India.
	s.now = func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) }
	return s
}

func TestToday_UsesSchedulerTimezone(t *testing.T) {
	s := newTestScheduler(t, &fakeRunner{}, nil)
	assert.Equal(t, "2024-01-02", s.Today().Format(model.DateLayout))
}

func TestRunNow_NotifiesOnlyOnFailure(t *testing.T) {
	r := &fakeRunner{}
	n := &fakeNotifier{}
	s := newTestScheduler(t, r, n)

	s.RunNow()
	assert.Empty(t, n.sent)
	require.Len(t, r.dates, 1)
	assert.Equal(t, "2024-01-02", r.dates[0].Format(model.DateLayout))

	r.fail = true
	s.RunNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "copper: FAILED -> boom")

	r.fail = false
	s.NotifyOnSuccess = true
	s.RunNow()
	assert.Len(t, n.sent, 2)
}

func TestHandleCommand(t *testing.T) {
	r := &fakeRunner{}
	s := newTestScheduler(t, r, nil)

	assert.Equal(t, "No run since start", s.HandleCommand("/status"))
	assert.Contains(t, s.HandleCommand("/run"), "1 ok, 0 failed")
	assert.Len(t, r.dates, 1)
	assert.Contains(t, s.HandleCommand("/status"), "2024-01-02")
	assert.Equal(t, "No runs recorded yet", s.HandleCommand("/history"))
	assert.Contains(t, s.HandleCommand("hello"), "/run")
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	s := newTestScheduler(t, &fakeRunner{}, nil)
	assert.Error(t, s.Register("not a cron"))
	assert.NoError(t, s.Register("0 5 * * * *"))
}

func TestHandleCommand_Prices(t *testing.T) {
	s := newTestScheduler(t, &fakeRunner{}, nil)
	assert.Equal(t, "No commodities configured", s.HandleCommand("/prices"))

	dir := t.TempDir()
	silver := model.Commodity{Name: "silver", Unit: model.UnitKg}
	data := `[
  {"date": "2024-01-01", "open": 72000, "high": 72500, "low": 71800, "close": 72400, "source": "ET"},
  {"date": "2024-01-02", "open": 72400, "high": 73100, "low": 72300, "close": 73000, "source": "ET"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, silver.DailyJSONFile()), []byte(data), 0644))
	s.Commodities = []model.Commodity{silver}
	s.DataDir = dir

	board := s.HandleCommand("/prices")
	assert.Contains(t, board, "<b>silver</b> (INR/kg)")
	assert.Contains(t, board, "2024-01-02 O 72400.00 H 73100.00 L 72300.00 C 73000.00 ▲")
	assert.Contains(t, s.HandleCommand("/help"), "/prices")
	assert.Equal(t, board, s.HandleCommand("/prices@bullion_bot"))
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(_ context.Context, date time.Time) *model.RunSummary {
	close(b.started)
	<-b.release
	return &model.RunSummary{ID: "slow", Date: date}
}

func TestStatus_DoesNotWaitForRunningIngest(t *testing.T) {
	logger.Discard()
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(context.Background(), r, nil, nil, time.UTC)

	finished := make(chan struct{})
	go func() {
		s.RunNow()
		close(finished)
	}()
	<-r.started

	reply := make(chan string, 1)
	go func() { reply <- s.HandleCommand("/status") }()
	select {
	case got := <-reply:
		assert.Equal(t, "No run since start", got)
	case <-time.After(2 * time.Second):
		t.Fatal("/status blocked behind the running ingest")
	}

	close(r.release)
	<-finished
	require.NotNil(t, s.LastSummary())
	assert.Equal(t, "slow", s.LastSummary().ID)
}
