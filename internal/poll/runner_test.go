package poll

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
)

func waitRun(t *testing.T, sub chan string) RunStatus {
	t.Helper()
	select {
	case raw := <-sub:
		var evt events.Event
		require.NoError(t, json.Unmarshal([]byte(raw), &evt))
		require.Equal(t, "schedule.run", evt.Type)
		var st RunStatus
		require.NoError(t, json.Unmarshal(evt.Data, &st))
		return st
	case <-time.After(5 * time.Second):
		t.Fatal("no schedule.run event")
	}
	return RunStatus{}
}

func TestRunNowLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	release := make(chan struct{})
	var got config.Schedule
	start := func(_ context.Context, s config.Schedule) (string, error) {
		got = s
		<-release
		return "tab-7", nil
	}

	r := NewRunner(ctx, start, hub)
	require.NoError(t, r.Load([]config.Schedule{
		{Name: "nightly-crawl", Cron: "@every 6h", Workflow: "crawl", URL: "https://www.linkedin.com/jobs/search/?keywords=go"},
		{Name: "checks", Cron: "0 9 * * 1-5", Workflow: "availability", URL: "https://www.linkedin.com/jobs/"},
	}))

	assert.ErrorIs(t, r.RunNow("missing"), ErrUnknownSchedule)

	require.NoError(t, r.RunNow("nightly-crawl"))
	assert.ErrorIs(t, r.RunNow("nightly-crawl"), ErrAlreadyRunning)
	close(release)

	st := waitRun(t, sub)
	assert.Equal(t, "nightly-crawl", st.Name)
	assert.Equal(t, "tab-7", st.LastTab)
	assert.Equal(t, 1, st.Runs)
	assert.False(t, st.Running)
	assert.Empty(t, st.LastError)
	assert.NotEmpty(t, st.LastOkAt)
	assert.Equal(t, "crawl", got.Workflow)

	all := r.Statuses()
	require.Len(t, all, 2)
	assert.Equal(t, "checks", all[0].Name)
	assert.Equal(t, 0, all[0].Runs)
	assert.Equal(t, "nightly-crawl", all[1].Name)
	assert.Equal(t, 1, all[1].Runs)
}

func TestRunNowRecordsError(t *testing.T) {
	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	start := func(context.Context, config.Schedule) (string, error) {
		return "", errors.New("browser unavailable")
	}
	r := NewRunner(context.Background(), start, hub)
	require.NoError(t, r.Load([]config.Schedule{{Name: "a", Cron: "@every 1h", Workflow: "autofetch", URL: "https://jobs.lever.co/acme"}}))

	require.NoError(t, r.RunNow("a"))
	st := waitRun(t, sub)
	assert.Equal(t, "browser unavailable", st.LastError)
	assert.Empty(t, st.LastOkAt)

	// a failed run frees the slot
	require.NoError(t, r.RunNow("a"))
	st = waitRun(t, sub)
	assert.Equal(t, 2, st.Runs)
}

func TestLoadRejectsBadCron(t *testing.T) {
	r := NewRunner(context.Background(), nil, nil)
	err := r.Load([]config.Schedule{{Name: "bad", Cron: "every tuesday"}})
	assert.Error(t, err)
	assert.Empty(t, r.Statuses())
}
