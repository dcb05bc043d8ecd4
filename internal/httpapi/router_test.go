package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest-engine/internal/browser"
	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/harvest"
	"jobharvest-engine/internal/poll"
)

type fakeTabs struct {
	tabs     []browser.TabInfo
	openErr  error
	startErr error
	stopErr  error

	started  harvest.Kind
	opts     harvest.StartOptions
	startTab string
	stopped  string
	closed   string
}

func (f *fakeTabs) List() []browser.TabInfo { return f.tabs }

func (f *fakeTabs) Open(_ context.Context, url string) (browser.TabInfo, error) {
	info := browser.TabInfo{ID: "tab-9", URL: url, OpenedAt: time.Unix(0, 0).UTC()}
	return info, f.openErr
}

func (f *fakeTabs) Close(_ context.Context, id string) error {
	if id == "missing" {
		return browser.ErrTabNotFound
	}
	f.closed = id
	return nil
}

func (f *fakeTabs) Start(_ context.Context, id string, kind harvest.Kind, opts harvest.StartOptions) error {
	f.startTab, f.started, f.opts = id, kind, opts
	return f.startErr
}

func (f *fakeTabs) Stop(_ context.Context, id string) error {
	f.stopped = id
	return f.stopErr
}

func (f *fakeTabs) Status(_ context.Context, id string) (harvest.Status, error) {
	if id == "missing" {
		return harvest.Status{}, browser.ErrTabNotFound
	}
	return harvest.Status{Session: id, Active: harvest.KindCrawl, Summary: "pages 1"}, nil
}

type fakeSchedules struct {
	err error
	ran string
}

func (f *fakeSchedules) Statuses() []poll.RunStatus {
	return []poll.RunStatus{{Name: "nightly", Cron: "@every 6h", Workflow: "crawl"}}
}

func (f *fakeSchedules) RunNow(name string) error {
	f.ran = name
	return f.err
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Backend.BaseURL = "http://127.0.0.1:5080"
	cfg.Backend.APIKey = "secret-key"
	cfg.Notify.Telegram.Token = "123:tok"
	cfg.Harvest.DelayMs = 20000
	cfg.Harvest.Sites = []string{"linkedin"}
	return cfg
}

func newAPI(t *testing.T, d Deps) *httptest.Server {
	t.Helper()
	if d.CfgVal == nil {
		d.CfgVal = &atomic.Value{}
		d.CfgVal.Store(testConfig())
	}
	if d.Hub == nil {
		d.Hub = events.NewHub()
	}
	srv := httptest.NewServer(NewRouter(d))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string, hdr map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return res, out
}

func errCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthAndToken(t *testing.T) {
	tabs := &fakeTabs{tabs: []browser.TabInfo{{ID: "tab-1"}, {ID: "tab-2"}}}
	srv := newAPI(t, Deps{Tabs: tabs, Token: "s3cret"})

	res, out := call(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 2, out["tabs"])

	res, out = call(t, srv, http.MethodGet, "/tabs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", errCode(out))

	res, _ = call(t, srv, http.MethodGet, "/tabs", "", map[string]string{"X-Control-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = call(t, srv, http.MethodGet, "/tabs", "", map[string]string{"X-Control-Token": "s3cret"})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = call(t, srv, http.MethodGet, "/tabs?token=s3cret", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCorsPreflightAndRequestID(t *testing.T) {
	srv := newAPI(t, Deps{Tabs: &fakeTabs{}, Token: "s3cret"})

	res, _ := call(t, srv, http.MethodOptions, "/tabs", "", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:5173", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Headers"), "X-Control-Token")

	res, out := call(t, srv, http.MethodGet, "/tabs", "", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", res.Header.Get("X-Request-ID"))
	e := out["error"].(map[string]any)
	assert.Equal(t, "req-42", e["request_id"])
}

func TestOpenTab(t *testing.T) {
	tabs := &fakeTabs{}
	srv := newAPI(t, Deps{Tabs: tabs})

	res, out := call(t, srv, http.MethodPost, "/tabs", `{"url":"ftp://example.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_url", errCode(out))

	res, out = call(t, srv, http.MethodPost, "/tabs", `{"url":"x","extra":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_json", errCode(out))

	res, out = call(t, srv, http.MethodPost, "/tabs", `{"url":" https://www.linkedin.com/jobs/ "}`, nil)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "tab-9", out["id"])
	assert.Equal(t, "https://www.linkedin.com/jobs/", out["url"])

	tabs.openErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	res, out = call(t, srv, http.MethodPost, "/tabs", `{"url":"https://nope.invalid/"}`, nil)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "navigate_failed", errCode(out))
}

func TestStartWorkflow(t *testing.T) {
	tabs := &fakeTabs{}
	srv := newAPI(t, Deps{Tabs: tabs})

	res, out := call(t, srv, http.MethodPost, "/tabs/tab-1/workflows/scrape", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "unknown_workflow", errCode(out))

	res, out = call(t, srv, http.MethodPost, "/tabs/tab-1/workflows/crawl", `{"delayMs":-1}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_options", errCode(out))

	res, out = call(t, srv, http.MethodPost, "/tabs/tab-1/workflows/crawl", `{"delayMs":1500,"maxPages":4}`, nil)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, true, out["started"])
	assert.Equal(t, "crawl", out["workflow"])
	assert.Equal(t, "tab-1", tabs.startTab)
	assert.Equal(t, harvest.KindCrawl, tabs.started)
	assert.Equal(t, harvest.StartOptions{DelayMs: 1500, MaxPages: 4}, tabs.opts)

	// no body is fine
	tabs.startErr = harvest.ErrNothingToDo
	res, out = call(t, srv, http.MethodPost, "/tabs/tab-1/workflows/autofetch", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, false, out["started"])
	assert.Equal(t, "nothing to do", out["message"])

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{harvest.ErrWorkflowActive, http.StatusConflict, "workflow_active"},
		{harvest.ErrStopped, http.StatusConflict, "workflow_stopped"},
		{browser.ErrTabNotFound, http.StatusNotFound, "tab_not_found"},
		{browser.ErrTabNotReady, http.StatusConflict, "tab_not_ready"},
		{harvest.ErrNoAdapter, http.StatusUnprocessableEntity, "unsupported_site"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		tabs.startErr = tc.err
		res, out = call(t, srv, http.MethodPost, "/tabs/tab-1/workflows/availability", "", nil)
		assert.Equal(t, tc.status, res.StatusCode, tc.code)
		assert.Equal(t, tc.code, errCode(out))
	}
}

func TestTabLifecycleRoutes(t *testing.T) {
	tabs := &fakeTabs{}
	srv := newAPI(t, Deps{Tabs: tabs})

	res, out := call(t, srv, http.MethodGet, "/tabs/tab-3/status", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "tab-3", out["session"])
	assert.Equal(t, "crawl", out["active"])

	res, _ = call(t, srv, http.MethodGet, "/tabs/missing/status", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = call(t, srv, http.MethodDelete, "/tabs/tab-3/workflow", "", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "tab-3", tabs.stopped)

	res, _ = call(t, srv, http.MethodDelete, "/tabs/tab-3", "", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "tab-3", tabs.closed)

	res, _ = call(t, srv, http.MethodDelete, "/tabs/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSchedulesRoutes(t *testing.T) {
	srv := newAPI(t, Deps{Tabs: &fakeTabs{}})
	res, out := call(t, srv, http.MethodPost, "/schedules/nightly/run", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "schedule_not_found", errCode(out))

	sch := &fakeSchedules{}
	srv = newAPI(t, Deps{Tabs: &fakeTabs{}, Schedules: sch})

	res, err := http.Get(srv.URL + "/schedules")
	require.NoError(t, err)
	var list []poll.RunStatus
	require.NoError(t, json.NewDecoder(res.Body).Decode(&list))
	res.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "nightly", list[0].Name)

	res, out = call(t, srv, http.MethodPost, "/schedules/nightly/run", "", nil)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "nightly", out["name"])
	assert.Equal(t, "nightly", sch.ran)

	sch.err = poll.ErrAlreadyRunning
	res, out = call(t, srv, http.MethodPost, "/schedules/nightly/run", "", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "schedule_running", errCode(out))
}

func TestServerCheck(t *testing.T) {
	srv := newAPI(t, Deps{Tabs: &fakeTabs{}})
	res, _ := call(t, srv, http.MethodPost, "/availability/server-check", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	var gotSource string
	srv = newAPI(t, Deps{Tabs: &fakeTabs{}, CheckAvailability: func(_ context.Context, source string) (int64, error) {
		gotSource = source
		return 12, nil
	}})
	res, out := call(t, srv, http.MethodPost, "/availability/server-check", `{"source":" linkedin "}`, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 12, out["queued"])
	assert.Equal(t, "linkedin", gotSource)
}

func TestConfigRedactionAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfgVal := &atomic.Value{}
	cfgVal.Store(testConfig())
	srv := newAPI(t, Deps{
		Tabs:        &fakeTabs{},
		CfgVal:      cfgVal,
		UserCfgPath: path,
		LoadCfg:     func() (config.Config, error) { return config.Load(path) },
	})

	res, out := call(t, srv, http.MethodGet, "/config", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	backend := out["backend"].(map[string]any)
	assert.Equal(t, "********", backend["api_key"])

	res, out = call(t, srv, http.MethodPut, "/config", `{"backend":{"base_url":""}}`, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.NotEmpty(t, out["errors"])

	body := `{"backend":{"base_url":"http://127.0.0.1:6000","api_key":"leaked"},"harvest":{"delay_ms":15000,"sites":["indeed"]}}`
	res, out = call(t, srv, http.MethodPut, "/config", body, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	saved := out["config"].(map[string]any)["backend"].(map[string]any)
	assert.Equal(t, "********", saved["api_key"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "127.0.0.1:6000")
	assert.NotContains(t, string(raw), "leaked")

	cur := cfgVal.Load().(config.Config)
	assert.Equal(t, "secret-key", cur.Backend.APIKey)
	assert.Equal(t, []string{"indeed"}, cur.Harvest.Sites)
}

func TestEventsFilterBySession(t *testing.T) {
	hub := events.NewHub()
	srv := newAPI(t, Deps{Tabs: &fakeTabs{}, Hub: hub})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session=tab-2", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	sc := bufio.NewScanner(res.Body)
	nextData := func() events.Event {
		for sc.Scan() {
			line := sc.Text()
			if strings.HasPrefix(line, "data: ") {
				var evt events.Event
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
				return evt
			}
		}
		t.Fatal("stream ended")
		return events.Event{}
	}

	assert.Equal(t, "ping", nextData().Type)

	hub.Publish(events.SessionEvent("tab-1", "harvest.progress", nil))
	hub.Publish(events.SessionEvent("tab-2", "harvest.completed", nil))

	evt := nextData()
	assert.Equal(t, "harvest.completed", evt.Type)
	assert.Equal(t, "tab-2", evt.Session)
}
