package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var (
	stateBackends = map[string]bool{"sqlite": true, "badger": true, "redis": true, "memory": true}
	workflowKinds = map[string]bool{"autofetch": true, "crawl": true, "availability": true}
)

// NormalizeAndValidate returns a normalized copy of cfg with defaults filled
// in, plus any errors and warnings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Harvest.Sites = trimList(out.Harvest.Sites)
	out.Browser.StartURLs = trimList(out.Browser.StartURLs)
	out.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(out.Backend.BaseURL), "/")
	out.State.Backend = strings.ToLower(strings.TrimSpace(out.State.Backend))

	// defaults
	if out.App.Port == 0 {
		out.App.Port = 38471
	}
	if out.Backend.APIKeyHeader == "" {
		out.Backend.APIKeyHeader = "X-API-Key"
	}
	if out.Backend.TimeoutSeconds == 0 {
		out.Backend.TimeoutSeconds = 15
	}
	if out.State.Backend == "" {
		out.State.Backend = "sqlite"
	}
	if out.Harvest.SettleMs == 0 {
		out.Harvest.SettleMs = 1500
	}
	if out.Harvest.DelayMs == 0 {
		out.Harvest.DelayMs = 3000
	}
	if out.Harvest.SkipDelayMs == 0 {
		out.Harvest.SkipDelayMs = 500
	}
	if out.Harvest.MaxPages == 0 {
		out.Harvest.MaxPages = 10
	}
	if out.Harvest.FetchLimit == 0 {
		out.Harvest.FetchLimit = 200
	}

	// ---- Validation rules ----

	if out.App.Port < 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Backend.BaseURL == "" {
		res.addErr("backend.base_url is required")
	} else if u, err := url.Parse(out.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		res.addErr("backend.base_url must be an absolute http(s) URL: %q", out.Backend.BaseURL)
	}
	if out.Backend.TimeoutSeconds < 0 {
		res.addErr("backend.timeout_seconds must be >= 0")
	}
	if out.Backend.RatePerSec < 0 {
		res.addErr("backend.rate_per_sec must be >= 0")
	}

	if !stateBackends[out.State.Backend] {
		res.addErr("state.backend must be one of sqlite, badger, redis, memory (got %q)", out.State.Backend)
	}
	if out.State.Backend == "redis" && strings.TrimSpace(out.State.RedisURL) == "" {
		res.addErr("state.redis_url is required when state.backend=redis")
	}
	if out.State.Backend == "memory" {
		res.addWarn("state.backend=memory: workflows will not survive a restart.")
	}

	// pacing
	switch {
	case out.Harvest.DelayMs < 0:
		res.addErr("harvest.delay_ms must be >= 0")
	case out.Harvest.DelayMs < 10000:
		res.addWarn("harvest.delay_ms is very low (%d); sites are likely to rate limit or block this session.", out.Harvest.DelayMs)
	case out.Harvest.DelayMs < 20000:
		res.addWarn("harvest.delay_ms is %d; 20000 or more is safer for long runs.", out.Harvest.DelayMs)
	}
	if out.Harvest.MaxPages < 0 {
		res.addErr("harvest.max_pages must be >= 1")
	}
	if out.Harvest.FetchLimit < 0 {
		res.addErr("harvest.fetch_limit must be >= 1")
	}
	if out.Harvest.MonitorSeconds < 0 {
		res.addErr("harvest.monitor_seconds must be >= 0")
	}

	names := map[string]bool{}
	for i, s := range out.Schedules {
		if strings.TrimSpace(s.Name) == "" {
			res.addErr("schedules[%d].name is required", i)
		} else if names[s.Name] {
			res.addErr("schedules[%d].name %q is duplicated", i, s.Name)
		}
		names[s.Name] = true
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			res.addErr("schedules[%d].cron %q: %v", i, s.Cron, err)
		}
		if !workflowKinds[strings.ToLower(s.Workflow)] {
			res.addErr("schedules[%d].workflow must be autofetch, crawl or availability", i)
		}
		if u, err := url.Parse(s.URL); err != nil || u.Host == "" {
			res.addErr("schedules[%d].url must be an absolute URL", i)
		}
	}

	if out.Notify.Telegram.Enabled && out.Notify.Telegram.ChatID == 0 {
		res.addErr("notify.telegram.chat_id is required when notify.telegram.enabled=true")
	}

	for i, r := range out.Skills.Rules {
		if r.Tag == "" {
			res.addErr("skills.rules[%d].tag is required", i)
		}
		if len(r.Any) == 0 {
			res.addErr("skills.rules[%d].any must have at least 1 term", i)
		}
		for j, term := range r.Any {
			if strings.TrimSpace(term) == "" {
				res.addErr("skills.rules[%d].any[%d] cannot be empty", i, j)
			}
		}
	}

	return out, res
}
