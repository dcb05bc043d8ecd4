package harvest

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/util"
)

// Transition is what the controller does after a state change: finish,
// skip the current entry in place, or navigate.
type Transition struct {
	Done   bool
	Reason string
	Skip   bool
	Next   string
	Delay  time.Duration
}

func validTarget(raw string) bool {
	return strings.TrimSpace(raw) != "" && domain.IsAbsoluteURL(raw)
}

// Plan decides what follows the current index.
func (s AutoFetchState) Plan(defaultDelay time.Duration) Transition {
	if s.Index >= len(s.Queue) {
		return Transition{Done: true, Reason: "queue complete"}
	}
	target := s.Queue[s.Index].URL
	if !validTarget(target) {
		return Transition{Skip: true}
	}
	return Transition{Next: strings.TrimSpace(target), Delay: delayOf(s.DelayMs, defaultDelay)}
}

// Advance records one visited entry.
func (s AutoFetchState) Advance(captured bool) AutoFetchState {
	if s.Index < len(s.Queue) {
		s.Index++
	}
	if captured {
		s.Captured++
	}
	return s
}

// SkipCurrent passes over an entry without visiting it.
func (s AutoFetchState) SkipCurrent() AutoFetchState {
	if s.Index < len(s.Queue) {
		s.Index++
		s.Skipped++
	}
	return s
}

func (s AutoFetchState) Current() (domain.HarvestQueueEntry, bool) {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return domain.HarvestQueueEntry{}, false
	}
	return s.Queue[s.Index], true
}

func (s AutoFetchState) Summary() string {
	return fmt.Sprintf("processed %d, descriptions captured %d, skipped %d", s.Index, s.Captured, s.Skipped)
}

func (s AvailabilityState) Plan(defaultDelay time.Duration) Transition {
	if s.Index >= len(s.Queue) {
		return Transition{Done: true, Reason: "queue complete"}
	}
	target := s.Queue[s.Index].URL
	if !validTarget(target) {
		return Transition{Skip: true}
	}
	return Transition{Next: strings.TrimSpace(target), Delay: delayOf(s.DelayMs, defaultDelay)}
}

// Advance counts one checked entry. ok is false when the tracker call failed.
func (s AvailabilityState) Advance(v Verdict, ok bool) AvailabilityState {
	if s.Index < len(s.Queue) {
		s.Index++
	}
	s.Results.Checked++
	switch {
	case !ok:
		s.Results.Errors++
	case v.Unavailable:
		s.Results.MarkedUnavailable++
	}
	return s
}

func (s AvailabilityState) SkipCurrent() AvailabilityState {
	if s.Index < len(s.Queue) {
		s.Index++
		s.Results.Skipped++
	}
	return s
}

func (s AvailabilityState) Current() (domain.CheckEntry, bool) {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return domain.CheckEntry{}, false
	}
	return s.Queue[s.Index], true
}

func (s AvailabilityState) Summary() string {
	r := s.Results
	return fmt.Sprintf("checked %d, marked unavailable %d, errors %d, skipped %d",
		r.Checked, r.MarkedUnavailable, r.Errors, r.Skipped)
}

// Advance records one scanned results page.
func (s CrawlState) Advance(found, added, merged int) CrawlState {
	s.PagesScanned++
	s.JobsFound += found
	s.JobsAdded += added
	s.JobsMerged += merged
	return s
}

// Plan applies the termination rules in order: page budget, empty page,
// missing next page.
func (s CrawlState) Plan(listings int, next string, hasNext bool, defaultDelay time.Duration) Transition {
	switch {
	case s.PagesScanned >= s.MaxPages:
		return Transition{Done: true, Reason: "page limit reached"}
	case listings == 0:
		return Transition{Done: true, Reason: "no listings on page"}
	case !hasNext || !validTarget(next):
		return Transition{Done: true, Reason: "no next page"}
	}
	return Transition{Next: next, Delay: delayOf(s.DelayMs, defaultDelay)}
}

func (s CrawlState) Summary() string {
	return fmt.Sprintf("pages %d, jobs found %d, added %d, merged %d",
		s.PagesScanned, s.JobsFound, s.JobsAdded, s.JobsMerged)
}

// NextPage finds the following results page: the structural next control
// first, then the adapter's page/offset query param.
func NextPage(a types.Adapter, p *types.Page) (string, bool) {
	if next, ok := a.NextPageLink(p); ok {
		return next, true
	}
	next, ok := util.NextPageURL(p.URL, a.PageParam())
	if !ok || next == p.Href() {
		return "", false
	}
	return next, true
}

// Verdict is the outcome of classifying a job page.
type Verdict struct {
	Unavailable bool
	Reason      string
}

// Classify decides whether the loaded page still shows entry. Precedence:
// redirect away from the job, unavailability text, past expiry metadata.
func Classify(a types.Adapter, p *types.Page, entry domain.CheckEntry, now time.Time) Verdict {
	if reason, ok := redirected(a, p, entry); ok {
		return Verdict{Unavailable: true, Reason: reason}
	}
	if phrase, ok := a.IsUnavailableText(p); ok {
		return Verdict{Unavailable: true, Reason: "page says: " + phrase}
	}
	if exp, ok := a.ExpiresAt(p); ok && exp.Before(now) {
		return Verdict{Unavailable: true, Reason: "listing expired " + exp.Format("2006-01-02")}
	}
	return Verdict{}
}

func redirected(a types.Adapter, p *types.Page, entry domain.CheckEntry) (string, bool) {
	want, err := url.Parse(strings.TrimSpace(entry.URL))
	if err != nil || p == nil || p.URL == nil {
		return "", false
	}
	if !strings.EqualFold(stripWWW(want.Hostname()), stripWWW(p.URL.Hostname())) && !a.Matches(p.URL) {
		return "redirected to " + p.URL.Hostname(), true
	}
	if id := a.CurrentItemID(want); id != "" {
		if got := a.CurrentItemID(p.URL); got != id {
			return fmt.Sprintf("redirected away from job %s", id), true
		}
		return "", false
	}
	if a.NormalizeURL(entry.URL) != a.NormalizeURL(p.Href()) {
		return "redirected to " + p.URL.Path, true
	}
	return "", false
}

func stripWWW(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}
