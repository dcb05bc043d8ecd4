// Package harvest runs the resumable, page-driven harvesting workflows.
//
// Every page load is an Episode: it reads at most one persisted workflow
// state, performs one step against the loaded page, writes the whole state
// back and schedules at most one navigation. Nothing in memory survives the
// navigation.
package harvest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobharvest-engine/internal/domain"
)

type Kind string

const (
	KindAutoFetch    Kind = "autofetch"
	KindCrawl        Kind = "crawl"
	KindAvailability Kind = "availability"
)

// Kinds is the order in which persisted state is looked up on resume.
var Kinds = []Kind{KindAutoFetch, KindCrawl, KindAvailability}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown workflow %q", s)
}

// WorkflowState is the tagged union of persisted workflow states.
type WorkflowState interface {
	Kind() Kind
	check() error
}

type AutoFetchState struct {
	Queue    []domain.HarvestQueueEntry `json:"queue"`
	Index    int                        `json:"index"`
	DelayMs  int                        `json:"delayMs"`
	Captured int                        `json:"captured"`
	Skipped  int                        `json:"skipped"`
}

type CrawlState struct {
	PagesScanned int `json:"pagesScanned"`
	JobsFound    int `json:"jobsFound"`
	JobsAdded    int `json:"jobsAdded"`
	JobsMerged   int `json:"jobsMerged"`
	MaxPages     int `json:"maxPages"`
	DelayMs      int `json:"delayMs"`
}

type AvailabilityResults struct {
	Checked           int `json:"checked"`
	MarkedUnavailable int `json:"markedUnavailable"`
	Errors            int `json:"errors"`
	Skipped           int `json:"skipped"`
}

type AvailabilityState struct {
	Queue   []domain.CheckEntry `json:"queue"`
	Index   int                 `json:"index"`
	DelayMs int                 `json:"delayMs"`
	Results AvailabilityResults `json:"results"`
}

func (AutoFetchState) Kind() Kind    { return KindAutoFetch }
func (CrawlState) Kind() Kind        { return KindCrawl }
func (AvailabilityState) Kind() Kind { return KindAvailability }

var errBadState = errors.New("invalid workflow state")

func (s AutoFetchState) check() error {
	if s.Index < 0 || s.Index > len(s.Queue) || s.DelayMs < 0 || s.Captured < 0 || s.Skipped < 0 {
		return errBadState
	}
	return nil
}

func (s CrawlState) check() error {
	if s.MaxPages < 1 || s.PagesScanned < 0 || s.JobsFound < 0 || s.JobsAdded < 0 || s.DelayMs < 0 {
		return errBadState
	}
	return nil
}

func (s AvailabilityState) check() error {
	r := s.Results
	if s.Index < 0 || s.Index > len(s.Queue) || s.DelayMs < 0 ||
		r.Checked < 0 || r.MarkedUnavailable < 0 || r.Errors < 0 || r.Skipped < 0 {
		return errBadState
	}
	return nil
}

func delayOf(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

const envelopeVersion = 1

type envelope struct {
	Kind  Kind            `json:"kind"`
	V     int             `json:"v"`
	State json.RawMessage `json:"state"`
}

func encodeState(ws WorkflowState) ([]byte, error) {
	raw, err := json.Marshal(ws)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: ws.Kind(), V: envelopeVersion, State: raw})
}

// decodeState parses a persisted record. Any mismatch is reported as an
// error and the caller treats the record as corrupt.
func decodeState(want Kind, b []byte) (WorkflowState, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Kind != want || env.V != envelopeVersion {
		return nil, fmt.Errorf("unexpected envelope kind=%q v=%d", env.Kind, env.V)
	}

	var ws WorkflowState
	switch want {
	case KindAutoFetch:
		var s AutoFetchState
		if err := json.Unmarshal(env.State, &s); err != nil {
			return nil, err
		}
		ws = s
	case KindCrawl:
		var s CrawlState
		if err := json.Unmarshal(env.State, &s); err != nil {
			return nil, err
		}
		ws = s
	case KindAvailability:
		var s AvailabilityState
		if err := json.Unmarshal(env.State, &s); err != nil {
			return nil, err
		}
		ws = s
	default:
		return nil, fmt.Errorf("unknown kind %q", want)
	}
	if err := ws.check(); err != nil {
		return nil, err
	}
	return ws, nil
}
