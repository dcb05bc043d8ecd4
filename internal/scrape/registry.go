// Package scrape resolves which site adapter handles a page.
package scrape

import (
	"net/url"
	"strings"

	"jobharvest-engine/internal/scrape/greenhouse"
	"jobharvest-engine/internal/scrape/indeed"
	"jobharvest-engine/internal/scrape/lever"
	"jobharvest-engine/internal/scrape/linkedin"
	"jobharvest-engine/internal/scrape/smartrecruiters"
	"jobharvest-engine/internal/scrape/types"
	"jobharvest-engine/internal/scrape/workday"
)

type Registry struct {
	adapters []types.Adapter
}

func NewRegistry(adapters ...types.Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry knows every built-in site. enabled filters by adapter name
// (case-insensitive); an empty list enables all.
func DefaultRegistry(enabled ...string) *Registry {
	all := []types.Adapter{
		linkedin.New(),
		indeed.New(),
		greenhouse.New(),
		lever.New(),
		smartrecruiters.New(),
		workday.New(),
	}
	if len(enabled) == 0 {
		return NewRegistry(all...)
	}
	want := map[string]bool{}
	for _, n := range enabled {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []types.Adapter
	for _, a := range all {
		if want[strings.ToLower(a.Name())] {
			out = append(out, a)
		}
	}
	return NewRegistry(out...)
}

func (r *Registry) For(u *url.URL) (types.Adapter, bool) {
	for _, a := range r.adapters {
		if a.Matches(u) {
			return a, true
		}
	}
	return nil, false
}

func (r *Registry) ForURL(raw string) (types.Adapter, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	return r.For(u)
}

func (r *Registry) ByName(name string) (types.Adapter, bool) {
	for _, a := range r.adapters {
		if strings.EqualFold(a.Name(), name) {
			return a, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Name())
	}
	return out
}
