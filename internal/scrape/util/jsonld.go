package util

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// JobPosting is the subset of schema.org JobPosting the harvester reads.
type JobPosting struct {
	Title        string
	Company      string
	Description  string
	Location     string
	DatePosted   string
	ValidThrough *time.Time
	Remote       bool
	Salary       string
}

type ldPosting struct {
	Type               any               `json:"@type"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	DatePosted         string            `json:"datePosted"`
	ValidThrough       string            `json:"validThrough"`
	JobLocationType    string            `json:"jobLocationType"`
	HiringOrganization json.RawMessage   `json:"hiringOrganization"`
	JobLocation        json.RawMessage   `json:"jobLocation"`
	BaseSalary         json.RawMessage   `json:"baseSalary"`
	Graph              []json.RawMessage `json:"@graph"`
}

// FindJobPosting scans ld+json blocks for a JobPosting, including inside
// arrays and @graph containers.
func FindJobPosting(doc *goquery.Selection) (JobPosting, bool) {
	var out JobPosting
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		if p, ok := decodeLD([]byte(raw), 0); ok {
			out, found = p, true
			return false
		}
		return true
	})
	return out, found
}

func decodeLD(b []byte, depth int) (JobPosting, bool) {
	if depth > 3 {
		return JobPosting{}, false
	}
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) == 0 {
		return JobPosting{}, false
	}
	if b[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return JobPosting{}, false
		}
		for _, item := range arr {
			if p, ok := decodeLD(item, depth+1); ok {
				return p, true
			}
		}
		return JobPosting{}, false
	}

	var ld ldPosting
	if err := json.Unmarshal(b, &ld); err != nil {
		return JobPosting{}, false
	}
	for _, g := range ld.Graph {
		if p, ok := decodeLD(g, depth+1); ok {
			return p, true
		}
	}
	if !isJobPostingType(ld.Type) {
		return JobPosting{}, false
	}

	p := JobPosting{
		Title:       CleanText(ld.Title),
		Description: CleanBlock(StripTags(ld.Description)),
		DatePosted:  strings.TrimSpace(ld.DatePosted),
		Remote:      strings.EqualFold(strings.TrimSpace(ld.JobLocationType), "TELECOMMUTE"),
		Company:     orgName(ld.HiringOrganization),
		Location:    placeName(ld.JobLocation),
		Salary:      salaryText(ld.BaseSalary),
	}
	if t, ok := ParseLooseTime(ld.ValidThrough); ok {
		p.ValidThrough = &t
	}
	return p, true
}

func isJobPostingType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "JobPosting"
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

func orgName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return CleanText(s)
	}
	var org struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &org) == nil {
		return CleanText(org.Name)
	}
	return ""
}

type ldPlace struct {
	Address struct {
		Locality string `json:"addressLocality"`
		Region   string `json:"addressRegion"`
		Country  any    `json:"addressCountry"`
	} `json:"address"`
}

func placeName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var places []ldPlace
	if raw[0] == '[' {
		if json.Unmarshal(raw, &places) != nil {
			return ""
		}
	} else {
		var one ldPlace
		if json.Unmarshal(raw, &one) != nil {
			return ""
		}
		places = []ldPlace{one}
	}
	if len(places) == 0 {
		return ""
	}
	a := places[0].Address
	parts := []string{a.Locality, a.Region}
	if c, ok := a.Country.(string); ok {
		parts = append(parts, c)
	}
	return NormalizeLocation(strings.Join(parts, ","))
}

func salaryText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s struct {
		Currency string `json:"currency"`
		Value    struct {
			MinValue float64 `json:"minValue"`
			MaxValue float64 `json:"maxValue"`
			Value    float64 `json:"value"`
			UnitText string  `json:"unitText"`
		} `json:"value"`
	}
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	v := s.Value
	var amount string
	switch {
	case v.MinValue > 0 && v.MaxValue > 0:
		amount = formatAmount(v.MinValue) + "-" + formatAmount(v.MaxValue)
	case v.Value > 0:
		amount = formatAmount(v.Value)
	default:
		return ""
	}
	out := strings.TrimSpace(s.Currency + " " + amount)
	if v.UnitText != "" {
		out += " / " + strings.ToLower(v.UnitText)
	}
	return out
}

func formatAmount(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// ParseLooseTime accepts the date shapes job boards actually emit.
func ParseLooseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// StripTags drops markup from an HTML fragment, keeping block breaks.
func StripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + fragment + "</div>"))
	if err != nil {
		return fragment
	}
	return BlockText(doc.Find("body"))
}
