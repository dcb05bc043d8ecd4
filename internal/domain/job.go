package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 500
	MaxCompanyLen     = 500
	MaxDescriptionLen = 50000

	// MinDescriptionLen is the shortest description worth sending to the backend.
	MinDescriptionLen = 50
)

// JobRecord is a single posting as it travels to the tracker. Field names are
// PascalCase on the wire.
type JobRecord struct {
	Title       string    `json:"Title"`
	Company     string    `json:"Company"`
	Location    string    `json:"Location"`
	Description string    `json:"Description"`
	Salary      string    `json:"Salary"`
	URL         string    `json:"Url"`
	DatePosted  string    `json:"DatePosted"`
	IsRemote    bool      `json:"IsRemote"`
	Skills      []string  `json:"Skills"`
	Source      string    `json:"Source"`
	Contacts    []Contact `json:"Contacts,omitempty"`
}

type Contact struct {
	Name  string `json:"Name"`
	Role  string `json:"Role,omitempty"`
	Email string `json:"Email,omitempty"`
	URL   string `json:"Url,omitempty"`
}

var (
	ErrEmptyTitle     = errors.New("title is required")
	ErrTitleTooLong   = fmt.Errorf("title exceeds %d chars", MaxTitleLen)
	ErrCompanyTooLong = fmt.Errorf("company exceeds %d chars", MaxCompanyLen)
	ErrDescTooLong    = fmt.Errorf("description exceeds %d chars", MaxDescriptionLen)
	ErrInvalidJobURL  = errors.New("url must be empty or an absolute http(s) url")
)

// Validate mirrors the tracker's create constraints.
func (j JobRecord) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(j.Title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(j.Company) > MaxCompanyLen {
		return ErrCompanyTooLong
	}
	if utf8.RuneCountInString(j.Description) > MaxDescriptionLen {
		return ErrDescTooLong
	}
	if j.URL != "" && !IsAbsoluteURL(j.URL) {
		return ErrInvalidJobURL
	}
	return nil
}

// HasUsableDescription reports whether the description is long enough to merge.
func HasUsableDescription(desc string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(desc)) >= MinDescriptionLen
}

func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
