package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	StatusActive      = "active"
	StatusUnavailable = "unavailable"
)

// TrackerSchema is the development tracker's job table.
var TrackerSchema = []SchemaStep{
	{Version: 1, Stmts: []string{
		`CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  url_key TEXT NOT NULL DEFAULT '',
  date_posted TEXT NOT NULL DEFAULT '',
  is_remote INTEGER NOT NULL DEFAULT 0,
  skills TEXT NOT NULL DEFAULT '[]',
  source TEXT NOT NULL DEFAULT '',
  contacts TEXT NOT NULL DEFAULT '[]',
  status TEXT NOT NULL DEFAULT 'active',
  unavailable_reason TEXT NOT NULL DEFAULT '',
  last_checked_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_url_key ON jobs(url_key) WHERE url_key != '';`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_source_status ON jobs(source, status);`,
	}},
}

type Job struct {
	ID                int64    `json:"Id"`
	Title             string   `json:"Title"`
	Company           string   `json:"Company"`
	Location          string   `json:"Location"`
	Description       string   `json:"Description,omitempty"`
	Salary            string   `json:"Salary,omitempty"`
	URL               string   `json:"Url"`
	DatePosted        string   `json:"DatePosted,omitempty"`
	IsRemote          bool     `json:"IsRemote"`
	Skills            []string `json:"Skills"`
	Source            string   `json:"Source"`
	Status            string   `json:"Status"`
	UnavailableReason string   `json:"UnavailableReason,omitempty"`
	LastCheckedAt     string   `json:"LastCheckedAt,omitempty"`
	CreatedAt         string   `json:"CreatedAt"`
}

type JobInsert struct {
	Title        string
	Company      string
	Location     string
	Description  string
	Salary       string
	URL          string
	URLKey       string
	DatePosted   string
	IsRemote     bool
	Skills       []string
	Source       string
	ContactsJSON string
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// InsertJobIgnore creates the job unless one with the same url_key exists.
// Jobs without a URL are always inserted.
func InsertJobIgnore(ctx context.Context, db *sql.DB, j JobInsert) (id int64, added bool, err error) {
	skills, _ := json.Marshal(nonNil(j.Skills))
	contacts := j.ContactsJSON
	if contacts == "" {
		contacts = "[]"
	}
	ts := now()

	res, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs (title, company, location, description, salary, url, url_key, date_posted, is_remote, skills, source, contacts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		j.Title, j.Company, j.Location, j.Description, j.Salary, j.URL, j.URLKey, j.DatePosted,
		boolInt(j.IsRemote), string(skills), j.Source, contacts, ts, ts,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert job: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		id, _ = res.LastInsertId()
		return id, true, nil
	}

	err = db.QueryRowContext(ctx, `SELECT id FROM jobs WHERE url_key = ? LIMIT 1;`, j.URLKey).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup duplicate: %w", err)
	}
	return id, false, nil
}

// UpdateDescription replaces the description of the job with urlKey. A
// company is filled in only when the stored one is empty.
func UpdateDescription(ctx context.Context, db *sql.DB, urlKey, description, company string) (bool, error) {
	res, err := db.ExecContext(ctx, `
UPDATE jobs SET
  description = ?,
  company = CASE WHEN company = '' AND ? != '' THEN ? ELSE company END,
  updated_at = ?
WHERE url_key = ? AND url_key != '';`,
		description, company, company, now(), urlKey)
	if err != nil {
		return false, fmt.Errorf("update description: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListNeedingDescriptions returns active jobs whose description is missing
// or shorter than minLen, oldest first.
func ListNeedingDescriptions(ctx context.Context, db *sql.DB, minLen, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 500
	}
	return queryJobs(ctx, db, `
WHERE status = 'active' AND url != '' AND length(description) < ?
ORDER BY id ASC
LIMIT ?;`, minLen, limit)
}

// ListNeedingAvailabilityCheck returns active jobs from source (all sources
// when empty) not checked since cutoff.
func ListNeedingAvailabilityCheck(ctx context.Context, db *sql.DB, source string, cutoff time.Time, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 500
	}
	return queryJobs(ctx, db, `
WHERE status = 'active' AND url != ''
  AND (? = '' OR source = ? COLLATE NOCASE)
  AND (last_checked_at IS NULL OR last_checked_at < ?)
ORDER BY COALESCE(last_checked_at, '') ASC, id ASC
LIMIT ?;`, source, source, cutoff.UTC().Format(time.RFC3339), limit)
}

var ErrJobNotFound = errors.New("job not found")

func MarkUnavailable(ctx context.Context, db *sql.DB, id int64, reason string) error {
	return execOne(ctx, db, `
UPDATE jobs SET status = 'unavailable', unavailable_reason = ?, last_checked_at = ?, updated_at = ?
WHERE id = ?;`, reason, now(), now(), id)
}

func MarkUnavailableByURL(ctx context.Context, db *sql.DB, urlKey, reason string) error {
	return execOne(ctx, db, `
UPDATE jobs SET status = 'unavailable', unavailable_reason = ?, last_checked_at = ?, updated_at = ?
WHERE url_key = ? AND url_key != '';`, reason, now(), now(), urlKey)
}

func MarkChecked(ctx context.Context, db *sql.DB, id int64) error {
	return execOne(ctx, db, `UPDATE jobs SET last_checked_at = ?, updated_at = ? WHERE id = ?;`, now(), now(), id)
}

// ResetChecks makes every active job from source due for a check again.
func ResetChecks(ctx context.Context, db *sql.DB, source string) (int64, error) {
	res, err := db.ExecContext(ctx, `
UPDATE jobs SET last_checked_at = NULL
WHERE status = 'active' AND (? = '' OR source = ? COLLATE NOCASE);`, source, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ListJobsOpts struct {
	Sort   string // date | company | title
	Status string
	Limit  int
}

func ListJobs(ctx context.Context, db *sql.DB, opts ListJobsOpts) ([]Job, error) {
	// whitelist sort columns
	order := map[string]string{
		"date":    "created_at DESC",
		"company": "company ASC",
		"title":   "title ASC",
	}[opts.Sort]
	if order == "" {
		order = "created_at DESC"
	}
	if opts.Limit <= 0 || opts.Limit > 5000 {
		opts.Limit = 500
	}
	return queryJobs(ctx, db, fmt.Sprintf(`
WHERE (? = '' OR status = ?)
ORDER BY %s
LIMIT ?;`, order), opts.Status, opts.Status, opts.Limit)
}

func GetJob(ctx context.Context, db *sql.DB, id int64) (Job, error) {
	jobs, err := queryJobs(ctx, db, `WHERE id = ? LIMIT 1;`, id)
	if err != nil {
		return Job{}, err
	}
	if len(jobs) == 0 {
		return Job{}, ErrJobNotFound
	}
	return jobs[0], nil
}

// CleanupOldJobs drops unavailable jobs last touched over three months ago.
func CleanupOldJobs(ctx context.Context, db *sql.DB) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, -3, 0).Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE status = 'unavailable' AND updated_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func queryJobs(ctx context.Context, db *sql.DB, tail string, args ...any) ([]Job, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, title, company, location, description, salary, url, date_posted, is_remote, skills, source, status, unavailable_reason, COALESCE(last_checked_at, ''), created_at
FROM jobs
`+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var remote int
		var skills string
		if err := rows.Scan(
			&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.Salary, &j.URL,
			&j.DatePosted, &remote, &skills, &j.Source, &j.Status, &j.UnavailableReason,
			&j.LastCheckedAt, &j.CreatedAt,
		); err != nil {
			return nil, err
		}
		j.IsRemote = remote != 0
		_ = json.Unmarshal([]byte(skills), &j.Skills)
		out = append(out, j)
	}
	return out, rows.Err()
}

func execOne(ctx context.Context, db *sql.DB, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
