package tracker

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/httpapi"
	"jobharvest-engine/internal/scrape/util"
	"jobharvest-engine/internal/store"
	"jobharvest-engine/internal/submit"
)

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func (s *Server) writeStoreErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrJobNotFound) {
		httpapi.WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	httpapi.WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var job domain.JobRecord
	if err := decode(r, &job); err != nil {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := job.Validate(); err != nil {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_job", err.Error())
		return
	}

	contacts := ""
	if len(job.Contacts) > 0 {
		b, _ := json.Marshal(job.Contacts)
		contacts = string(b)
	}
	urlKey := ""
	if job.URL != "" {
		urlKey = util.URLKey(job.URL)
	}
	id, added, err := store.InsertJobIgnore(r.Context(), s.db, store.JobInsert{
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		Description:  job.Description,
		Salary:       job.Salary,
		URL:          job.URL,
		URLKey:       urlKey,
		DatePosted:   job.DatePosted,
		IsRemote:     job.IsRemote,
		Skills:       job.Skills,
		Source:       job.Source,
		ContactsJSON: contacts,
	})
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}

	if !added {
		httpapi.WriteJSON(w, http.StatusOK, submit.CreateResponse{Added: false, Message: "duplicate", ID: id})
		return
	}
	s.publish(r, "job.created", map[string]any{"id": id, "source": job.Source})
	httpapi.WriteJSON(w, http.StatusCreated, submit.CreateResponse{Added: true, Message: "created", ID: id})
}

func (s *Server) updateDescription(w http.ResponseWriter, r *http.Request) {
	var req submit.DescriptionRequest
	if err := decode(r, &req); err != nil {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Description) == "" {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_request", "Url and Description are required")
		return
	}
	desc := util.Truncate(req.Description, domain.MaxDescriptionLen)
	ok, err := store.UpdateDescription(r.Context(), s.db, util.URLKey(req.URL), desc, strings.TrimSpace(req.Company))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, submit.UpdateResponse{Updated: ok})
}

func (s *Server) needingDescriptions(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListNeedingDescriptions(r.Context(), s.db, domain.MinDescriptionLen, queryInt(r, "limit", 200))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	out := make([]domain.HarvestQueueEntry, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, domain.HarvestQueueEntry{URL: j.URL, Title: j.Title, Company: j.Company, Source: j.Source})
	}
	httpapi.WriteJSON(w, http.StatusOK, submit.ListResponse[domain.HarvestQueueEntry]{Count: len(out), Jobs: out})
}

func (s *Server) needingCheck(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().Add(-s.opts.RecheckAfter)
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	jobs, err := store.ListNeedingAvailabilityCheck(r.Context(), s.db, source, cutoff, queryInt(r, "limit", 500))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	out := make([]domain.CheckEntry, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, domain.CheckEntry{ID: j.ID, URL: j.URL, Title: j.Title, Company: j.Company, Source: j.Source})
	}
	httpapi.WriteJSON(w, http.StatusOK, submit.ListResponse[domain.CheckEntry]{Count: len(out), Jobs: out})
}

func (s *Server) markUnavailable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var req submit.MarkUnavailableRequest
	if err := decode(r, &req); err != nil {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := store.MarkUnavailable(r.Context(), s.db, id, req.Reason); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.publish(r, "job.unavailable", map[string]any{"id": id, "reason": req.Reason})
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (s *Server) markUnavailableByURL(w http.ResponseWriter, r *http.Request) {
	var req submit.MarkUnavailableByURLRequest
	if err := decode(r, &req); err != nil {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_request", "Url is required")
		return
	}
	if err := store.MarkUnavailableByURL(r.Context(), s.db, util.URLKey(req.URL), req.Reason); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	s.publish(r, "job.unavailable", map[string]any{"url": req.URL, "reason": req.Reason})
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) markChecked(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := store.MarkChecked(r.Context(), s.db, id); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (s *Server) checkAvailability(w http.ResponseWriter, r *http.Request) {
	var req submit.CheckAvailabilityRequest
	if err := decode(r, &req); err != nil {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	n, err := store.ResetChecks(r.Context(), s.db, strings.TrimSpace(req.Source))
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, submit.CheckAvailabilityResponse{Queued: n})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := store.ListJobs(r.Context(), s.db, store.ListJobsOpts{
		Sort:   q.Get("sort"),
		Status: q.Get("status"),
		Limit:  queryInt(r, "limit", 500),
	})
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []store.Job{}
	}
	httpapi.WriteJSON(w, http.StatusOK, submit.ListResponse[store.Job]{Count: len(jobs), Jobs: jobs})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpapi.WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	j, err := store.GetJob(r.Context(), s.db, id)
	if err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, j)
}

// checkpoint flushes the WAL. Loopback callers only.
func (s *Server) checkpoint(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host != "127.0.0.1" && host != "::1" && host != "localhost" {
		httpapi.WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	if _, err := s.db.ExecContext(r.Context(), `PRAGMA wal_checkpoint(FULL);`); err != nil {
		s.writeStoreErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
