package submit

import (
	"context"
	"log"
	"time"

	"jobharvest-engine/internal/domain"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
)

// SubmitResult is the outcome of one Submit. At most one field is true.
type SubmitResult struct {
	Added   bool
	Merged  bool
	Skipped bool
}

// Episode is the submission side of one page load. Every call swallows
// failures and reports a negative result; none of them return errors.
//
// Calls run on a context detached from the page's cancellation so a request
// in flight when the page navigates away still completes.
type Episode struct {
	c    *Client
	ctx  context.Context
	sent mapset.Set[string]
	// described tracks detail URLs whose description was already pushed.
	described mapset.Set[string]
	g         errgroup.Group
}

func (c *Client) Episode(ctx context.Context) *Episode {
	return &Episode{
		c:         c,
		ctx:       context.WithoutCancel(ctx),
		sent:      mapset.NewSet[string](),
		described: mapset.NewSet[string](),
	}
}

func (e *Episode) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(e.ctx, e.c.timeout)
}

// Seen reports whether url was already submitted this episode.
func (e *Episode) Seen(url string) bool {
	return url != "" && e.sent.Contains(url)
}

// Submit creates job on the tracker. A duplicate that carries a usable
// description is merged into the existing record instead.
func (e *Episode) Submit(job domain.JobRecord) SubmitResult {
	key := job.URL
	if key != "" && !e.sent.Add(key) {
		return SubmitResult{Skipped: true}
	}
	if err := job.Validate(); err != nil {
		log.Printf("[submit] reject url=%q title=%q err=%v", job.URL, job.Title, err)
		return SubmitResult{}
	}

	ctx, cancel := e.callCtx()
	defer cancel()

	start := time.Now()
	res, err := e.c.CreateJob(ctx, job)
	if err != nil {
		// Free the key so a later scan in this episode can try again.
		if key != "" {
			e.sent.Remove(key)
		}
		log.Printf("[submit] create error url=%q err=%v", job.URL, err)
		return SubmitResult{}
	}
	if res.Added {
		log.Printf("[submit] added url=%q company=%q dur_ms=%d", job.URL, job.Company, time.Since(start).Milliseconds())
		if domain.HasUsableDescription(job.Description) && key != "" {
			e.described.Add(key)
		}
		return SubmitResult{Added: true}
	}

	if key != "" && domain.HasUsableDescription(job.Description) {
		if e.UpdateDescription(key, job.Description, job.Company) {
			return SubmitResult{Merged: true}
		}
	}
	return SubmitResult{}
}

// SubmitAsync is fire-and-forget Submit; Flush waits for it.
func (e *Episode) SubmitAsync(job domain.JobRecord) {
	e.g.Go(func() error {
		e.Submit(job)
		return nil
	})
}

// UpdateDescription pushes a description for url. Repeats of the same url in
// one episode are dropped.
func (e *Episode) UpdateDescription(url, description, company string) bool {
	if url == "" || !domain.HasUsableDescription(description) {
		return false
	}
	ctx, cancel := e.callCtx()
	defer cancel()

	ok, err := e.c.UpdateDescription(ctx, DescriptionRequest{URL: url, Description: description, Company: company})
	if err != nil {
		log.Printf("[submit] description error url=%q err=%v", url, err)
		return false
	}
	e.described.Add(url)
	return ok
}

// UpdateDescriptionAsync sends the description once per url per episode
// without blocking; Flush waits for it.
func (e *Episode) UpdateDescriptionAsync(url, description, company string) {
	if url == "" || !domain.HasUsableDescription(description) || !e.described.Add(url) {
		return
	}
	e.g.Go(func() error {
		ctx, cancel := e.callCtx()
		defer cancel()
		if _, err := e.c.UpdateDescription(ctx, DescriptionRequest{URL: url, Description: description, Company: company}); err != nil {
			e.described.Remove(url)
			log.Printf("[submit] description error url=%q err=%v", url, err)
		}
		return nil
	})
}

// Described reports whether a description for url already went out.
func (e *Episode) Described(url string) bool {
	return e.described.Contains(url)
}

// MarkUnavailable marks the job by id, or by url when the id is unknown.
func (e *Episode) MarkUnavailable(entry domain.CheckEntry, reason string) bool {
	ctx, cancel := e.callCtx()
	defer cancel()

	var err error
	if entry.ID > 0 {
		err = e.c.MarkUnavailable(ctx, entry.ID, reason)
	} else {
		err = e.c.MarkUnavailableByURL(ctx, entry.URL, reason)
	}
	if err != nil {
		log.Printf("[submit] mark-unavailable error id=%d url=%q err=%v", entry.ID, entry.URL, err)
		return false
	}
	return true
}

// MarkChecked records a successful check. Entries without an id have
// nothing to mark.
func (e *Episode) MarkChecked(entry domain.CheckEntry) bool {
	if entry.ID <= 0 {
		return true
	}
	ctx, cancel := e.callCtx()
	defer cancel()

	if err := e.c.MarkChecked(ctx, entry.ID); err != nil {
		log.Printf("[submit] mark-checked error id=%d err=%v", entry.ID, err)
		return false
	}
	return true
}

// Flush blocks until every SubmitAsync call has finished.
func (e *Episode) Flush() {
	_ = e.g.Wait()
}
