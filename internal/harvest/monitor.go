package harvest

import (
	"log"

	"jobharvest-engine/internal/domain"
)

// MonitorTick is one pass of the passive monitor. It does nothing while a
// workflow is persisted for the session.
func (ep *Episode) MonitorTick() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.ctx.Err() != nil {
		return
	}
	ws, err := ep.repo.Active(ep.ctx)
	if err != nil || ws != nil {
		return
	}
	ep.monitorLocked()
}

// Signal asks for an early monitor tick (scroll, tab became visible).
func (ep *Episode) Signal() {
	select {
	case ep.kick <- struct{}{}:
	default:
	}
}

func (ep *Episode) monitorLocked() {
	page, err := ep.snapshot()
	if err != nil {
		return
	}
	a, ok := ep.eng.sites.For(page.URL)
	if !ok {
		return
	}

	listings := a.ScanListing(page)
	d, hasDetail := a.ExtractDetail(page)
	hasDetail = hasDetail && domain.HasUsableDescription(d.Description)

	var fresh []domain.JobRecord
	for _, job := range listings {
		if !ep.sub.Seen(job.URL) {
			fresh = append(fresh, job)
		}
	}

	attached := hasDetail && attachDetail(fresh, d)
	for _, job := range fresh {
		ep.enrich(&job)
		ep.sub.SubmitAsync(job)
	}
	if hasDetail && !attached && !ep.sub.Described(d.URL) {
		ep.sub.UpdateDescriptionAsync(d.URL, d.Description, d.Company)
	}

	if len(fresh) > 0 {
		log.Printf("[monitor] tick session=%s site=%s listings=%d new=%d detail=%v", ep.session, a.Name(), len(listings), len(fresh), hasDetail)
	}
}
