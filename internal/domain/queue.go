package domain

// HarvestQueueEntry is the minimal projection needed to visit a job and show
// progress. Descriptions are never queued.
type HarvestQueueEntry struct {
	URL     string `json:"Url"`
	Title   string `json:"Title"`
	Company string `json:"Company,omitempty"`
	Source  string `json:"Source,omitempty"`
}

// CheckEntry is a job the tracker wants re-verified.
type CheckEntry struct {
	ID      int64  `json:"Id"`
	URL     string `json:"Url"`
	Title   string `json:"Title"`
	Company string `json:"Company,omitempty"`
	Source  string `json:"Source,omitempty"`
}
