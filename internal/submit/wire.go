package submit

// Wire shapes of the tracker HTTP contract. Job bodies use PascalCase keys;
// envelopes use lower-case keys.

type CreateResponse struct {
	Added   bool   `json:"added"`
	Message string `json:"message,omitempty"`
	ID      int64  `json:"id,omitempty"`
}

type DescriptionRequest struct {
	URL         string `json:"Url"`
	Description string `json:"Description"`
	Company     string `json:"Company,omitempty"`
}

type UpdateResponse struct {
	Updated bool `json:"updated"`
}

type ListResponse[T any] struct {
	Count int `json:"count"`
	Jobs  []T `json:"jobs"`
}

type MarkUnavailableRequest struct {
	Reason string `json:"reason"`
}

type MarkUnavailableByURLRequest struct {
	URL    string `json:"Url"`
	Reason string `json:"Reason"`
}

type CheckAvailabilityRequest struct {
	Source string `json:"source"`
}

type CheckAvailabilityResponse struct {
	Queued int64 `json:"queued"`
}
