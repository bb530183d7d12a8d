package adserve

// StatusSuccess is the only status the ad network uses for a filled zone.
const StatusSuccess = "SUCCESS"

// StatusFetchError marks a round-trip that never produced a parsable payload.
const StatusFetchError = "ERROR_IN_FETCH"

// Request identifies one ad retrieval.
type Request struct {
	ZoneID string
	// ReferrerURL must already be percent-encoded; see EncodeReferrer.
	ReferrerURL string
	Keyword     string
}

// Response is the ad network payload exactly as decoded.
type Response struct {
	Status     string      `json:"status"`
	Placements *Placements `json:"placements,omitempty"`
	Message    any         `json:"message,omitempty"`
}

// Placements holds the single placement a zone request returns.
type Placements struct {
	Placement1 *Placement `json:"placement_1,omitempty"`
}

// Placement is the served creative plus its two beacons.
type Placement struct {
	EligibleURL string `json:"eligible_url"`
	ViewableURL string `json:"viewable_url"`
	Body        string `json:"body"`
}
