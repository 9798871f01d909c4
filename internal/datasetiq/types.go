package datasetiq

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Mode selects which shape of result a series fetch produces.
type Mode string

const (
	// ModeTable fetches the full observation list for tabular display
	ModeTable Mode = "table"
	// ModeLatest fetches the most recent observation's value
	ModeLatest Mode = "latest"
	// ModeValue fetches the value on a specific date
	ModeValue Mode = "value"
	// ModeYoY fetches the upstream-computed year-over-year change
	ModeYoY Mode = "yoy"
	// ModeMeta fetches the series metadata record
	ModeMeta Mode = "meta"
)

// Request describes a single series fetch.
// SeriesID must be non-empty before Fetch is called; Date is required
// when Mode is ModeValue. An empty APIKey means unauthenticated
// free-tier access, not an error.
type Request struct {
	SeriesID string
	Mode     Mode
	APIKey   string
	Freq     string
	Start    string
	Date     string
}

// Observation is a single (date, value) data point.
// Upstream returns observations in chronological ascending order.
type Observation struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// UnmarshalJSON accepts both upstream observation shapes: the object form
// {"date": "...", "value": n} and the pair form ["...", n].
func (o *Observation) UnmarshalJSON(data []byte) error {
	type plain Observation
	var obj plain
	if err := json.Unmarshal(data, &obj); err == nil {
		*o = Observation(obj)
		return nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("observation is neither object nor pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("observation pair has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &o.Date); err != nil {
		return fmt.Errorf("observation pair date: %w", err)
	}
	if err := json.Unmarshal(pair[1], &o.Value); err != nil {
		return fmt.Errorf("observation pair value: %w", err)
	}
	return nil
}

// Response is the transformed upstream body for a successful fetch.
// Exactly one family of fields is populated depending on what upstream
// returned: an observation list (Data, plus the echoed SeriesID and any
// ingestion Status/Message), a metadata mapping (Meta), or a bare echo
// (Status/Message/Scalar passed through unchanged).
type Response struct {
	SeriesID string
	Data     []Observation
	Meta     map[string]string
	Scalar   *float64
	Status   string
	Message  string
}

// FetchResult is the outcome of one Fetch call. Exactly one of Response
// or Error is set. Status carries the final HTTP status code and Headers
// the raw response headers for diagnostic use by the caller.
type FetchResult struct {
	Response *Response
	Error    string
	Status   int
	Headers  http.Header
}

// seriesEnvelope is the raw wire shape of a series endpoint body, for
// both success and error responses.
type seriesEnvelope struct {
	SeriesID string         `json:"seriesId"`
	Data     []Observation  `json:"data"`
	Dataset  map[string]any `json:"dataset"`
	Scalar   *float64       `json:"scalar"`
	Error    *apiErrorBody  `json:"error"`
	Message  string         `json:"message"`
	Status   string         `json:"status"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchResult is one entry returned by the search/browse endpoints.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Frequency string `json:"frequency"`
	Units     string `json:"units"`
	Source    string `json:"source"`
}
