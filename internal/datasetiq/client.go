// Package datasetiq implements the client for the DataSetIQ public API:
// series data and metadata fetches with bounded retry, search and browse,
// key verification and ingestion requests, plus the classification of
// upstream errors into user-facing messages.
package datasetiq

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cast"
	"resty.dev/v3"

	"seriesbridge/internal/ratelimit"
)

const (
	// DefaultBaseURL is the production DataSetIQ host
	DefaultBaseURL = "https://www.datasetiq.com"

	seriesPath     = "/api/public/series/"
	seriesDataPath = "/data"
	searchPath     = "/api/public/search"
	ingestPathFmt  = "/api/datasets/%s/fetch"

	// AuthLimit is the per-request observation cap for authenticated calls
	AuthLimit = 1000
	// FreeTierLimit is the observation cap without a credential; data
	// responses that hit it are likely truncated
	FreeTierLimit = 100

	maxAttempts = 2
)

// Client talks to the DataSetIQ public API.
// Each call is independent; the client holds no per-request state and is
// safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

// New creates a client for the given base URL. An empty baseURL selects
// the production host.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0) // the fetch loop owns retry policy

	return &Client{
		http:    client,
		limiter: ratelimit.GetLimiter(),
		log:     slog.Default(),
	}
}

// Fetch performs one series request and always returns a terminal result:
// exactly one of FetchResult.Response or FetchResult.Error is set, after at
// most two network attempts.
func (c *Client) Fetch(ctx context.Context, req Request) FetchResult {
	endpoint := seriesPath + url.PathEscape(req.SeriesID)
	isMeta := req.Mode == ModeMeta
	if !isMeta {
		endpoint += seriesDataPath
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, ratelimit.APISeriesData); err != nil {
			return FetchResult{Error: Classify(CodeNone, 0, err.Error())}
		}

		r := c.http.R().SetContext(ctx)
		if !isMeta {
			if req.Start != "" {
				r.SetQueryParam("start", req.Start)
			}
			if req.Date != "" {
				r.SetQueryParam("end", req.Date)
			}
			limit := FreeTierLimit
			if req.APIKey != "" {
				limit = AuthLimit
			}
			r.SetQueryParam("limit", strconv.Itoa(limit))
		}
		if req.APIKey != "" {
			r.SetHeader("Authorization", "Bearer "+req.APIKey)
		}

		var body seriesEnvelope
		resp, err := r.SetResult(&body).SetError(&body).Get(endpoint)
		if err != nil {
			// Transport-level failure: no response object at all.
			if attempt == 0 {
				c.log.Debug("retrying series fetch after transport error",
					"series_id", req.SeriesID,
					"attempt", attempt,
					"error", err.Error())
				c.sleep(ctx, retryDelay(nil, attempt))
				continue
			}
			msg := err.Error()
			if msg == "" {
				msg = "Unexpected error"
			}
			return FetchResult{Error: msg}
		}

		status := resp.StatusCode()
		if resp.IsSuccess() && body.Error == nil {
			return FetchResult{
				Response: transform(req.Mode, &body),
				Status:   status,
				Headers:  resp.Header(),
			}
		}

		retryable := status == 429 || status >= 500
		if retryable && attempt == 0 {
			delay := retryDelay(resp.Header(), attempt)
			c.log.Debug("retrying series fetch",
				"series_id", req.SeriesID,
				"attempt", attempt,
				"status", status,
				"delay", delay)
			c.sleep(ctx, delay)
			continue
		}

		code := CodeNone
		fallback := ""
		if body.Error != nil {
			code = ParseErrorCode(body.Error.Code)
			fallback = body.Error.Message
		}
		return FetchResult{
			Error:   Classify(code, status, fallback),
			Status:  status,
			Headers: resp.Header(),
		}
	}

	return FetchResult{Error: "Unable to reach DataSetIQ. Please try again."}
}

// transform converts a successful upstream body into the Response shape
// the facade consumes, so downstream code never re-inspects raw JSON.
func transform(mode Mode, body *seriesEnvelope) *Response {
	if mode == ModeMeta && body.Dataset != nil {
		return &Response{Meta: metaStrings(body.Dataset)}
	}

	if body.Data != nil {
		resp := &Response{
			SeriesID: body.SeriesID,
			Data:     body.Data,
			Status:   body.Status,
			Message:  body.Message,
		}
		// Upstream order is chronological ascending, so "latest" is the
		// last entry. In value mode the API has already filtered to the
		// requested date via the end parameter, so "first" is the match.
		switch mode {
		case ModeLatest:
			if n := len(body.Data); n > 0 {
				v := body.Data[n-1].Value
				resp.Scalar = &v
			}
		case ModeValue:
			if len(body.Data) > 0 {
				v := body.Data[0].Value
				resp.Scalar = &v
			}
		}
		return resp
	}

	// Neither a dataset nor an observation list: pass the echo through.
	return &Response{
		SeriesID: body.SeriesID,
		Scalar:   body.Scalar,
		Status:   body.Status,
		Message:  body.Message,
	}
}

// metaStrings renders a loosely-typed upstream dataset object as the
// string-to-string metadata mapping the facade exposes.
func metaStrings(dataset map[string]any) map[string]string {
	meta := make(map[string]string, len(dataset))
	for k, v := range dataset {
		meta[k] = cast.ToString(v)
	}
	return meta
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
