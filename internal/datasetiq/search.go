package datasetiq

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"seriesbridge/internal/ratelimit"
)

// ErrInvalidKey is returned by CheckKey when the upstream rejects the
// credential outright.
var ErrInvalidKey = errors.New("invalid API key")

type searchEnvelope struct {
	Results []SearchResult `json:"results"`
}

type ingestEnvelope struct {
	Error        string `json:"error"`
	RequiresAuth bool   `json:"requiresAuth"`
	UpgradeToPro bool   `json:"upgradeToPro"`
	Remaining    int    `json:"remaining"`
	Limit        int    `json:"limit"`
}

// Search queries the series index. An empty query returns no results.
// Search calls are fire-and-forget: they are not retried, and a non-2xx
// response yields an empty result rather than an error.
func (c *Client) Search(ctx context.Context, apiKey, query, source string) ([]SearchResult, error) {
	if query == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, ratelimit.APISearch); err != nil {
		return nil, err
	}

	r := c.http.R().SetContext(ctx).SetQueryParam("q", query)
	if source != "" {
		r.SetQueryParam("source", source)
	}
	if apiKey != "" {
		r.SetHeader("Authorization", "Bearer "+apiKey)
	}

	var body searchEnvelope
	resp, err := r.SetResult(&body).Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if !resp.IsSuccess() {
		return nil, nil
	}
	return body.Results, nil
}

// BrowseBySource lists series for one data source, capped at 50 entries.
func (c *Client) BrowseBySource(ctx context.Context, apiKey, source string) ([]SearchResult, error) {
	if err := c.limiter.Wait(ctx, ratelimit.APISearch); err != nil {
		return nil, err
	}

	r := c.http.R().SetContext(ctx).
		SetQueryParam("source", source).
		SetQueryParam("limit", "50")
	if apiKey != "" {
		r.SetHeader("Authorization", "Bearer "+apiKey)
	}

	var body searchEnvelope
	resp, err := r.SetResult(&body).Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("browse source %q: %w", source, err)
	}
	if !resp.IsSuccess() {
		return nil, nil
	}
	return body.Results, nil
}

// CheckKey verifies a credential with a minimal search request.
// A nil return means the key was accepted.
func (c *Client) CheckKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return errors.New("no API key provided")
	}
	if err := c.limiter.Wait(ctx, ratelimit.APISearch); err != nil {
		return err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetQueryParam("q", "test").
		SetQueryParam("limit", "1").
		Get(searchPath)
	if err != nil {
		return fmt.Errorf("unable to verify API key: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return ErrInvalidKey
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("key check returned status %d", resp.StatusCode())
	}
	return nil
}

// RequestIngestion asks upstream to queue a full ingestion of the series
// dataset. The returned string is a user-facing status message; an error
// is returned only for transport failures.
func (c *Client) RequestIngestion(ctx context.Context, apiKey, seriesID string) (string, error) {
	if err := c.limiter.Wait(ctx, ratelimit.APIIngest); err != nil {
		return "", err
	}

	r := c.http.R().SetContext(ctx).SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		r.SetHeader("Authorization", "Bearer "+apiKey)
	}

	var body ingestEnvelope
	resp, err := r.SetResult(&body).SetError(&body).
		Post(fmt.Sprintf(ingestPathFmt, url.PathEscape(seriesID)))
	if err != nil {
		return "", fmt.Errorf("request ingestion for %q: %w", seriesID, err)
	}

	switch {
	case resp.StatusCode() == 401 || body.RequiresAuth:
		return "Authentication required. Visit datasetiq.com to sign up for full data access.", nil
	case resp.StatusCode() == 429 || body.UpgradeToPro:
		limit := body.Limit
		if limit == 0 {
			limit = FreeTierLimit
		}
		return fmt.Sprintf("Monthly limit reached (%d/%d). Upgrade to Pro for unlimited access.", body.Remaining, limit), nil
	case !resp.IsSuccess():
		if body.Error != "" {
			return body.Error, nil
		}
		return "Failed to queue ingestion", nil
	}
	return "Dataset ingestion started! Data will be available in 1-2 minutes.", nil
}
