package coordinator

import (
	"context"
	"fmt"
	"sync"
)

// LatestFunc fetches the most recent value for one series. It matches the
// formula layer's Latest operation.
type LatestFunc func(ctx context.Context, seriesID any) (float64, error)

// Result represents the outcome of one series fetch.
type Result struct {
	// SeriesID identifies the series this result belongs to
	SeriesID string

	// Value is the most recent observation's value
	Value float64

	// Error contains any error that occurred during the fetch.
	// If Error is not nil, Value should be considered invalid.
	Error error
}

// Coordinator fans a batch of series out over concurrent fetches and
// aggregates results. Each fetch performs its own network round-trip and
// retry sequence; the coordinator adds no caching or deduplication.
type Coordinator struct {
	latest    LatestFunc
	seriesIDs []string
}

// New creates a Coordinator for the given series
func New(latest LatestFunc, seriesIDs []string) *Coordinator {
	return &Coordinator{
		latest:    latest,
		seriesIDs: seriesIDs,
	}
}

// Run fetches all series concurrently and prints results to stdout as they
// arrive, in the format:
//   - Success: "SERIES_ID: VALUE"
//   - Error: "SERIES_ID: ERROR - error message"
func (c *Coordinator) Run(ctx context.Context) error {
	if len(c.seriesIDs) == 0 {
		return fmt.Errorf("no series configured")
	}

	for result := range c.fanOut(ctx) {
		if result.Error != nil {
			fmt.Printf("%s: ERROR - %v\n", result.SeriesID, result.Error)
		} else {
			fmt.Printf("%s: %.4f\n", result.SeriesID, result.Value)
		}
	}

	return nil
}

// Collect fetches all series concurrently and returns every result once
// all fetches finish. Order follows completion, not input.
func (c *Coordinator) Collect(ctx context.Context) []Result {
	results := make([]Result, 0, len(c.seriesIDs))
	for result := range c.fanOut(ctx) {
		results = append(results, result)
	}
	return results
}

func (c *Coordinator) fanOut(ctx context.Context) <-chan Result {
	resultChan := make(chan Result, len(c.seriesIDs))

	var wg sync.WaitGroup
	for _, id := range c.seriesIDs {
		wg.Add(1)
		go func(seriesID string) {
			defer wg.Done()

			value, err := c.latest(ctx, seriesID)
			resultChan <- Result{
				SeriesID: seriesID,
				Value:    value,
				Error:    err,
			}
		}(id)
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan
}
