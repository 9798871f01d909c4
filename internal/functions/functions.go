// Package functions implements the formula-layer entry points: the five
// named operations a spreadsheet host binds to custom functions. Each
// operation validates its inputs, reads the stored credential, performs
// one series fetch and shapes the result.
package functions

import (
	"context"
	"errors"
	"fmt"

	"seriesbridge/internal/datasetiq"
	"seriesbridge/internal/normalize"
	"seriesbridge/internal/shape"
	"seriesbridge/internal/storage"
)

// ErrNotConnected is returned when the host reports that credential
// storage is unsupported. Callers render its message as a plain cell
// value rather than an error.
var ErrNotConnected = errors.New(datasetiq.ConnectMessage)

// APIError carries a classified, user-facing message from a failed fetch.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string { return e.Message }

// Funcs binds the formula operations to a client and a credential store.
type Funcs struct {
	client *datasetiq.Client
	store  storage.KeyStore
}

// New creates the formula function set.
func New(client *datasetiq.Client, store storage.KeyStore) *Funcs {
	return &Funcs{client: client, store: store}
}

// Table fetches a series and renders it as grid rows, most recent first
// under the fixed header. Frequency and start date are optional.
func (f *Funcs) Table(ctx context.Context, seriesID, frequency, startDate any) ([][]any, error) {
	series, err := requireSeriesID(seriesID)
	if err != nil {
		return nil, err
	}
	key, err := f.apiKey()
	if err != nil {
		return nil, err
	}
	freq, err := normalize.OptionalString(frequency)
	if err != nil {
		return nil, err
	}
	start, err := normalize.DateInput(startDate)
	if err != nil {
		return nil, err
	}

	res := f.client.Fetch(ctx, datasetiq.Request{
		SeriesID: series,
		Mode:     datasetiq.ModeTable,
		APIKey:   key,
		Freq:     freq,
		Start:    start,
	})
	if res.Error != "" {
		return nil, &APIError{Message: res.Error, Status: res.Status}
	}

	var obs []datasetiq.Observation
	if res.Response != nil {
		obs = res.Response.Data
	}
	rows := shape.Table(obs)

	// Free-tier responses that hit the observation cap were likely
	// truncated; warn below the data. Never shown with a credential.
	if key == "" && len(obs) >= datasetiq.FreeTierLimit {
		rows = shape.AppendTruncationNotice(rows)
	}
	return rows, nil
}

// Latest returns the most recent observation's value.
func (f *Funcs) Latest(ctx context.Context, seriesID any) (float64, error) {
	return f.scalar(ctx, seriesID, datasetiq.ModeLatest, "")
}

// ValueOnDate returns the series value on the given date.
func (f *Funcs) ValueOnDate(ctx context.Context, seriesID, date any) (float64, error) {
	normalized, err := normalize.DateInput(date)
	if err != nil {
		return 0, err
	}
	if normalized == "" {
		return 0, errors.New("date is required.")
	}
	return f.scalar(ctx, seriesID, datasetiq.ModeValue, normalized)
}

// YoY returns the upstream-computed year-over-year change.
func (f *Funcs) YoY(ctx context.Context, seriesID any) (float64, error) {
	return f.scalar(ctx, seriesID, datasetiq.ModeYoY, "")
}

// MetaField returns one field from the series metadata record.
func (f *Funcs) MetaField(ctx context.Context, seriesID, field any) (string, error) {
	series, err := requireSeriesID(seriesID)
	if err != nil {
		return "", err
	}
	name, err := normalize.OptionalString(field)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("field is required.")
	}
	key, err := f.apiKey()
	if err != nil {
		return "", err
	}

	res := f.client.Fetch(ctx, datasetiq.Request{
		SeriesID: series,
		Mode:     datasetiq.ModeMeta,
		APIKey:   key,
	})
	if res.Error != "" {
		return "", &APIError{Message: res.Error, Status: res.Status}
	}

	var meta map[string]string
	if res.Response != nil {
		meta = res.Response.Meta
	}
	value, ok := meta[name]
	if !ok {
		return "", fmt.Errorf("Metadata %q not found.", name)
	}
	return value, nil
}

func (f *Funcs) scalar(ctx context.Context, seriesID any, mode datasetiq.Mode, date string) (float64, error) {
	series, err := requireSeriesID(seriesID)
	if err != nil {
		return 0, err
	}
	key, err := f.apiKey()
	if err != nil {
		return 0, err
	}

	res := f.client.Fetch(ctx, datasetiq.Request{
		SeriesID: series,
		Mode:     mode,
		APIKey:   key,
		Date:     date,
	})
	if res.Error != "" {
		return 0, &APIError{Message: res.Error, Status: res.Status}
	}
	if res.Response == nil || res.Response.Scalar == nil {
		return 0, &APIError{
			Message: datasetiq.Classify(datasetiq.CodeNone, res.Status, "Value not available."),
			Status:  res.Status,
		}
	}
	return *res.Response.Scalar, nil
}

func (f *Funcs) apiKey() (string, error) {
	key, supported := f.store.APIKey()
	if !supported {
		return "", ErrNotConnected
	}
	return key, nil
}

func requireSeriesID(v any) (string, error) {
	series, err := normalize.OptionalString(v)
	if err != nil {
		return "", err
	}
	if series == "" {
		return "", errors.New("series_id is required.")
	}
	return series, nil
}
