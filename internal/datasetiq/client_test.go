package datasetiq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const seriesBody = `{
	"seriesId": "GDP",
	"data": [
		{"date": "2023-01-01", "value": 26000.5},
		{"date": "2023-04-01", "value": 26500.25},
		{"date": "2023-07-01", "value": 27000.75}
	]
}`

func TestFetch_TableSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		if r.URL.Path != "/api/public/series/GDP/data" {
			t.Errorf("path = %q, want /api/public/series/GDP/data", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want 100 for unauthenticated request", got)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want unset without a key", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(seriesBody))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if res.Response == nil {
		t.Fatal("Fetch() returned nil response")
	}
	if res.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", res.Status)
	}
	if res.Response.SeriesID != "GDP" {
		t.Errorf("SeriesID = %q, want GDP", res.Response.SeriesID)
	}
	if len(res.Response.Data) != 3 {
		t.Fatalf("len(Data) = %d, want 3", len(res.Response.Data))
	}
	if res.Response.Data[0].Date != "2023-01-01" || res.Response.Data[0].Value != 26000.5 {
		t.Errorf("Data[0] = %+v, want upstream order preserved", res.Response.Data[0])
	}
	if res.Response.Scalar != nil {
		t.Error("table mode must not extract a scalar")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestFetch_AuthenticatedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret_key" {
			t.Errorf("Authorization = %q, want Bearer secret_key", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1000" {
			t.Errorf("limit = %q, want 1000 for authenticated request", got)
		}
		if got := r.URL.Query().Get("start"); got != "2020-01-01" {
			t.Errorf("start = %q, want 2020-01-01", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesBody))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{
		SeriesID: "GDP",
		Mode:     ModeTable,
		APIKey:   "secret_key",
		Start:    "2020-01-01",
	})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
}

func TestFetch_LatestScalarIsLastEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesBody))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeLatest})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if res.Response.Scalar == nil {
		t.Fatal("latest mode returned no scalar")
	}
	// Upstream order is chronological ascending, so latest is last.
	if *res.Response.Scalar != 27000.75 {
		t.Errorf("Scalar = %v, want 27000.75", *res.Response.Scalar)
	}
}

func TestFetch_ValueScalarIsFirstEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("end"); got != "2023-01-01" {
			t.Errorf("end = %q, want 2023-01-01", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesBody))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeValue, Date: "2023-01-01"})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if res.Response.Scalar == nil {
		t.Fatal("value mode returned no scalar")
	}
	if *res.Response.Scalar != 26000.5 {
		t.Errorf("Scalar = %v, want 26000.5", *res.Response.Scalar)
	}
}

func TestFetch_YoYExtractsNoScalar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesBody))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeYoY})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if res.Response.Scalar != nil {
		t.Error("yoy mode must not extract a scalar from the observation list")
	}
}

func TestFetch_MetaMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/series/GDP" {
			t.Errorf("path = %q, want /api/public/series/GDP", r.URL.Path)
		}
		if len(r.URL.Query()) != 0 {
			t.Errorf("metadata request carried query params: %v", r.URL.Query())
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"dataset": {
				"title": "Gross Domestic Product",
				"units": "Billions of Dollars",
				"popularity": 98
			}
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeMeta})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if got := res.Response.Meta["title"]; got != "Gross Domestic Product" {
		t.Errorf("Meta[title] = %q, want Gross Domestic Product", got)
	}
	// Non-string metadata values are rendered as strings.
	if got := res.Response.Meta["popularity"]; got != "98" {
		t.Errorf("Meta[popularity] = %q, want 98", got)
	}
}

func TestFetch_EchoPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"seriesId": "NEWSERIES",
			"status": "ingestion_pending",
			"message": "Dataset ingestion queued. Full data will be available shortly."
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "NEWSERIES", Mode: ModeLatest})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if res.Response.Status != "ingestion_pending" {
		t.Errorf("Status = %q, want ingestion_pending", res.Response.Status)
	}
	if res.Response.Message == "" {
		t.Error("Message not passed through")
	}
	if res.Response.Scalar != nil {
		t.Error("echo body carried no scalar; none expected")
	}
}

func TestFetch_PairShapedObservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"seriesId": "UNRATE", "data": [["2024-01-01", 3.7], ["2024-02-01", 3.9]]}`))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "UNRATE", Mode: ModeLatest})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error: %q", res.Error)
	}
	if len(res.Response.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(res.Response.Data))
	}
	if res.Response.Data[1].Date != "2024-02-01" || res.Response.Data[1].Value != 3.9 {
		t.Errorf("Data[1] = %+v, want {2024-02-01 3.9}", res.Response.Data[1])
	}
	if res.Response.Scalar == nil || *res.Response.Scalar != 3.9 {
		t.Errorf("Scalar = %v, want 3.9", res.Response.Scalar)
	}
}

func TestFetch_RetriesOnceThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(seriesBody))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Error != "" {
		t.Fatalf("Fetch() returned unexpected error after retry: %q", res.Error)
	}
	if res.Response == nil {
		t.Fatal("Fetch() returned nil response after successful retry")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want exactly 2", got)
	}
}

func TestFetch_RetryExhaustion(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Response != nil {
		t.Fatal("Fetch() returned a response, want classified error")
	}
	if res.Error != serverUnavailableMessage {
		t.Errorf("Error = %q, want %q", res.Error, serverUnavailableMessage)
	}
	if res.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", res.Status)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want exactly 2 (never 3)", got)
	}
}

func TestFetch_RateLimitRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Error != rateLimitedMessage {
		t.Errorf("Error = %q, want %q", res.Error, rateLimitedMessage)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want exactly 2", got)
	}
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "INVALID_KEY", "message": "key not recognized"}}`))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable, APIKey: "bad"})

	if res.Error != invalidKeyMessage {
		t.Errorf("Error = %q, want %q", res.Error, invalidKeyMessage)
	}
	if res.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", res.Status)
	}
	if res.Headers == nil {
		t.Error("Headers not returned with classified error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1 (client errors are terminal)", got)
	}
}

func TestFetch_EmbeddedErrorOnSuccessStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error": {"code": "FREE_LIMIT", "message": "limit hit"}}`))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Error != freeLimitMessage {
		t.Errorf("Error = %q, want %q", res.Error, freeLimitMessage)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1 (embedded errors are terminal)", got)
	}
}

func TestFetch_FallbackMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "SERIES_MISSING", "message": "Series GDP not found"}}`))
	}))
	defer server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Error != "Series GDP not found" {
		t.Errorf("Error = %q, want upstream fallback message", res.Error)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL)
	res := client.Fetch(context.Background(), Request{SeriesID: "GDP", Mode: ModeTable})

	if res.Response != nil {
		t.Fatal("Fetch() returned a response from a closed server")
	}
	if res.Error == "" {
		t.Error("Fetch() returned empty error for transport failure")
	}
}

func TestNew_DefaultBaseURL(t *testing.T) {
	client := New("")
	if client == nil {
		t.Fatal("New() returned nil")
	}
}
