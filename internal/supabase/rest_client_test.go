package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"

	"qms-mcp/internal/entity"
)

func newTestClient(url string, pageSize int) *restClient {
	c := NewRestClient(Config{BaseURL: url + "/", APIKey: "secret", PageSize: pageSize, MaxRetries: 3}).(*restClient)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func rowsHandler(t *testing.T, n int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apikey"); got != "secret" {
			t.Errorf("Expected apikey header, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		var from, to int
		if _, err := fmt.Sscanf(r.Header.Get("Range"), "%d-%d", &from, &to); err != nil {
			t.Errorf("Malformed range header %q", r.Header.Get("Range"))
		}
		var page []map[string]any
		for i := from; i <= to && i < n; i++ {
			page = append(page, map[string]any{"id": strconv.Itoa(i), "amount": 1.5})
		}
		if page == nil {
			page = []map[string]any{}
		}
		w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", from, from+len(page)-1, n))
		_ = json.NewEncoder(w).Encode(page)
	}
}

func TestFetch_Pagination(t *testing.T) {
	tests := []struct {
		rows, pageSize, wantRequests int
	}{
		{rows: 0, pageSize: 10, wantRequests: 1},
		{rows: 7, pageSize: 10, wantRequests: 1},
		{rows: 10, pageSize: 10, wantRequests: 1},
		{rows: 25, pageSize: 10, wantRequests: 3},
	}

	for _, tt := range tests {
		var requests int32
		handler := rowsHandler(t, tt.rows)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			if r.URL.Path != "/rest/v1/non_conformities" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("select") != "*" {
				t.Errorf("Expected select=*, got %q", r.URL.Query().Get("select"))
			}
			handler(w, r)
		}))

		spec, _ := entity.Lookup(entity.NonConformities)
		rows, err := newTestClient(srv.URL, tt.pageSize).Fetch(context.Background(), spec)
		srv.Close()

		if err != nil {
			t.Fatalf("rows=%d: unexpected error: %v", tt.rows, err)
		}
		if len(rows) != tt.rows {
			t.Errorf("rows=%d: Expected %d rows, got %d", tt.rows, tt.rows, len(rows))
		}
		if int(requests) != tt.wantRequests {
			t.Errorf("rows=%d: Expected %d requests, got %d", tt.rows, tt.wantRequests, requests)
		}
		if tt.rows > 0 && rows[0].Float("amount") != 1.5 {
			t.Errorf("Expected decoded amount 1.5, got %v", rows[0].Get("amount"))
		}
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	handler := rowsHandler(t, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "upstream timeout", http.StatusBadGateway)
			return
		}
		handler(w, r)
	}))
	defer srv.Close()

	spec, _ := entity.Lookup(entity.QualityCosts)
	rows, err := newTestClient(srv.URL, 10).Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(rows))
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestFetch_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"message":"JWT expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	spec, _ := entity.Lookup(entity.Tasks)
	_, err := newTestClient(srv.URL, 10).Fetch(context.Background(), spec)

	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if serr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", serr.Code)
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("Expected authentication message, got %q", err.Error())
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}

func TestFetch_RateLimitGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	spec, _ := entity.Lookup(entity.Audits)
	_, err := newTestClient(srv.URL, 10).Fetch(context.Background(), spec)
	if err == nil {
		t.Fatal("Expected an error after exhausting retries")
	}
	// One attempt plus three retries.
	if calls != 4 {
		t.Errorf("Expected 4 calls, got %d", calls)
	}
}

func TestFetch_NestedKindHasNoTable(t *testing.T) {
	spec, _ := entity.Lookup(entity.VehicleFaults)
	if _, err := newTestClient("http://unused", 10).Fetch(context.Background(), spec); err == nil {
		t.Error("Expected an error for a kind without a table")
	}
}

func TestParseTotal(t *testing.T) {
	tests := []struct {
		header string
		want   int
	}{
		{"0-999/5000", 5000},
		{"*/0", 0},
		{"0-9/*", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := parseTotal(tt.header); got != tt.want {
			t.Errorf("parseTotal(%q) = %d, want %d", tt.header, got, tt.want)
		}
	}
}
