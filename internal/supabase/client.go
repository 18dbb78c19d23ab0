// Package supabase reads entity collections from a Supabase PostgREST API.
package supabase

import (
	"context"
	"time"

	"qms-mcp/internal/entity"
	"qms-mcp/internal/record"
)

// Client is the interface for reading collections from the hosted database.
type Client interface {
	// Fetch returns every row of the collection described by spec, following
	// pagination until the table is exhausted.
	Fetch(ctx context.Context, spec entity.Spec) ([]record.Record, error)
}

// Config holds the connection settings for the REST endpoint.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string
	// APIKey is the anon or service-role key, sent as apikey and bearer token.
	APIKey string
	// Schema selects a non-public schema through Accept-Profile.
	Schema string

	// Paging and retry
	PageSize     int
	MaxRetries   uint64
	RequestDelay time.Duration
	Timeout      time.Duration
}

// NewClient creates a PostgREST client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewRestClient(cfg)
}
