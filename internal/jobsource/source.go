package jobsource

import (
	"context"
	"fmt"

	"github.com/spigell/jobrag/internal/job"
)

// Source fetches postings from an external provider and returns them normalized.
// Implementations clamp limit to the provider maximum and skip records that
// cannot be normalized.
type Source interface {
	Name() string
	MaxLimit() int
	Fetch(ctx context.Context, query, location string, limit int) ([]job.Job, error)
}

// FetchError reports an upstream search failure: transport error, timeout,
// non-success status or an undecodable body.
type FetchError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClampLimit bounds a requested result count to [1, max].
func ClampLimit(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
