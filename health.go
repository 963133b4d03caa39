package filestorage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// HealthService measures round-trip latency to the metadata database and
// the object store.
type HealthService struct {
	db      Pinger
	storage ObjectStorage
}

func NewHealthService(db Pinger, storage ObjectStorage) *HealthService {
	return &HealthService{db: db, storage: storage}
}

// UnavailableError names the dependencies that failed a health probe. It
// matches ErrServiceUnavailable and each underlying probe error.
type UnavailableError struct {
	Dependencies []string
	Err          error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("ping: %v: %v", ErrServiceUnavailable, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrServiceUnavailable, e.Err}
}

// Ping probes both dependencies and reports their latencies in seconds,
// rounded to two decimals. Both probes always run. If either fails the
// returned *UnavailableError lists "db" and/or "storage" and joins the
// probe errors, each prefixed with its dependency name.
func (s *HealthService) Ping(ctx context.Context) (PingResult, error) {
	var result PingResult
	var failed []string
	var errs []error

	dbLatency, err := timed(ctx, s.db.Ping)
	if err != nil {
		failed = append(failed, "db")
		errs = append(errs, fmt.Errorf("db: %w", err))
	}
	result.DB = dbLatency

	storageLatency, err := timed(ctx, s.storage.Ping)
	if err != nil {
		failed = append(failed, "storage")
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	result.Storage = storageLatency

	if len(errs) > 0 {
		return result, &UnavailableError{Dependencies: failed, Err: errors.Join(errs...)}
	}

	return result, nil
}

func timed(ctx context.Context, probe func(context.Context) error) (float64, error) {
	start := time.Now()
	err := probe(ctx)
	return math.Round(time.Since(start).Seconds()*100) / 100, err
}
