// Package feed implements the FeedAdapter boundary: fetching one snapshot of
// canonical records from an upstream source, with failures classified into
// the Timeout / HTTPError / ParseError taxonomy the router's health machine
// counts. Nothing past this package ever sees a transport error.
package feed

import (
	"context"
	"errors"
	"fmt"

	"matchpulse/pkg/types"
)

// ErrorKind classifies a failed fetch for health accounting. ParseError is
// logged distinctly from transport failures (it signals upstream schema
// drift) but counts the same toward health transitions.
type ErrorKind string

const (
	ErrTimeout ErrorKind = "timeout"
	ErrHTTP    ErrorKind = "http"
	ErrParse   ErrorKind = "parse"
)

// FetchError is the only error type an Adapter returns. Transient by
// definition: handled by the next scheduled poll, never retried
// synchronously within one cycle.
type FetchError struct {
	Kind   ErrorKind
	Status int // HTTP status for ErrHTTP, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrHTTP {
		return fmt.Sprintf("fetch: http status %d", e.Status)
	}
	return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the error kind from a fetch error. Unknown errors are
// treated as parse failures — they came from our side of the boundary.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrParse
}

// Adapter is the uniform "fetch a snapshot" capability per data domain.
// Implementations must respect ctx cancellation: when the poll cycle's
// deadline expires the fetch is abandoned, never left running unbounded.
type Adapter interface {
	// Alias returns the configured feed alias this adapter serves.
	Alias() string
	// Domain returns the data domain of the snapshot (scores or odds).
	Domain() types.Domain
	// Fetch returns one full snapshot of canonical records, or a *FetchError.
	Fetch(ctx context.Context) ([]types.SnapshotRecord, error)
}

// ValidateRecords applies the payload schema check: every record must carry
// home, away, league, a kickoff timestamp, and a value matching the domain.
// A single bad record fails the whole payload as a ParseError — partial
// snapshots are worse than none for reconciliation.
func ValidateRecords(domain types.Domain, records []types.SnapshotRecord) error {
	for i, r := range records {
		switch {
		case r.Home == "", r.Away == "", r.League == "":
			return &FetchError{Kind: ErrParse, Err: fmt.Errorf("record %d: missing team or league", i)}
		case r.Kickoff.IsZero():
			return &FetchError{Kind: ErrParse, Err: fmt.Errorf("record %d: missing kickoff time", i)}
		}
		switch domain {
		case types.DomainScores:
			if r.Score == nil {
				return &FetchError{Kind: ErrParse, Err: fmt.Errorf("record %d: missing score value", i)}
			}
		case types.DomainOdds:
			if r.Odds == nil {
				return &FetchError{Kind: ErrParse, Err: fmt.Errorf("record %d: missing odds value", i)}
			}
		}
	}
	return nil
}
