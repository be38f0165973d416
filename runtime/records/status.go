package records

import (
	"context"
	"errors"

	"github.com/AltairaLabs/PromptFlow/runtime/logger"
)

// LookupResult classifies a status lookup.
type LookupResult int

const (
	// Found means a record exists and Status holds its value.
	Found LookupResult = iota
	// NotFound means the store answered and has no record for the key.
	NotFound
	// Unavailable means the store could not be read; Err holds the cause.
	Unavailable
)

func (r LookupResult) String() string {
	switch r {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// StatusLookup is the outcome of GetStatus.
type StatusLookup struct {
	Result LookupResult
	Status string
	Err    error
}

// Observed returns the status for display: the stored value, or "None" when
// there is no value to report.
func (l StatusLookup) Observed() string {
	if l.Result == Found {
		return l.Status
	}
	return "None"
}

// IsApproved reports whether the record exists and its status is exactly
// "Approved". No other casing or synonym qualifies.
func (l StatusLookup) IsApproved() bool {
	return l.Result == Found && l.Status == StatusApproved
}

// GetStatus reads the status of (promptID, version). A backend failure is
// reported as Unavailable and logged, never folded into NotFound.
func GetStatus(ctx context.Context, store Store, promptID, version string) StatusLookup {
	r, err := store.Get(ctx, Key{PromptID: promptID, Version: version})
	switch {
	case err == nil:
		return StatusLookup{Result: Found, Status: r.Status}
	case errors.Is(err, ErrNotFound):
		return StatusLookup{Result: NotFound}
	default:
		logger.WarnContext(ctx, "Error retrieving prompt status",
			"prompt_id", promptID, "version", version, "error", err)
		return StatusLookup{Result: Unavailable, Err: err}
	}
}
