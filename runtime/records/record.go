// Package records stores prompt records (prompt text plus approval status)
// keyed by (promptId, version).
//
// Three backends implement Store: DynamoDB (the base stack's table), Redis and
// an in-memory map. The approval gate reads status through GetStatus, which
// keeps "record absent" and "store unavailable" apart.
package records

import (
	"context"
	"errors"
	"time"
)

// Status values written by PromptFlow and the approver. Any other string is
// stored and reported unchanged.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Key identifies a prompt record. Version is a string even for numeric
// versions.
type Key struct {
	PromptID string `dynamodbav:"promptId" json:"promptId" validate:"required"`
	Version  string `dynamodbav:"version" json:"version" validate:"required"`
}

// Record is one stored prompt version.
type Record struct {
	PromptID   string    `dynamodbav:"promptId" json:"promptId" validate:"required"`
	Version    string    `dynamodbav:"version" json:"version" validate:"required"`
	PromptName string    `dynamodbav:"promptName,omitempty" json:"promptName,omitempty"`
	PromptText string    `dynamodbav:"promptText" json:"promptText"`
	Status     string    `dynamodbav:"status" json:"status" validate:"required"`
	CreatedAt  time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// Key returns the record's lookup key.
func (r *Record) Key() Key {
	return Key{PromptID: r.PromptID, Version: r.Version}
}

// NewRecord builds a Pending record with both timestamps set to now.
func NewRecord(key Key, name, text string, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		PromptID:   key.PromptID,
		Version:    key.Version,
		PromptName: name,
		PromptText: text,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Store persists prompt records.
type Store interface {
	// Put writes r, replacing any record with the same key. Fields are not
	// merged.
	Put(ctx context.Context, r *Record) error

	// Get returns the record for key or ErrNotFound.
	Get(ctx context.Context, key Key) (*Record, error)

	// SetStatus changes the status and updatedAt of an existing record.
	// It returns ErrNotFound if there is no record for key.
	SetStatus(ctx context.Context, key Key, status string, now time.Time) error
}

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("prompt record not found")

// ErrInvalidKey is returned when a key has an empty prompt ID or version.
var ErrInvalidKey = errors.New("invalid prompt record key")

func validKey(key Key) bool {
	return key.PromptID != "" && key.Version != ""
}
