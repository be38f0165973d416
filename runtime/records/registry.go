package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
	"github.com/AltairaLabs/PromptFlow/runtime/logger"
)

var validate = validator.New()

// Notifier announces that a newly stored record awaits approval.
type Notifier interface {
	RequestApproval(ctx context.Context, r *Record) error
}

// Registry is the caller-facing side of the record store: it submits new
// prompt versions and lets an approver change their status.
type Registry struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNotifier publishes an approval request after every successful Submit.
func WithNotifier(n Notifier) RegistryOption {
	return func(r *Registry) {
		r.notifier = n
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a Registry over store.
func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Registry) Store() Store {
	return r.store
}

// Submit stores a new Pending record, replacing any record with the same
// key, and returns a message for the caller. On failure the message reports
// the error and the StorageError is returned as well. A notification failure
// is logged and does not fail the submit.
func (r *Registry) Submit(ctx context.Context, promptID, name, version, text string) (string, error) {
	ctx = logger.WithPrompt(ctx, promptID, version)
	rec := NewRecord(Key{PromptID: promptID, Version: version}, name, text, r.now())

	if err := validate.Struct(rec); err != nil {
		serr := pkgerrors.New(pkgerrors.ComponentStore, "ValidateRecord", err)
		return fmt.Sprintf("Error inserting prompt: %v", serr), serr
	}

	if err := r.store.Put(ctx, rec); err != nil {
		serr := asStorageError("PutRecord", err)
		logger.ErrorContext(ctx, "Error inserting prompt", "error", err)
		return fmt.Sprintf("Error inserting prompt: %v", err), serr
	}

	if r.notifier != nil {
		if err := r.notifier.RequestApproval(ctx, rec); err != nil {
			logger.WarnContext(ctx, "Approval notification failed", "error", err)
		}
	}

	return fmt.Sprintf("Prompt '%s' (version %s) inserted successfully with status '%s'.",
		name, version, StatusPending), nil
}

// Status looks up the approval status of a prompt version.
func (r *Registry) Status(ctx context.Context, promptID, version string) StatusLookup {
	return GetStatus(ctx, r.store, promptID, version)
}

// SetStatus records an approver's decision. It is how a record moves from
// Pending to Approved (or anything else) outside of PromptFlow's own flow.
func (r *Registry) SetStatus(ctx context.Context, promptID, version, status string) error {
	if status == "" {
		return pkgerrors.New(pkgerrors.ComponentStore, "SetStatus", fmt.Errorf("status is required"))
	}
	if err := r.store.SetStatus(ctx, Key{PromptID: promptID, Version: version}, status, r.now()); err != nil {
		return asStorageError("SetStatus", err)
	}
	logger.InfoContext(logger.WithPrompt(ctx, promptID, version), "Prompt status updated", "status", status)
	return nil
}

// asStorageError makes sure err carries the store component.
func asStorageError(operation string, err error) error {
	var ce *pkgerrors.ContextualError
	if errors.As(err, &ce) && ce.Component == pkgerrors.ComponentStore {
		return err
	}
	return pkgerrors.New(pkgerrors.ComponentStore, operation, err)
}
