package databases

import (
	"context"
	"errors"

	"github.com/simeonpalla/GovLensAP/models"
)

// Storage errors surfaced by ComplaintDatabase implementations. Callers wrap
// or map these at the HTTP boundary.
var (
	// ErrStorageUnavailable means the backing store exists but could not be
	// read or parsed. Distinct from a legitimately empty store, which is an
	// empty slice with a nil error.
	ErrStorageUnavailable = errors.New("complaint storage unavailable")

	// ErrNotFound means no complaint matches the given tracking ID.
	ErrNotFound = errors.New("complaint not found")

	// ErrDuplicateID means a complaint with the given tracking ID already
	// exists. The submit handler regenerates the ID and retries once.
	ErrDuplicateID = errors.New("complaint id already exists")
)

// ComplaintDatabase contains the methods to use with the complaint store.
// Every mutation is a whole-collection read-modify-write; implementations
// serialize writers so concurrent submissions cannot drop each other.
type ComplaintDatabase interface {
	// InitStorage ensures the backing store exists, creating it empty if
	// absent. Idempotent; called on every process start.
	InitStorage(ctx context.Context) error

	// Find returns every complaint in creation order.
	Find(ctx context.Context) ([]models.Complaint, error)

	// FindByID returns the complaint with the given tracking ID, or
	// ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.Complaint, error)

	// Insert appends a new complaint. Fails with ErrDuplicateID when the
	// tracking ID is already taken.
	Insert(ctx context.Context, complaint models.Complaint) error

	// AppendAction appends a timeline event for the officer action and
	// recomputes the status through the lifecycle policy. The store is left
	// untouched on ErrNotFound.
	AppendAction(ctx context.Context, id, action, notes, officer string) error
}
