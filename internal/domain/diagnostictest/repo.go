package diagnostictest

import (
	"context"

	"github.com/google/uuid"
)

// DiagnosticTestRepository is the storage engine contract: keyed
// create/read/update/delete plus a full scan, each atomic on its own.
//
// GetByID, Update and Delete return ErrNotFound (possibly wrapped) when no
// row matches. Update and Delete return the row as stored after, or
// immediately before, the write.
type DiagnosticTestRepository interface {
	Create(ctx context.Context, d *DiagnosticTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error)
	List(ctx context.Context, opts ListOptions) ([]*DiagnosticTest, error)
	Update(ctx context.Context, id uuid.UUID, c *Candidate) (*DiagnosticTest, error)
	Delete(ctx context.Context, id uuid.UUID) (*DiagnosticTest, error)
	Ping(ctx context.Context) error
}
