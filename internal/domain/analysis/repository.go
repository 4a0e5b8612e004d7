package analysis

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists completed appeal analyses.
type Repository interface {
	// Save stores a completed analysis.
	Save(ctx context.Context, a *AppealAnalysis) error

	// GetByID loads a single analysis.  Returns a not-found error when the id
	// is unknown.
	GetByID(ctx context.Context, id uuid.UUID) (*AppealAnalysis, error)

	// ListByPIN returns the most recent analyses for a parcel, newest first,
	// at most limit entries.
	ListByPIN(ctx context.Context, pin string, limit int) ([]*AppealAnalysis, error)
}
