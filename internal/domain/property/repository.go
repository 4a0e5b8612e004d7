package property

import "context"

// Repository persists subject properties and their appeal history.
type Repository interface {
	// GetByPIN loads a subject property.  Returns a not-found error when the
	// parcel has never been seen.
	GetByPIN(ctx context.Context, pin PIN) (*SubjectProperty, error)

	// Upsert inserts or refreshes a subject property snapshot.
	Upsert(ctx context.Context, subject *SubjectProperty) error

	// HadRecentAppealSuccess reports whether a prior appeal reduced the
	// parcel's assessed value within the lookback window.
	HadRecentAppealSuccess(ctx context.Context, pin PIN) (bool, error)
}
