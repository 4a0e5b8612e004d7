package comps

import "github.com/parcelworks/appealengine/internal/domain/property"

// poolCapMultiplier bounds the pre-filter pool relative to the requested
// result size.
const poolCapMultiplier = 3

// BuildPool merges independently-sourced candidate collections into a single
// deduplicated pool.  Records are keyed by PIN with first-seen-wins semantics:
// sources order their rows most-recent-first, so the first occurrence is the
// freshest record for that parcel.  The pool is capped at limit*3 entries to
// bound downstream scoring cost.
//
// A failed upstream source contributes an empty (or nil) slice; that is not
// an error here.
func BuildPool(limit int, sources ...[]property.CandidateRecord) []property.CandidateRecord {
	maxPool := limit * poolCapMultiplier
	seen := make(map[property.PIN]struct{})
	pool := make([]property.CandidateRecord, 0, maxPool)

	for _, source := range sources {
		for _, rec := range source {
			if rec == nil {
				continue
			}
			if _, dup := seen[rec.PIN()]; dup {
				continue
			}
			seen[rec.PIN()] = struct{}{}
			pool = append(pool, rec)
			if len(pool) >= maxPool {
				return pool
			}
		}
	}
	return pool
}
