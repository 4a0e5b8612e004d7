package comps

import (
	"math"

	"github.com/parcelworks/appealengine/internal/domain/property"
)

const (
	// bedroomTolerance is the largest bedroom-count difference that stays in
	// the pool.  A one-bedroom gap is penalized during scoring, not excluded.
	bedroomTolerance = 1

	// sizeTolerance is the largest square-footage deviation, as a fraction of
	// the subject's size, that stays in the pool.
	sizeTolerance = 0.30
)

// EstimateUnitSqFt infers a condo unit's square footage from the building
// total and the unit's proration rate.  The rate must be a genuine fractional
// share in (0, 1); anything else returns nil rather than a guess.
func EstimateUnitSqFt(buildingSqFt, prorationRate *float64) *float64 {
	if buildingSqFt == nil || prorationRate == nil {
		return nil
	}
	if *buildingSqFt <= 0 || *prorationRate <= 0 || *prorationRate >= 1 {
		return nil
	}
	est := math.Round(*buildingSqFt * *prorationRate)
	return &est
}

// admissible applies the hard exclusions that disqualify a candidate
// regardless of similarity score.
func admissible(subject *property.SubjectProperty, cand property.CandidateRecord) bool {
	// No usable value evidence, no comparable.
	if v := cand.MarketValue(); v == nil {
		return false
	}

	if s, c := subject.Bedrooms, cand.Bedrooms(); s != nil && c != nil {
		if abs(*c-*s) > bedroomTolerance {
			return false
		}
	}

	if s, c := subject.SquareFeet, cand.SquareFeet(); s != nil && c != nil && *s > 0 {
		if math.Abs(*c-*s) / *s > sizeTolerance {
			return false
		}
	}

	// A condo comparable with neither bedroom nor size data cannot be
	// verified as comparable at all.
	if subject.IsCondo() && cand.Bedrooms() == nil && cand.SquareFeet() == nil {
		return false
	}

	if sale, ok := cand.(*property.SaleComparable); ok && !sale.ArmsLength() {
		return false
	}

	return true
}

// Filter returns the candidates that survive the hard exclusions, preserving
// pool order.
func Filter(subject *property.SubjectProperty, pool []property.CandidateRecord) []property.CandidateRecord {
	out := make([]property.CandidateRecord, 0, len(pool))
	for _, cand := range pool {
		if admissible(subject, cand) {
			out = append(out, cand)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
