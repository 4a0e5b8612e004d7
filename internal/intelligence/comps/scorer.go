package comps

import (
	"math"
	"sort"
	"time"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// baseScore is the starting similarity score for every surviving candidate.
const baseScore = 100.0

// weightProfile parameterizes the scoring pipeline per comparable variant.
// The constants are product-tuned; do not adjust without domain confirmation.
type weightProfile struct {
	sameBuildingBonus  float64
	bedroomMatchBonus  float64
	bedroomMissPenalty float64 // per bedroom of difference
	sizeCloseBonus     float64 // within sizeClosePct
	sizeNearBonus      float64 // within sizeNearPct
	sizeClosePct       float64
	sizeNearPct        float64
	sizeMissPenalty    float64 // per percent of difference beyond sizeNearPct
	neighborhoodBonus  float64
	agePenaltyPerYear  float64
	agePenaltyCap      float64
	recencyBonus6Mo    float64
	recencyBonus12Mo   float64
}

var assessmentWeights = weightProfile{
	sameBuildingBonus:  50,
	bedroomMatchBonus:  20,
	bedroomMissPenalty: 40,
	sizeCloseBonus:     15,
	sizeNearBonus:      5,
	sizeClosePct:       10,
	sizeNearPct:        20,
	sizeMissPenalty:    0.5,
	neighborhoodBonus:  10,
	agePenaltyPerYear:  0.5,
	agePenaltyCap:      15,
}

var saleWeights = weightProfile{
	bedroomMatchBonus:  20,
	bedroomMissPenalty: 30,
	sizeCloseBonus:     15,
	sizeNearBonus:      5,
	sizeClosePct:       10,
	sizeNearPct:        20,
	sizeMissPenalty:    0.3,
	neighborhoodBonus:  15,
	agePenaltyPerYear:  0.3,
	agePenaltyCap:      10,
	recencyBonus6Mo:    10,
	recencyBonus12Mo:   5,
}

func profileFor(kind property.Kind) weightProfile {
	if kind == property.KindSale {
		return saleWeights
	}
	return assessmentWeights
}

// scoredCandidate carries the internal similarity score alongside the derived
// comparison fields.  It never crosses the package boundary; Comparable is
// the public projection.
type scoredCandidate struct {
	rec   property.CandidateRecord
	score float64

	sqftDiffPct  *float64
	ageDiffYears *int
	valuePerSqFt *float64
}

// Matcher ranks candidate comparables against a subject property.
type Matcher struct {
	// now anchors sale-recency bonuses; overridable in tests.
	now func() time.Time
}

// NewMatcher constructs a Matcher using the wall clock for sale recency.
func NewMatcher() *Matcher {
	return &Matcher{now: time.Now}
}

// ScoreComparables filters, scores, ranks, and projects the candidate pool
// into at most limit public comparables, best first.
//
// limit must be >= 1; that is the only failure mode.  Missing or malformed
// candidate data degrades by exclusion, never by error.  The result is
// deterministic for a fixed candidate ordering: ties keep pool order.
func (m *Matcher) ScoreComparables(subject *property.SubjectProperty, candidates []property.CandidateRecord, limit int) ([]analysis.Comparable, error) {
	if limit < 1 {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidLimit, "comparable limit must be >= 1, got %d", limit)
	}
	if subject == nil {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "subject property is required")
	}

	survivors := Filter(subject, candidates)
	if len(survivors) == 0 {
		return []analysis.Comparable{}, nil
	}

	scored := make([]scoredCandidate, 0, len(survivors))
	for _, cand := range survivors {
		scored = append(scored, m.score(subject, cand))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]analysis.Comparable, 0, len(scored))
	for _, sc := range scored {
		out = append(out, project(sc))
	}
	return out, nil
}

func (m *Matcher) score(subject *property.SubjectProperty, cand property.CandidateRecord) scoredCandidate {
	w := profileFor(cand.Kind())
	sc := scoredCandidate{rec: cand, score: baseScore}

	if a, ok := cand.(*property.AssessedComparable); ok && a.SameBuilding {
		sc.score += w.sameBuildingBonus
	}

	if s, c := subject.Bedrooms, cand.Bedrooms(); s != nil && c != nil {
		if *s == *c {
			sc.score += w.bedroomMatchBonus
		} else {
			sc.score -= w.bedroomMissPenalty * float64(abs(*c-*s))
		}
	}

	if s, c := subject.SquareFeet, cand.SquareFeet(); s != nil && c != nil && *s > 0 {
		diffPct := (*c - *s) / *s * 100
		sc.sqftDiffPct = &diffPct
		switch {
		case math.Abs(diffPct) <= w.sizeClosePct:
			sc.score += w.sizeCloseBonus
		case math.Abs(diffPct) <= w.sizeNearPct:
			sc.score += w.sizeNearBonus
		default:
			sc.score -= w.sizeMissPenalty * math.Abs(diffPct)
		}
	}

	if subject.NeighborhoodCode != "" && cand.NeighborhoodCode() == subject.NeighborhoodCode {
		sc.score += w.neighborhoodBonus
	}

	if s, c := subject.YearBuilt, cand.YearBuilt(); s != nil && c != nil {
		diff := *c - *s
		sc.ageDiffYears = &diff
		sc.score -= math.Min(w.agePenaltyCap, w.agePenaltyPerYear*math.Abs(float64(diff)))
	}

	if sale, ok := cand.(*property.SaleComparable); ok && !sale.SaleDate.IsZero() {
		age := m.now().Sub(sale.SaleDate)
		switch {
		case age <= 6*30*24*time.Hour:
			sc.score += w.recencyBonus6Mo
		case age <= 12*30*24*time.Hour:
			sc.score += w.recencyBonus12Mo
		}
	}

	if v, sqft := cand.MarketValue(), cand.SquareFeet(); v != nil && sqft != nil && *sqft > 0 {
		vps := *v / *sqft
		sc.valuePerSqFt = &vps
	}

	return sc
}

// project strips the internal score and emits the public comparable shape.
func project(sc scoredCandidate) analysis.Comparable {
	c := analysis.Comparable{
		PIN:                sc.rec.PIN().String(),
		Kind:               sc.rec.Kind(),
		NeighborhoodCode:   sc.rec.NeighborhoodCode(),
		Bedrooms:           sc.rec.Bedrooms(),
		SquareFeet:         sc.rec.SquareFeet(),
		YearBuilt:          sc.rec.YearBuilt(),
		SqFtDifferencePct:  sc.sqftDiffPct,
		AgeDifferenceYears: sc.ageDiffYears,
		ValuePerSqFt:       sc.valuePerSqFt,
	}
	switch rec := sc.rec.(type) {
	case *property.AssessedComparable:
		c.AssessedValue = rec.AssessedValue
		c.SameBuilding = rec.SameBuilding
	case *property.SaleComparable:
		c.SalePrice = rec.SalePrice
		if !rec.SaleDate.IsZero() {
			d := rec.SaleDate
			c.SaleDate = &d
		}
	}
	return c
}
