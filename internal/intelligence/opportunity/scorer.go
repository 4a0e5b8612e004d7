// Package opportunity converts comparable statistics into a quantified,
// explainable appeal-opportunity assessment.
package opportunity

import (
	"math"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/intelligence/comps"
)

// effectiveTaxRate converts an overvaluation amount into an estimated annual
// tax saving.
const effectiveTaxRate = 0.021

// Factor caps and weights.  Product-tuned constants.
const (
	overvaluationCap       = 35.0
	overvaluationWeight    = 1.75
	sampleSizeCap          = 15.0
	sampleSizeWeight       = 1.5
	consistencyCap         = 15.0
	consistencyMinSample   = 3
	yoyCap                 = 25.0
	yoyThreshold           = 10.0
	yoyWeight              = 0.5
	priorSuccessBonus      = 10.0
	highConfidenceMinComps = 5
	mediumConfMinComps     = 3
)

// Input carries everything the opportunity scorer consumes.  It is assembled
// by the application layer from the subject property and the aggregated
// comparable statistics.
type Input struct {
	// SubjectValue is the subject's current assessed value.
	SubjectValue float64

	// ComparableValues are the assessed values (or sale prices) of the
	// selected comparables.  May be empty.
	ComparableValues []float64

	// HasRecentAppealSuccess is true when a prior appeal reduced the
	// subject's assessed value.
	HasRecentAppealSuccess bool

	// AssessmentChangePercent is the year-over-year assessment change, when
	// known.
	AssessmentChangePercent *float64

	// SqFt and Sales are the optional sub-analyses from the statistics
	// aggregator.  They contribute appeal grounds but no score factors.
	SqFt  *analysis.SqFtAnalysis
	Sales *analysis.SalesAnalysis
}

// Score computes the 0-100 opportunity score, appeal grounds, confidence
// tier, and overvaluation estimates.  Pure function: no I/O, no state.
func Score(in Input) *analysis.OpportunityAnalysis {
	median := comps.Median(in.ComparableValues)
	average := comps.Average(in.ComparableValues)
	count := len(in.ComparableValues)

	var overvaluationPct, overvaluation float64
	if median > 0 {
		overvaluationPct = (in.SubjectValue - median) / median * 100
		overvaluation = math.Max(0, in.SubjectValue-median)
	}

	var yoy float64
	if in.AssessmentChangePercent != nil {
		yoy = *in.AssessmentChangePercent
	}

	score := overvaluationFactor(overvaluationPct) +
		sampleSizeFactor(count) +
		consistencyFactor(in.ComparableValues, average) +
		yoyFactor(yoy) +
		priorSuccessFactor(in.HasRecentAppealSuccess)

	rounded := int(math.Round(score))
	if rounded < 0 {
		rounded = 0
	}
	if rounded > 100 {
		rounded = 100
	}

	return &analysis.OpportunityAnalysis{
		OpportunityScore:       rounded,
		EstimatedOvervaluation: overvaluation,
		EstimatedTaxSavings:    overvaluation * effectiveTaxRate,
		MedianComparableValue:  median,
		AverageComparableValue: average,
		ComparableCount:        count,
		SqFt:                   in.SqFt,
		Sales:                  in.Sales,
		AppealGrounds:          grounds(overvaluationPct, yoy, in.SqFt, in.Sales),
		Confidence:             confidence(count, overvaluationPct, yoy),
	}
}

func overvaluationFactor(pct float64) float64 {
	return math.Min(overvaluationCap, math.Max(0, pct*overvaluationWeight))
}

func sampleSizeFactor(count int) float64 {
	return math.Min(sampleSizeCap, float64(count)*sampleSizeWeight)
}

// consistencyFactor rewards tightly-clustered comparable values.  A spread
// near zero relative to the average means the comparables agree.
func consistencyFactor(values []float64, average float64) float64 {
	if len(values) < consistencyMinSample || average <= 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	spread := hi - lo
	return math.Max(0, math.Min(consistencyCap, (1-spread/average)*consistencyCap))
}

func yoyFactor(yoy float64) float64 {
	if yoy <= yoyThreshold {
		return 0
	}
	return math.Min(yoyCap, math.Max(0, (yoy-yoyThreshold)*yoyWeight))
}

func priorSuccessFactor(had bool) float64 {
	if had {
		return priorSuccessBonus
	}
	return 0
}

// grounds builds the insertion-ordered set of appeal-ground tags.  Each tag
// appears at most once.
func grounds(overvaluationPct, yoy float64, sqft *analysis.SqFtAnalysis, sales *analysis.SalesAnalysis) []analysis.AppealGround {
	out := make([]analysis.AppealGround, 0, 5)
	seen := make(map[analysis.AppealGround]struct{}, 5)
	add := func(g analysis.AppealGround) {
		if _, dup := seen[g]; dup {
			return
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}

	if overvaluationPct > 10 {
		add(analysis.GroundComparableSales)
	}
	if yoy > 20 {
		add(analysis.GroundExcessiveIncrease)
	}
	if yoy > 40 {
		add(analysis.GroundDramaticIncrease)
	}
	if sqft != nil && sqft.PercentDifference > 15 {
		add(analysis.GroundValuePerSqFt)
	}
	if sales != nil && sales.OvervaluedByPercent > 10 {
		add(analysis.GroundMarketSales)
	}
	return out
}

func confidence(count int, overvaluationPct, yoy float64) analysis.ConfidenceTier {
	switch {
	case count >= highConfidenceMinComps && (overvaluationPct > 15 || yoy > 30):
		return analysis.ConfidenceHigh
	case (count >= mediumConfMinComps && (overvaluationPct > 10 || yoy > 20)) || yoy > 40:
		return analysis.ConfidenceMedium
	default:
		return analysis.ConfidenceLow
	}
}
