package comps

import (
	"sort"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
)

// minSampleSize is the smallest comparable count for which the optional
// sub-analyses are emitted.
const minSampleSize = 3

// assessedToMarketMultiplier converts an assessed value to its implied market
// value under the county's 10% residential assessment level.
const assessedToMarketMultiplier = 10.0

// Median returns the value at index floor(n/2) of the ascending-sorted input,
// or 0 for an empty slice.  The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// Average returns the arithmetic mean, or 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stats is the aggregate statistics computed over a final comparable set.
type Stats struct {
	MedianValue  float64
	AverageValue float64
	Values       []float64
	SqFt         *analysis.SqFtAnalysis
	Sales        *analysis.SalesAnalysis
}

// Aggregate computes the value statistics and optional sub-analyses from the
// selected comparables.  The value statistics cover assessed values only;
// sale comparables are market-scale and contribute through salesAnalysis,
// which applies the assessment-to-market bridge.  Sub-analyses are emitted
// whole or not at all.
func Aggregate(subject *property.SubjectProperty, comparables []analysis.Comparable) Stats {
	values := make([]float64, 0, len(comparables))
	for i := range comparables {
		c := &comparables[i]
		if c.Kind == property.KindSale {
			continue
		}
		if c.AssessedValue != nil {
			values = append(values, *c.AssessedValue)
		}
	}

	return Stats{
		MedianValue:  Median(values),
		AverageValue: Average(values),
		Values:       values,
		SqFt:         sqftAnalysis(subject, comparables),
		Sales:        salesAnalysis(subject, comparables),
	}
}

// sqftAnalysis computes the per-square-foot sub-analysis, or nil when fewer
// than three assessment comparables carry positive size and value data or
// the subject itself lacks size or value.
func sqftAnalysis(subject *property.SubjectProperty, comparables []analysis.Comparable) *analysis.SqFtAnalysis {
	if subject.SquareFeet == nil || *subject.SquareFeet <= 0 ||
		subject.AssessedValue == nil || *subject.AssessedValue <= 0 {
		return nil
	}

	perSqFt := make([]float64, 0, len(comparables))
	for i := range comparables {
		c := &comparables[i]
		if c.Kind == property.KindSale {
			continue
		}
		if c.SquareFeet != nil && *c.SquareFeet > 0 && c.AssessedValue != nil && *c.AssessedValue > 0 {
			perSqFt = append(perSqFt, *c.AssessedValue / *c.SquareFeet)
		}
	}
	if len(perSqFt) < minSampleSize {
		return nil
	}

	subjectPerSqFt := *subject.AssessedValue / *subject.SquareFeet
	median := Median(perSqFt)
	impliedFair := *subject.SquareFeet * median

	var pctDiff float64
	if median > 0 {
		pctDiff = (subjectPerSqFt - median) / median * 100
	}

	return &analysis.SqFtAnalysis{
		SubjectValuePerSqFt: subjectPerSqFt,
		MedianValuePerSqFt:  median,
		AverageValuePerSqFt: Average(perSqFt),
		PercentDifference:   pctDiff,
		ImpliedFairValue:    impliedFair,
		OvervaluedBy:        *subject.AssessedValue - impliedFair,
	}
}

// salesAnalysis computes the market-sale sub-analysis, or nil when fewer than
// three qualifying sales exist.
func salesAnalysis(subject *property.SubjectProperty, comparables []analysis.Comparable) *analysis.SalesAnalysis {
	prices := make([]float64, 0, len(comparables))
	perSqFt := make([]float64, 0, len(comparables))
	for i := range comparables {
		c := &comparables[i]
		if c.Kind != property.KindSale || c.SalePrice == nil || *c.SalePrice <= 0 {
			continue
		}
		prices = append(prices, *c.SalePrice)
		if c.SquareFeet != nil && *c.SquareFeet > 0 {
			perSqFt = append(perSqFt, *c.SalePrice / *c.SquareFeet)
		}
	}
	if len(prices) < minSampleSize {
		return nil
	}

	medianPrice := Median(prices)
	medianPerSqFt := Median(perSqFt)

	// Implied market value prefers the per-sqft route; fall back to the
	// median sale price when size data is unavailable on either side.
	implied := medianPrice
	if medianPerSqFt > 0 && subject.SquareFeet != nil && *subject.SquareFeet > 0 {
		implied = *subject.SquareFeet * medianPerSqFt
	}

	out := &analysis.SalesAnalysis{
		MedianSalePrice:    medianPrice,
		AverageSalePrice:   Average(prices),
		MedianPricePerSqFt: medianPerSqFt,
		ImpliedMarketValue: implied,
		SampleSize:         len(prices),
	}

	if subject.AssessedValue != nil && *subject.AssessedValue > 0 && implied > 0 {
		subjectMarket := *subject.AssessedValue * assessedToMarketMultiplier
		out.AssessmentSalesGap = subjectMarket - implied
		out.OvervaluedByPercent = (subjectMarket - implied) / implied * 100
	}

	return out
}
