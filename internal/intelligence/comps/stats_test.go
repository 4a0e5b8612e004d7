package comps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/appealengine/internal/domain/analysis"
	"github.com/parcelworks/appealengine/internal/domain/property"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 5.0, Median([]float64{5}))
	// Even count takes the upper-middle element.
	assert.Equal(t, 3.0, Median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 150000.0, Median([]float64{150000, 160000, 155000, 145000, 150000}))

	// Input is not reordered.
	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.InDelta(t, 152000.0, Average([]float64{150000, 160000, 155000, 145000, 150000}), 1e-9)
}

func assessedComp(value, sqft float64) analysis.Comparable {
	return analysis.Comparable{
		Kind:          property.KindAssessment,
		AssessedValue: ptr(value),
		SquareFeet:    ptr(sqft),
	}
}

func saleComp(price, sqft float64) analysis.Comparable {
	c := analysis.Comparable{Kind: property.KindSale, SalePrice: ptr(price)}
	if sqft > 0 {
		c.SquareFeet = ptr(sqft)
	}
	return c
}

func TestAggregate_ValueStatistics(t *testing.T) {
	stats := Aggregate(testSubject(), []analysis.Comparable{
		assessedComp(18000, 1000),
		assessedComp(19000, 1050),
		saleComp(250000, 1000),
	})

	// Sale prices are market-scale and must never enter the assessed-value
	// statistics.
	assert.Equal(t, []float64{18000, 19000}, stats.Values)
	assert.Equal(t, 19000.0, stats.MedianValue)
	assert.InDelta(t, 18500.0, stats.AverageValue, 1e-9)
}

func TestAggregate_MixedPoolKeepsScalesApart(t *testing.T) {
	// An overvalued subject with both assessment and sale evidence: the
	// assessed-value median must come from the assessed comparables alone,
	// not be dragged to market scale by the sales.
	subject := testSubject()
	subject.AssessedValue = ptr(40000)

	stats := Aggregate(subject, []analysis.Comparable{
		assessedComp(30000, 1000),
		assessedComp(30000, 1000),
		assessedComp(30000, 1000),
		saleComp(310000, 1000),
		saleComp(300000, 1000),
		saleComp(320000, 1000),
	})

	assert.Equal(t, []float64{30000, 30000, 30000}, stats.Values)
	assert.Equal(t, 30000.0, stats.MedianValue)

	// The sales still show up, on their own scale, in the sales sub-analysis.
	require.NotNil(t, stats.Sales)
	assert.InDelta(t, 310000.0, stats.Sales.MedianSalePrice, 1e-9)

	// And they stay out of the assessed per-sqft figures.
	require.NotNil(t, stats.SqFt)
	assert.InDelta(t, 30.0, stats.SqFt.MedianValuePerSqFt, 1e-9)
	assert.InDelta(t, 30.0, stats.SqFt.AverageValuePerSqFt, 1e-9)
}

func TestAggregate_SqFtAnalysisThreshold(t *testing.T) {
	subject := testSubject() // 1000 sqft, 20000 assessed

	t.Run("two qualifying comparables is not enough", func(t *testing.T) {
		stats := Aggregate(subject, []analysis.Comparable{
			assessedComp(18000, 1000),
			assessedComp(19000, 1000),
		})
		assert.Nil(t, stats.SqFt)
	})

	t.Run("three qualifying comparables emits the analysis", func(t *testing.T) {
		stats := Aggregate(subject, []analysis.Comparable{
			assessedComp(18000, 1000), // 18/sqft
			assessedComp(16000, 1000), // 16/sqft
			assessedComp(17000, 1000), // 17/sqft
		})
		require.NotNil(t, stats.SqFt)

		sq := stats.SqFt
		assert.InDelta(t, 20.0, sq.SubjectValuePerSqFt, 1e-9)
		assert.InDelta(t, 17.0, sq.MedianValuePerSqFt, 1e-9)
		assert.InDelta(t, 17.0, sq.AverageValuePerSqFt, 1e-9)
		assert.InDelta(t, 17.647, sq.PercentDifference, 0.001) // (20-17)/17*100
		assert.InDelta(t, 17000.0, sq.ImpliedFairValue, 1e-9)
		assert.InDelta(t, 3000.0, sq.OvervaluedBy, 1e-9)
	})

	t.Run("comparable without size does not count", func(t *testing.T) {
		noSize := analysis.Comparable{Kind: property.KindAssessment, AssessedValue: ptr(18000)}
		stats := Aggregate(subject, []analysis.Comparable{
			assessedComp(18000, 1000),
			assessedComp(16000, 1000),
			noSize,
		})
		assert.Nil(t, stats.SqFt)
	})

	t.Run("subject without size gets no analysis", func(t *testing.T) {
		s := testSubject()
		s.SquareFeet = nil
		stats := Aggregate(s, []analysis.Comparable{
			assessedComp(18000, 1000),
			assessedComp(16000, 1000),
			assessedComp(17000, 1000),
		})
		assert.Nil(t, stats.SqFt)
	})
}

func TestAggregate_SalesAnalysis(t *testing.T) {
	subject := testSubject() // 1000 sqft, 20000 assessed -> 200000 implied market

	t.Run("needs three qualifying sales", func(t *testing.T) {
		stats := Aggregate(subject, []analysis.Comparable{
			saleComp(240000, 1000),
			saleComp(260000, 1000),
		})
		assert.Nil(t, stats.Sales)
	})

	t.Run("per sqft route", func(t *testing.T) {
		stats := Aggregate(subject, []analysis.Comparable{
			saleComp(240000, 1000), // 240/sqft
			saleComp(250000, 1000), // 250/sqft
			saleComp(260000, 1000), // 260/sqft
		})
		require.NotNil(t, stats.Sales)

		s := stats.Sales
		assert.Equal(t, 3, s.SampleSize)
		assert.InDelta(t, 250000.0, s.MedianSalePrice, 1e-9)
		assert.InDelta(t, 250.0, s.MedianPricePerSqFt, 1e-9)
		assert.InDelta(t, 250000.0, s.ImpliedMarketValue, 1e-9) // 1000 * 250
		assert.InDelta(t, -50000.0, s.AssessmentSalesGap, 1e-9) // 200000 - 250000
		assert.InDelta(t, -20.0, s.OvervaluedByPercent, 1e-9)
	})

	t.Run("falls back to median sale price without sqft data", func(t *testing.T) {
		stats := Aggregate(subject, []analysis.Comparable{
			saleComp(150000, 0),
			saleComp(160000, 0),
			saleComp(170000, 0),
		})
		require.NotNil(t, stats.Sales)
		assert.InDelta(t, 160000.0, stats.Sales.ImpliedMarketValue, 1e-9)
		// 200000 implied market vs 160000 sales evidence -> 25% overvalued.
		assert.InDelta(t, 25.0, stats.Sales.OvervaluedByPercent, 1e-9)
	})

	t.Run("assessment comparables never count as sales", func(t *testing.T) {
		stats := Aggregate(subject, []analysis.Comparable{
			assessedComp(18000, 1000),
			assessedComp(19000, 1000),
			assessedComp(17000, 1000),
		})
		assert.Nil(t, stats.Sales)
	})
}
