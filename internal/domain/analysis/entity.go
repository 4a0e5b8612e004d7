// Package analysis defines the result entities produced by the
// comparable-matching and opportunity-scoring engine.
package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/parcelworks/appealengine/internal/domain/property"
)

// Comparable is the public shape of a ranked comparable.  Internal ranking
// artifacts (the raw similarity score) are stripped before projection into
// this type.
type Comparable struct {
	PIN              string        `json:"pin"`
	Kind             property.Kind `json:"kind"`
	NeighborhoodCode string        `json:"neighborhood_code,omitempty"`
	Bedrooms         *int          `json:"bedrooms,omitempty"`
	SquareFeet       *float64      `json:"square_feet,omitempty"`
	YearBuilt        *int          `json:"year_built,omitempty"`
	AssessedValue    *float64      `json:"assessed_value,omitempty"`
	SalePrice        *float64      `json:"sale_price,omitempty"`
	SaleDate         *time.Time    `json:"sale_date,omitempty"`
	SameBuilding     bool          `json:"same_building,omitempty"`

	// Derived comparison fields, computed against the subject at projection
	// time.  Nil when the underlying attributes are unknown on either side.
	SqFtDifferencePct  *float64 `json:"sqft_difference_pct,omitempty"`
	AgeDifferenceYears *int     `json:"age_difference_years,omitempty"`
	ValuePerSqFt       *float64 `json:"value_per_sqft,omitempty"`
}

// Value returns the comparable's headline figure for display: the sale price
// for sale comparables, the assessed value otherwise.  Value statistics never
// mix the two scales; see comps.Aggregate.
func (c *Comparable) Value() *float64 {
	if c.Kind == property.KindSale {
		return c.SalePrice
	}
	return c.AssessedValue
}

// SqFtAnalysis is the per-square-foot sub-analysis over assessment
// comparables.  Present only when at least three of them carry positive size
// and value data.
type SqFtAnalysis struct {
	SubjectValuePerSqFt float64 `json:"subject_value_per_sqft"`
	MedianValuePerSqFt  float64 `json:"median_value_per_sqft"`
	AverageValuePerSqFt float64 `json:"average_value_per_sqft"`
	PercentDifference   float64 `json:"percent_difference"`
	ImpliedFairValue    float64 `json:"implied_fair_value"`
	OvervaluedBy        float64 `json:"overvalued_by"`
}

// SalesAnalysis is the market-sale sub-analysis.  Present only when at least
// three qualifying sale comparables exist.
type SalesAnalysis struct {
	MedianSalePrice     float64 `json:"median_sale_price"`
	AverageSalePrice    float64 `json:"average_sale_price"`
	MedianPricePerSqFt  float64 `json:"median_price_per_sqft"`
	ImpliedMarketValue  float64 `json:"implied_market_value"`
	AssessmentSalesGap  float64 `json:"assessment_sales_gap"`
	OvervaluedByPercent float64 `json:"overvalued_by_percent"`
	SampleSize          int     `json:"sample_size"`
}

// AppealGround is a tag naming one basis for an appeal.
type AppealGround string

const (
	GroundComparableSales   AppealGround = "comparable_sales"
	GroundExcessiveIncrease AppealGround = "excessive_increase"
	GroundDramaticIncrease  AppealGround = "dramatic_increase"
	GroundValuePerSqFt      AppealGround = "value_per_sqft"
	GroundMarketSales       AppealGround = "market_sales"
)

// ConfidenceTier grades how well-supported the opportunity assessment is.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// OpportunityAnalysis is the quantified appeal-opportunity assessment.
type OpportunityAnalysis struct {
	OpportunityScore       int            `json:"opportunity_score"`
	EstimatedOvervaluation float64        `json:"estimated_overvaluation"`
	EstimatedTaxSavings    float64        `json:"estimated_tax_savings"`
	MedianComparableValue  float64        `json:"median_comparable_value"`
	AverageComparableValue float64        `json:"average_comparable_value"`
	ComparableCount        int            `json:"comparable_count"`
	SqFt                   *SqFtAnalysis  `json:"sqft_analysis,omitempty"`
	Sales                  *SalesAnalysis `json:"sales_analysis,omitempty"`
	AppealGrounds          []AppealGround `json:"appeal_grounds"`
	Confidence             ConfidenceTier `json:"confidence"`
}

// AppealAnalysis is the persisted record of one completed analysis run.
type AppealAnalysis struct {
	ID          uuid.UUID            `json:"id"`
	PIN         string               `json:"pin"`
	Limit       int                  `json:"limit"`
	Comparables []Comparable         `json:"comparables"`
	Opportunity *OpportunityAnalysis `json:"opportunity"`
	CreatedAt   time.Time            `json:"created_at"`
}
