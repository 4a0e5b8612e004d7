package property

import "time"

// Kind discriminates the two comparable variants.
type Kind string

const (
	KindAssessment Kind = "assessment"
	KindSale       Kind = "sale"
)

// CandidateRecord is a potential comparable for a subject property.  The two
// implementations, AssessedComparable and SaleComparable, share the attribute
// surface the matching engine needs; variant-specific behavior (scoring
// weights, value semantics) is selected via Kind.
type CandidateRecord interface {
	// PIN returns the candidate's parcel identifier.
	PIN() PIN

	// Kind identifies the comparable variant.
	Kind() Kind

	// Bedrooms returns the bedroom count, or nil when unknown.
	Bedrooms() *int

	// SquareFeet returns the unit square footage, or nil when unknown.
	SquareFeet() *float64

	// YearBuilt returns the construction year, or nil when unknown.
	YearBuilt() *int

	// NeighborhoodCode returns the assessor neighborhood code, possibly empty.
	NeighborhoodCode() string

	// MarketValue returns the value evidence this record carries: the assessed
	// value for an assessment comparable, the sale price for a sale
	// comparable.  Nil means the record carries no usable value.
	MarketValue() *float64
}

// AssessedComparable is a comparable drawn from the assessment roll.
type AssessedComparable struct {
	Parcel        PIN
	ClassCode     string
	TownshipCode  string
	Neighborhood  string
	BedroomCount  *int
	SqFt          *float64
	BuiltYear     *int
	AssessedValue *float64

	// SameBuilding is derived at construction from the building prefix of the
	// subject's PIN.
	SameBuilding bool
}

func (a *AssessedComparable) PIN() PIN                 { return a.Parcel }
func (a *AssessedComparable) Kind() Kind               { return KindAssessment }
func (a *AssessedComparable) Bedrooms() *int           { return a.BedroomCount }
func (a *AssessedComparable) SquareFeet() *float64     { return a.SqFt }
func (a *AssessedComparable) YearBuilt() *int          { return a.BuiltYear }
func (a *AssessedComparable) NeighborhoodCode() string { return a.Neighborhood }
func (a *AssessedComparable) MarketValue() *float64    { return a.AssessedValue }

// SaleComparable is a comparable drawn from recorded sale transactions.
type SaleComparable struct {
	Parcel       PIN
	SaleDate     time.Time
	SalePrice    *float64
	BedroomCount *int
	SqFt         *float64
	BuiltYear    *int
	Neighborhood string

	// Arm's-length screening flags.  Any true flag disqualifies the sale as
	// market evidence.
	MultiParcelSale   bool
	UnderTenThousand  bool
	NonArmsLengthDeed bool
	RecentResale      bool
}

func (s *SaleComparable) PIN() PIN                 { return s.Parcel }
func (s *SaleComparable) Kind() Kind               { return KindSale }
func (s *SaleComparable) Bedrooms() *int           { return s.BedroomCount }
func (s *SaleComparable) SquareFeet() *float64     { return s.SqFt }
func (s *SaleComparable) YearBuilt() *int          { return s.BuiltYear }
func (s *SaleComparable) NeighborhoodCode() string { return s.Neighborhood }
func (s *SaleComparable) MarketValue() *float64    { return s.SalePrice }

// ArmsLength reports whether the sale passes every market-evidence screen.
func (s *SaleComparable) ArmsLength() bool {
	return !s.MultiParcelSale && !s.UnderTenThousand && !s.NonArmsLengthDeed && !s.RecentResale
}
