// Package appeal orchestrates the end-to-end appeal analysis: subject
// loading, concurrent candidate sourcing, comparable matching, opportunity
// scoring, and result persistence.
package appeal

import (
	"context"
	"fmt"
	"time"

	"github.com/parcelworks/appealengine/internal/domain/property"
	"github.com/parcelworks/appealengine/internal/infrastructure/opendata"
	"github.com/parcelworks/appealengine/internal/intelligence/comps"
	apperrors "github.com/parcelworks/appealengine/pkg/errors"
)

// Portal field names for the assessment and sales datasets.
const (
	fieldPIN           = "pin"
	fieldClass         = "class"
	fieldTownship      = "township_code"
	fieldNeighborhood  = "nbhd"
	fieldBedrooms      = "char_beds"
	fieldUnitSqFt      = "char_unit_sf"
	fieldBuildingSqFt  = "char_building_sf"
	fieldProrationRate = "tieback_proration_rate"
	fieldYearBuilt     = "char_yrblt"
	fieldAssessedTotal = "certified_tot"
	fieldPriorTotal    = "prior_far_tot"

	fieldSaleDate        = "sale_date"
	fieldSalePrice       = "sale_price"
	fieldMultiSale       = "is_multisale"
	fieldFilterUnder10k  = "sale_filter_less_than_10k"
	fieldFilterDeedType  = "sale_filter_deed_type"
	fieldFilterResale365 = "sale_filter_same_sale_within_365"
)

// yearBandWidth is the +/- construction-year window for the age-band source.
const yearBandWidth = 10

// CandidateSource fetches one independent pool of comparable candidates.
// A source failure is reported to the caller but is never fatal to the
// analysis; the pool builder tolerates an empty contribution.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context, subject *property.SubjectProperty, limit int) ([]property.CandidateRecord, error)
}

// portalFetcher is the slice of the open-data client the sources need.
type portalFetcher interface {
	Fetch(ctx context.Context, q opendata.Query) ([]opendata.Record, error)
}

// assessedFromRecord maps a raw assessment row into a candidate, deriving the
// same-building flag and falling back to prorated building size when the unit
// size is absent.
func assessedFromRecord(rec opendata.Record, subject *property.SubjectProperty) *property.AssessedComparable {
	pin := property.PIN(rec.Get(fieldPIN))

	sqft := comps.ParseOptionalFloat(rec.Get(fieldUnitSqFt))
	if sqft == nil || *sqft <= 0 {
		sqft = comps.EstimateUnitSqFt(
			comps.ParseOptionalFloat(rec.Get(fieldBuildingSqFt)),
			comps.ParseOptionalFloat(rec.Get(fieldProrationRate)),
		)
	}

	return &property.AssessedComparable{
		Parcel:        pin,
		ClassCode:     rec.Get(fieldClass),
		TownshipCode:  rec.Get(fieldTownship),
		Neighborhood:  rec.Get(fieldNeighborhood),
		BedroomCount:  comps.ParseOptionalInt(rec.Get(fieldBedrooms)),
		SqFt:          sqft,
		BuiltYear:     comps.ParseOptionalInt(rec.Get(fieldYearBuilt)),
		AssessedValue: comps.ParseOptionalFloat(rec.Get(fieldAssessedTotal)),
		SameBuilding:  subject.PIN.SameBuilding(pin),
	}
}

// saleFromRecord maps a raw sales row into a candidate.
func saleFromRecord(rec opendata.Record) *property.SaleComparable {
	var saleDate time.Time
	if raw := rec.Get(fieldSaleDate); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			saleDate = t
		} else if t, err := time.Parse("2006-01-02T15:04:05.000", raw); err == nil {
			saleDate = t
		}
	}

	return &property.SaleComparable{
		Parcel:            property.PIN(rec.Get(fieldPIN)),
		SaleDate:          saleDate,
		SalePrice:         comps.ParseOptionalFloat(rec.Get(fieldSalePrice)),
		BedroomCount:      comps.ParseOptionalInt(rec.Get(fieldBedrooms)),
		SqFt:              comps.ParseOptionalFloat(rec.Get(fieldUnitSqFt)),
		BuiltYear:         comps.ParseOptionalInt(rec.Get(fieldYearBuilt)),
		Neighborhood:      rec.Get(fieldNeighborhood),
		MultiParcelSale:   comps.BoolFlag(rec.Get(fieldMultiSale)),
		UnderTenThousand:  comps.BoolFlag(rec.Get(fieldFilterUnder10k)),
		NonArmsLengthDeed: comps.BoolFlag(rec.Get(fieldFilterDeedType)),
		RecentResale:      comps.BoolFlag(rec.Get(fieldFilterResale365)),
	}
}

// sameBuildingSource pulls units sharing the subject's building prefix.
// Only meaningful for condo subjects; it returns nothing otherwise.
type sameBuildingSource struct {
	portal  portalFetcher
	dataset string
}

// NewSameBuildingSource constructs the same-building condo source.
func NewSameBuildingSource(portal portalFetcher, dataset string) CandidateSource {
	return &sameBuildingSource{portal: portal, dataset: dataset}
}

func (s *sameBuildingSource) Name() string { return "same_building" }

func (s *sameBuildingSource) Fetch(ctx context.Context, subject *property.SubjectProperty, limit int) ([]property.CandidateRecord, error) {
	if !subject.IsCondo() {
		return nil, nil
	}
	records, err := s.portal.Fetch(ctx, opendata.Query{
		Dataset: s.dataset,
		Where: fmt.Sprintf("starts_with(pin, '%s') AND pin != '%s'",
			subject.PIN.BuildingPrefix(), subject.PIN),
		Order: "year DESC",
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return mapAssessed(records, subject), nil
}

// townshipBedroomsSource pulls same-class parcels in the subject's township
// with a matching bedroom count.
type townshipBedroomsSource struct {
	portal  portalFetcher
	dataset string
}

// NewTownshipBedroomsSource constructs the township + bedrooms source.
func NewTownshipBedroomsSource(portal portalFetcher, dataset string) CandidateSource {
	return &townshipBedroomsSource{portal: portal, dataset: dataset}
}

func (s *townshipBedroomsSource) Name() string { return "township_bedrooms" }

func (s *townshipBedroomsSource) Fetch(ctx context.Context, subject *property.SubjectProperty, limit int) ([]property.CandidateRecord, error) {
	if subject.TownshipCode == "" || subject.Bedrooms == nil {
		return nil, nil
	}
	records, err := s.portal.Fetch(ctx, opendata.Query{
		Dataset: s.dataset,
		Where: fmt.Sprintf("township_code = '%s' AND class = '%s' AND char_beds = %d AND pin != '%s'",
			subject.TownshipCode, subject.ClassCode, *subject.Bedrooms, subject.PIN),
		Order: "year DESC",
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return mapAssessed(records, subject), nil
}

// townshipAgeSource pulls same-class parcels in the subject's township built
// within yearBandWidth years of the subject.
type townshipAgeSource struct {
	portal  portalFetcher
	dataset string
}

// NewTownshipAgeSource constructs the township + age-band source.
func NewTownshipAgeSource(portal portalFetcher, dataset string) CandidateSource {
	return &townshipAgeSource{portal: portal, dataset: dataset}
}

func (s *townshipAgeSource) Name() string { return "township_age" }

func (s *townshipAgeSource) Fetch(ctx context.Context, subject *property.SubjectProperty, limit int) ([]property.CandidateRecord, error) {
	if subject.TownshipCode == "" || subject.YearBuilt == nil {
		return nil, nil
	}
	records, err := s.portal.Fetch(ctx, opendata.Query{
		Dataset: s.dataset,
		Where: fmt.Sprintf("township_code = '%s' AND class = '%s' AND char_yrblt between %d and %d AND pin != '%s'",
			subject.TownshipCode, subject.ClassCode,
			*subject.YearBuilt-yearBandWidth, *subject.YearBuilt+yearBandWidth, subject.PIN),
		Order: "year DESC",
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return mapAssessed(records, subject), nil
}

// armsLengthSalesSource pulls recent market sales in the subject's township.
// The arm's-length screening flags come back with each row; disqualified
// sales are excluded later by the hard filter.
type armsLengthSalesSource struct {
	portal  portalFetcher
	dataset string
}

// NewArmsLengthSalesSource constructs the market-sales source.
func NewArmsLengthSalesSource(portal portalFetcher, dataset string) CandidateSource {
	return &armsLengthSalesSource{portal: portal, dataset: dataset}
}

func (s *armsLengthSalesSource) Name() string { return "arms_length_sales" }

func (s *armsLengthSalesSource) Fetch(ctx context.Context, subject *property.SubjectProperty, limit int) ([]property.CandidateRecord, error) {
	if subject.TownshipCode == "" {
		return nil, nil
	}
	records, err := s.portal.Fetch(ctx, opendata.Query{
		Dataset: s.dataset,
		Where: fmt.Sprintf("township_code = '%s' AND class = '%s' AND pin != '%s'",
			subject.TownshipCode, subject.ClassCode, subject.PIN),
		Order: "sale_date DESC",
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]property.CandidateRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, saleFromRecord(rec))
	}
	return out, nil
}

func mapAssessed(records []opendata.Record, subject *property.SubjectProperty) []property.CandidateRecord {
	out := make([]property.CandidateRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, assessedFromRecord(rec, subject))
	}
	return out
}

// SubjectLoader fetches a subject property snapshot from the portal when the
// local store has never seen the parcel.
type SubjectLoader struct {
	portal  portalFetcher
	dataset string
}

// NewSubjectLoader constructs the portal-backed subject loader.
func NewSubjectLoader(portal portalFetcher, dataset string) *SubjectLoader {
	return &SubjectLoader{portal: portal, dataset: dataset}
}

// Load fetches the most recent assessment row for pin.
func (l *SubjectLoader) Load(ctx context.Context, pin property.PIN) (*property.SubjectProperty, error) {
	records, err := l.portal.Fetch(ctx, opendata.Query{
		Dataset: l.dataset,
		Where:   fmt.Sprintf("pin = '%s'", pin),
		Order:   "year DESC",
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.Newf(apperrors.ErrCodePropertyNotFound, "no assessment records for pin %s", pin)
	}

	rec := records[0]
	sqft := comps.ParseOptionalFloat(rec.Get(fieldUnitSqFt))
	if sqft == nil || *sqft <= 0 {
		sqft = comps.EstimateUnitSqFt(
			comps.ParseOptionalFloat(rec.Get(fieldBuildingSqFt)),
			comps.ParseOptionalFloat(rec.Get(fieldProrationRate)),
		)
	}

	return &property.SubjectProperty{
		PIN:                pin,
		ClassCode:          rec.Get(fieldClass),
		TownshipCode:       rec.Get(fieldTownship),
		NeighborhoodCode:   rec.Get(fieldNeighborhood),
		SquareFeet:         sqft,
		Bedrooms:           comps.ParseOptionalInt(rec.Get(fieldBedrooms)),
		YearBuilt:          comps.ParseOptionalInt(rec.Get(fieldYearBuilt)),
		AssessedValue:      comps.ParseOptionalFloat(rec.Get(fieldAssessedTotal)),
		PriorAssessedValue: comps.ParseOptionalFloat(rec.Get(fieldPriorTotal)),
	}, nil
}
