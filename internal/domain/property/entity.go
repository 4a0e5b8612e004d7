// Package property defines the core domain entities for subject properties
// and comparable candidates.
package property

import (
	"fmt"
	"strings"
)

// PIN is a 14-digit parcel identification number.  The first ten digits
// identify the building for condominium parcels; the trailing four identify
// the unit.
type PIN string

// ParsePIN validates and normalizes a raw parcel identifier.  Dashes and
// surrounding whitespace are stripped; the result must be exactly 14 digits.
func ParsePIN(raw string) (PIN, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	if len(s) != 14 {
		return "", fmt.Errorf("property: pin %q must be 14 digits, got %d", raw, len(s))
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("property: pin %q contains non-digit character %q", raw, r)
		}
	}
	return PIN(s), nil
}

func (p PIN) String() string { return string(p) }

// BuildingPrefix returns the 10-digit building portion of the PIN.
func (p PIN) BuildingPrefix() string {
	if len(p) < 10 {
		return string(p)
	}
	return string(p[:10])
}

// SameBuilding reports whether two parcels share a building prefix.
func (p PIN) SameBuilding(other PIN) bool {
	return p != other && p.BuildingPrefix() == other.BuildingPrefix()
}

// Condominium property-class codes.  Class 299 is a standard residential
// condominium unit; 399 is a condominium unit in a larger mixed building.
const (
	ClassCondo      = "299"
	ClassCondoLarge = "399"
)

// SubjectProperty is the property under appeal.  It is immutable once
// constructed for a given analysis request.  Nullable attributes use pointer
// types so that "missing" never collapses into a zero value.
type SubjectProperty struct {
	PIN                PIN      `json:"pin"`
	ClassCode          string   `json:"class_code"`
	TownshipCode       string   `json:"township_code"`
	NeighborhoodCode   string   `json:"neighborhood_code"`
	SquareFeet         *float64 `json:"square_feet,omitempty"`
	Bedrooms           *int     `json:"bedrooms,omitempty"`
	YearBuilt          *int     `json:"year_built,omitempty"`
	AssessedValue      *float64 `json:"assessed_value,omitempty"`
	PriorAssessedValue *float64 `json:"prior_assessed_value,omitempty"`
}

// IsCondo reports whether the subject is a condominium-class parcel.
func (s *SubjectProperty) IsCondo() bool {
	return s.ClassCode == ClassCondo || s.ClassCode == ClassCondoLarge
}

// YoYChangePercent derives the year-over-year assessment change percent.
// Returns nil when either value is unknown or the prior value is non-positive.
func (s *SubjectProperty) YoYChangePercent() *float64 {
	if s.AssessedValue == nil || s.PriorAssessedValue == nil || *s.PriorAssessedValue <= 0 {
		return nil
	}
	pct := (*s.AssessedValue - *s.PriorAssessedValue) / *s.PriorAssessedValue * 100
	return &pct
}
