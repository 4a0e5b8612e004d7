package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePIN(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    PIN
		wantErr bool
	}{
		{name: "plain digits", raw: "14081020180000", want: PIN("14081020180000")},
		{name: "dashed format", raw: "14-08-102-018-0000", want: PIN("14081020180000")},
		{name: "surrounding whitespace", raw: " 14081020180000 ", want: PIN("14081020180000")},
		{name: "too short", raw: "1408102018", wantErr: true},
		{name: "too long", raw: "140810201800001", wantErr: true},
		{name: "non-digit", raw: "1408102018000X", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePIN(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPIN_BuildingPrefix(t *testing.T) {
	assert.Equal(t, "1408102018", PIN("14081020181001").BuildingPrefix())
}

func TestPIN_SameBuilding(t *testing.T) {
	unit1 := PIN("14081020181001")
	unit2 := PIN("14081020181002")
	other := PIN("14081030181001")

	assert.True(t, unit1.SameBuilding(unit2))
	assert.False(t, unit1.SameBuilding(other))
	// A parcel is not its own comparable.
	assert.False(t, unit1.SameBuilding(unit1))
}

func TestSubjectProperty_IsCondo(t *testing.T) {
	assert.True(t, (&SubjectProperty{ClassCode: "299"}).IsCondo())
	assert.True(t, (&SubjectProperty{ClassCode: "399"}).IsCondo())
	assert.False(t, (&SubjectProperty{ClassCode: "203"}).IsCondo())
	assert.False(t, (&SubjectProperty{}).IsCondo())
}

func TestSubjectProperty_YoYChangePercent(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	t.Run("derived from both values", func(t *testing.T) {
		s := &SubjectProperty{AssessedValue: f(120000), PriorAssessedValue: f(100000)}
		got := s.YoYChangePercent()
		require.NotNil(t, got)
		assert.InDelta(t, 20.0, *got, 1e-9)
	})

	t.Run("decrease is negative", func(t *testing.T) {
		s := &SubjectProperty{AssessedValue: f(90000), PriorAssessedValue: f(100000)}
		got := s.YoYChangePercent()
		require.NotNil(t, got)
		assert.InDelta(t, -10.0, *got, 1e-9)
	})

	t.Run("nil when prior missing", func(t *testing.T) {
		s := &SubjectProperty{AssessedValue: f(120000)}
		assert.Nil(t, s.YoYChangePercent())
	})

	t.Run("nil when prior non-positive", func(t *testing.T) {
		s := &SubjectProperty{AssessedValue: f(120000), PriorAssessedValue: f(0)}
		assert.Nil(t, s.YoYChangePercent())
	})
}

func TestSaleComparable_ArmsLength(t *testing.T) {
	clean := &SaleComparable{}
	assert.True(t, clean.ArmsLength())

	assert.False(t, (&SaleComparable{MultiParcelSale: true}).ArmsLength())
	assert.False(t, (&SaleComparable{UnderTenThousand: true}).ArmsLength())
	assert.False(t, (&SaleComparable{NonArmsLengthDeed: true}).ArmsLength())
	assert.False(t, (&SaleComparable{RecentResale: true}).ArmsLength())
}
