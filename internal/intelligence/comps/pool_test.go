package comps

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parcelworks/appealengine/internal/domain/property"
)

func assessed(pin string) *property.AssessedComparable {
	return &property.AssessedComparable{Parcel: property.PIN(pin), AssessedValue: ptr(100000)}
}

func TestBuildPool_DeduplicatesFirstSeenWins(t *testing.T) {
	first := assessed("14081020181001")
	first.AssessedValue = ptr(150000)
	dup := assessed("14081020181001")
	dup.AssessedValue = ptr(999999)

	pool := BuildPool(10,
		[]property.CandidateRecord{first},
		[]property.CandidateRecord{dup, assessed("14081020181002")},
	)

	assert.Len(t, pool, 2)
	assert.Same(t, first, pool[0].(*property.AssessedComparable))
}

func TestBuildPool_CapsAtThreeTimesLimit(t *testing.T) {
	var source []property.CandidateRecord
	for i := 0; i < 50; i++ {
		source = append(source, assessed(fmt.Sprintf("140810201810%02d", i)))
	}

	pool := BuildPool(5, source)
	assert.Len(t, pool, 15)
	// Order is preserved up to the cap.
	assert.Equal(t, source[0], pool[0])
	assert.Equal(t, source[14], pool[14])
}

func TestBuildPool_ToleratesEmptyAndNilSources(t *testing.T) {
	pool := BuildPool(10,
		nil,
		[]property.CandidateRecord{},
		[]property.CandidateRecord{nil, assessed("14081020181001")},
	)
	assert.Len(t, pool, 1)
}

func TestBuildPool_EmptyInputYieldsEmptyPool(t *testing.T) {
	assert.Empty(t, BuildPool(10))
}
