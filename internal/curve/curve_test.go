package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSortsByIncidence(t *testing.T) {
	c, err := New([]Point{
		{Incidence: 60, Deviation: 40},
		{Incidence: 50, Deviation: 42},
		{Incidence: 70, Deviation: 45},
	})
	require.NoError(t, err)

	lo, hi := c.Span()
	assert.Equal(t, 50.0, lo)
	assert.Equal(t, 70.0, hi)
	assert.Equal(t, 40.0, c.MinDeviation())
}

func TestNewRejectsBadPoints(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{"empty", nil},
		{"out of domain", []Point{{Incidence: 90, Deviation: 40}}},
		{"negative incidence", []Point{{Incidence: -1, Deviation: 40}}},
		{"duplicate incidence", []Point{
			{Incidence: 50, Deviation: 40},
			{Incidence: 50, Deviation: 41},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.points)
			assert.Error(t, err)
		})
	}
}
