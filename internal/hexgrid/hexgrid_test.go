package hexgrid_test

import (
	"testing"

	"mechmap/backend/internal/hexgrid"

	"github.com/stretchr/testify/assert"
)

func TestCoordKeyRoundTrip(t *testing.T) {
	coords := []hexgrid.Coord{
		{Q: 0, R: 0},
		{Q: 5, R: 3},
		{Q: -2, R: 7},
		{Q: 12, R: -4},
	}
	for _, c := range coords {
		parsed, err := hexgrid.ParseKey(c.Key())
		assert.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestParseKey_AcceptsWhitespace(t *testing.T) {
	c, err := hexgrid.ParseKey("3, 4")
	assert.NoError(t, err)
	assert.Equal(t, hexgrid.Coord{Q: 3, R: 4}, c)
}

func TestParseKey_Invalid(t *testing.T) {
	bad := []string{"", "3", "3,4,5", "a,b", "3;4", "3,"}
	for _, key := range bad {
		_, err := hexgrid.ParseKey(key)
		assert.Error(t, err, "key %q should be rejected", key)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b     hexgrid.Coord
		expected int
	}{
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: 0, R: 0}, 0},
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: 1, R: 0}, 1},
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: 0, R: 1}, 1},
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: 1, R: -1}, 1},
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: 3, R: 0}, 3},
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: 2, R: 2}, 4},
		{hexgrid.Coord{Q: 1, R: 1}, hexgrid.Coord{Q: 4, R: 5}, 7},
		{hexgrid.Coord{Q: 0, R: 0}, hexgrid.Coord{Q: -3, R: 3}, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, hexgrid.Distance(tt.a, tt.b))
		// Distance is symmetric.
		assert.Equal(t, tt.expected, hexgrid.Distance(tt.b, tt.a))
	}
}

func TestInBounds(t *testing.T) {
	assert.True(t, hexgrid.InBounds(hexgrid.Coord{Q: 0, R: 0}, 10, 10))
	assert.True(t, hexgrid.InBounds(hexgrid.Coord{Q: 9, R: 9}, 10, 10))
	assert.False(t, hexgrid.InBounds(hexgrid.Coord{Q: 10, R: 0}, 10, 10))
	assert.False(t, hexgrid.InBounds(hexgrid.Coord{Q: 0, R: 10}, 10, 10))
	assert.False(t, hexgrid.InBounds(hexgrid.Coord{Q: -1, R: 5}, 10, 10))
}
