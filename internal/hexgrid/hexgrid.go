package hexgrid

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord is an axial hex-grid coordinate. Keys on the wire use the "q,r" form.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Key returns the canonical "q,r" encoding of the coordinate.
func (c Coord) Key() string {
	return strconv.Itoa(c.Q) + "," + strconv.Itoa(c.R)
}

// ParseKey decodes a "q,r" hex key back into a coordinate.
func ParseKey(key string) (Coord, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("invalid hex key %q", key)
	}
	q, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coord{}, fmt.Errorf("invalid hex key %q", key)
	}
	r, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coord{}, fmt.Errorf("invalid hex key %q", key)
	}
	return Coord{Q: q, R: r}, nil
}

// Distance returns the hex-grid distance between two axial coordinates:
// (|dq| + |dq+dr| + |dr|) / 2.
func Distance(a, b Coord) int {
	dq := b.Q - a.Q
	dr := b.R - a.R
	return (abs(dq) + abs(dq+dr) + abs(dr)) / 2
}

// InBounds reports whether the coordinate lies on a cols x rows grid.
func InBounds(c Coord, cols, rows int) bool {
	return c.Q >= 0 && c.Q < cols && c.R >= 0 && c.R < rows
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
