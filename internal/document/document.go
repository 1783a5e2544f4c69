package document

import (
	"errors"
	"strings"
	"sync"
	"time"

	"mechmap/backend/internal/hexgrid"

	"github.com/google/uuid"
)

// DefaultFillColor is the color of an unpainted hex. Erasing a hex resets it
// to this value instead of removing the entry.
const DefaultFillColor = "lightgray"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnitNotFound = errors.New("unit not found")
)

// Cell holds the paint state of a single hex.
type Cell struct {
	FillColor string `json:"fillColor"`
}

// Endpoint is one end of a measured line.
type Endpoint struct {
	Q   int    `json:"q"`
	R   int    `json:"r"`
	Key string `json:"key"`
}

// Line is a measured annotation between two hexes. Distance is computed once
// when the line is created and stored, never recomputed.
type Line struct {
	Start    Endpoint `json:"start"`
	End      Endpoint `json:"end"`
	Distance int      `json:"distance"`
	Color    string   `json:"color"`
}

// Unit is a named marker placed on a hex. Identity is stable across moves.
type Unit struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Color       string     `json:"color"`
	Icon        string     `json:"icon,omitempty"`
	HexKey      string     `json:"hex_key"`
	Description string     `json:"description,omitempty"`
	GroupedWith string     `json:"grouped_with,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	MovedBy     string     `json:"moved_by,omitempty"`
	MovedAt     *time.Time `json:"moved_at,omitempty"`
}

// Mutation describes one applied change, delivered to subscribers after the
// store has been updated. Op names match the broadcast event vocabulary.
type Mutation struct {
	Op   string
	Data any
}

// EraseResult is the compound outcome of erasing a hex: the reset cell plus
// the full surviving line list. Receivers apply both in one step.
type EraseResult struct {
	HexKey string `json:"hex_key"`
	Lines  []Line `json:"lines"`
}

// MoveResult carries a unit move to receivers.
type MoveResult struct {
	UnitID    string `json:"unit_id"`
	NewHexKey string `json:"new_hex_key"`
}

// Store is the shared document of one room: cells, lines and units. It is
// written only by the room's actor goroutine; the mutex exists so overlay
// viewers can take snapshots concurrently with writes.
type Store struct {
	mu      sync.RWMutex
	cols    int
	rows    int
	cells   map[string]Cell
	lines   []Line
	units   []Unit
	version int64

	subMu   sync.Mutex
	subs    map[int]func(Mutation)
	nextSub int
}

// NewStore creates an empty document for a cols x rows grid.
func NewStore(cols, rows int) *Store {
	return &Store{
		cols:  cols,
		rows:  rows,
		cells: make(map[string]Cell),
		lines: make([]Line, 0),
		units: make([]Unit, 0),
		subs:  make(map[int]func(Mutation)),
	}
}

// Subscribe registers an observer that is invoked, in apply order, after each
// mutation. It returns an id for Unsubscribe.
func (s *Store) Subscribe(fn func(Mutation)) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return id
}

func (s *Store) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subs, id)
}

func (s *Store) publish(m Mutation) {
	s.subMu.Lock()
	fns := make([]func(Mutation), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// Version returns the number of mutations applied since creation.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetCellColor is an idempotent upsert; the last applied write wins.
func (s *Store) SetCellColor(hexKey, fillColor string) error {
	if _, err := hexgrid.ParseKey(hexKey); err != nil {
		return ErrInvalidInput
	}
	if fillColor == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	s.cells[hexKey] = Cell{FillColor: fillColor}
	s.version++
	s.mu.Unlock()

	s.publish(Mutation{Op: "hex_updated", Data: map[string]string{"hex_key": hexKey, "fill_color": fillColor}})
	return nil
}

// EraseCell resets the hex to the default color and removes every line that
// starts or ends on it. The two effects are applied atomically and reported
// as a single compound result.
func (s *Store) EraseCell(hexKey string) (EraseResult, error) {
	if _, err := hexgrid.ParseKey(hexKey); err != nil {
		return EraseResult{}, ErrInvalidInput
	}

	s.mu.Lock()
	s.cells[hexKey] = Cell{FillColor: DefaultFillColor}
	kept := s.lines[:0]
	for _, line := range s.lines {
		if line.Start.Key != hexKey && line.End.Key != hexKey {
			kept = append(kept, line)
		}
	}
	s.lines = kept
	s.version++
	result := EraseResult{HexKey: hexKey, Lines: copyLines(s.lines)}
	s.mu.Unlock()

	s.publish(Mutation{Op: "hex_erased", Data: result})
	return result, nil
}

// AddLine appends a measured line. Zero-length lines and endpoints outside
// the grid are rejected; duplicates are allowed.
func (s *Store) AddLine(startKey, endKey, color string) (Line, error) {
	start, err := hexgrid.ParseKey(startKey)
	if err != nil {
		return Line{}, ErrInvalidInput
	}
	end, err := hexgrid.ParseKey(endKey)
	if err != nil {
		return Line{}, ErrInvalidInput
	}
	if start == end {
		return Line{}, ErrInvalidInput
	}
	if !hexgrid.InBounds(start, s.cols, s.rows) || !hexgrid.InBounds(end, s.cols, s.rows) {
		return Line{}, ErrInvalidInput
	}

	line := Line{
		Start:    Endpoint{Q: start.Q, R: start.R, Key: start.Key()},
		End:      Endpoint{Q: end.Q, R: end.R, Key: end.Key()},
		Distance: hexgrid.Distance(start, end),
		Color:    color,
	}

	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.version++
	s.mu.Unlock()

	s.publish(Mutation{Op: "line_added", Data: line})
	return line, nil
}

// AddUnit places a new unit and assigns it a server-side id.
func (s *Store) AddUnit(name, color, icon, hexKey, createdBy string) (Unit, error) {
	if strings.TrimSpace(name) == "" {
		return Unit{}, ErrInvalidInput
	}
	if _, err := hexgrid.ParseKey(hexKey); err != nil {
		return Unit{}, ErrInvalidInput
	}

	unit := Unit{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Color:     color,
		Icon:      icon,
		HexKey:    hexKey,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.units = append(s.units, unit)
	s.version++
	s.mu.Unlock()

	s.publish(Mutation{Op: "unit_added", Data: unit})
	return unit, nil
}

// MoveUnit updates the unit's hex in place; the record keeps its identity.
func (s *Store) MoveUnit(unitID, newHexKey, movedBy string) (Unit, error) {
	if _, err := hexgrid.ParseKey(newHexKey); err != nil {
		return Unit{}, ErrInvalidInput
	}

	s.mu.Lock()
	idx := s.findUnit(unitID)
	if idx < 0 {
		s.mu.Unlock()
		return Unit{}, ErrUnitNotFound
	}
	now := time.Now()
	s.units[idx].HexKey = newHexKey
	s.units[idx].MovedBy = movedBy
	s.units[idx].MovedAt = &now
	s.version++
	unit := s.units[idx]
	s.mu.Unlock()

	s.publish(Mutation{Op: "unit_moved", Data: MoveResult{UnitID: unit.ID, NewHexKey: newHexKey}})
	return unit, nil
}

// DeleteUnit removes the record. Nothing else cascades.
func (s *Store) DeleteUnit(unitID string) (Unit, error) {
	s.mu.Lock()
	idx := s.findUnit(unitID)
	if idx < 0 {
		s.mu.Unlock()
		return Unit{}, ErrUnitNotFound
	}
	unit := s.units[idx]
	s.units = append(s.units[:idx], s.units[idx+1:]...)
	s.version++
	s.mu.Unlock()

	s.publish(Mutation{Op: "unit_deleted", Data: unit})
	return unit, nil
}

// SetUnitDescription replaces the unit's free-form description.
func (s *Store) SetUnitDescription(unitID, text string) (Unit, error) {
	s.mu.Lock()
	idx := s.findUnit(unitID)
	if idx < 0 {
		s.mu.Unlock()
		return Unit{}, ErrUnitNotFound
	}
	s.units[idx].Description = text
	s.version++
	unit := s.units[idx]
	s.mu.Unlock()

	s.publish(Mutation{Op: "unit_described", Data: unit})
	return unit, nil
}

// GroupUnit links the unit to another one (empty groupedWith clears the link).
func (s *Store) GroupUnit(unitID, groupedWith string) (Unit, error) {
	s.mu.Lock()
	idx := s.findUnit(unitID)
	if idx < 0 {
		s.mu.Unlock()
		return Unit{}, ErrUnitNotFound
	}
	if groupedWith != "" && s.findUnit(groupedWith) < 0 {
		s.mu.Unlock()
		return Unit{}, ErrUnitNotFound
	}
	s.units[idx].GroupedWith = groupedWith
	s.version++
	unit := s.units[idx]
	s.mu.Unlock()

	s.publish(Mutation{Op: "unit_grouped", Data: unit})
	return unit, nil
}

// Replace substitutes all three collections at once. Bulk imports go through
// here so the room sees one event instead of thousands of deltas.
func (s *Store) Replace(cells map[string]Cell, lines []Line, units []Unit) {
	if cells == nil {
		cells = map[string]Cell{}
	}

	s.mu.Lock()
	s.cells = make(map[string]Cell, len(cells))
	for k, v := range cells {
		s.cells[k] = v
	}
	s.lines = copyLines(lines)
	s.units = copyUnits(units)
	s.version++
	snapshot := map[string]any{
		"hex_data": s.copyCellsLocked(),
		"lines":    copyLines(s.lines),
		"units":    copyUnits(s.units),
	}
	s.mu.Unlock()

	s.publish(Mutation{Op: "map_imported", Data: snapshot})
}

// Snapshot returns deep copies of all three collections.
func (s *Store) Snapshot() (map[string]Cell, []Line, []Unit) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyCellsLocked(), copyLines(s.lines), copyUnits(s.units)
}

func (s *Store) findUnit(id string) int {
	for i := range s.units {
		if s.units[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyCellsLocked() map[string]Cell {
	cells := make(map[string]Cell, len(s.cells))
	for k, v := range s.cells {
		cells[k] = v
	}
	return cells
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func copyUnits(units []Unit) []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}
