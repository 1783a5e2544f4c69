package storage

import (
	"log"
	"time"

	"mechmap/backend/internal/document"
	"mechmap/backend/internal/hexgrid"
	"mechmap/backend/internal/models"

	"gorm.io/gorm"
)

// UpsertHex records a painted hex. Storage is sparse: painting with the
// default color deletes the row instead.
func (s *Service) UpsertHex(roomID, hexKey, fillColor, updatedBy string) error {
	if fillColor == document.DefaultFillColor {
		return s.DB.Where("room_id = ? AND hex_key = ?", roomID, hexKey).
			Delete(&models.HexRecord{}).Error
	}

	var record models.HexRecord
	return s.DB.Where("room_id = ? AND hex_key = ?", roomID, hexKey).
		Assign(models.HexRecord{RoomID: roomID, HexKey: hexKey, FillColor: fillColor, UpdatedBy: updatedBy}).
		FirstOrCreate(&record).Error
}

// EraseHex видаляє рядок гекса (колір за замовчуванням не зберігається).
func (s *Service) EraseHex(roomID, hexKey string) error {
	return s.DB.Where("room_id = ? AND hex_key = ?", roomID, hexKey).
		Delete(&models.HexRecord{}).Error
}

// AddLine зберігає нову лінію.
func (s *Service) AddLine(roomID string, line document.Line, addedBy string) error {
	record := models.LineRecord{
		RoomID:   roomID,
		StartKey: line.Start.Key,
		EndKey:   line.End.Key,
		Distance: line.Distance,
		Color:    line.Color,
		AddedBy:  addedBy,
	}
	return s.DB.Create(&record).Error
}

// DeleteLinesByHex removes every line touching the hex, mirroring the erase
// cascade in the document store.
func (s *Service) DeleteLinesByHex(roomID, hexKey string) error {
	return s.DB.Where("room_id = ? AND (start_key = ? OR end_key = ?)", roomID, hexKey, hexKey).
		Delete(&models.LineRecord{}).Error
}

// SaveUnit створює або оновлює юніт.
func (s *Service) SaveUnit(roomID string, unit document.Unit) error {
	var record models.UnitRecord
	assign := models.UnitRecord{
		RoomID:      roomID,
		UnitID:      unit.ID,
		Name:        unit.Name,
		Color:       unit.Color,
		Icon:        unit.Icon,
		HexKey:      unit.HexKey,
		Description: unit.Description,
		GroupedWith: unit.GroupedWith,
		CreatedBy:   unit.CreatedBy,
		PlacedAt:    unit.CreatedAt,
		MovedBy:     unit.MovedBy,
		MovedAt:     unit.MovedAt,
	}
	return s.DB.Where("room_id = ? AND unit_id = ?", roomID, unit.ID).
		Assign(assign).
		FirstOrCreate(&record).Error
}

// DeleteUnit видаляє юніт.
func (s *Service) DeleteUnit(roomID, unitID string) error {
	return s.DB.Where("room_id = ? AND unit_id = ?", roomID, unitID).
		Delete(&models.UnitRecord{}).Error
}

// LoadRoomState відновлює повний вміст кімнати з бази даних.
func (s *Service) LoadRoomState(roomID string) (map[string]document.Cell, []document.Line, []document.Unit, error) {
	var hexRecords []models.HexRecord
	if err := s.DB.Where("room_id = ?", roomID).Find(&hexRecords).Error; err != nil {
		log.Printf("ERROR: Failed to load hexes for room %s: %v", roomID, err)
		return nil, nil, nil, err
	}
	cells := make(map[string]document.Cell, len(hexRecords))
	for _, record := range hexRecords {
		cells[record.HexKey] = document.Cell{FillColor: record.FillColor}
	}

	var lineRecords []models.LineRecord
	if err := s.DB.Where("room_id = ?", roomID).Order("created_at ASC").Find(&lineRecords).Error; err != nil {
		log.Printf("ERROR: Failed to load lines for room %s: %v", roomID, err)
		return nil, nil, nil, err
	}
	lines := make([]document.Line, 0, len(lineRecords))
	for _, record := range lineRecords {
		lines = append(lines, lineFromRecord(record))
	}

	var unitRecords []models.UnitRecord
	if err := s.DB.Where("room_id = ?", roomID).Order("placed_at ASC").Find(&unitRecords).Error; err != nil {
		log.Printf("ERROR: Failed to load units for room %s: %v", roomID, err)
		return nil, nil, nil, err
	}
	units := make([]document.Unit, 0, len(unitRecords))
	for _, record := range unitRecords {
		units = append(units, document.Unit{
			ID:          record.UnitID,
			Name:        record.Name,
			Color:       record.Color,
			Icon:        record.Icon,
			HexKey:      record.HexKey,
			Description: record.Description,
			GroupedWith: record.GroupedWith,
			CreatedBy:   record.CreatedBy,
			CreatedAt:   record.PlacedAt,
			MovedBy:     record.MovedBy,
			MovedAt:     record.MovedAt,
		})
	}

	return cells, lines, units, nil
}

// ReplaceRoomState wholesale-replaces the room's content in one transaction,
// matching the atomic bulk-import semantics of the document store.
func (s *Service) ReplaceRoomState(roomID string, cells map[string]document.Cell, lines []document.Line, units []document.Unit, updatedBy string) error {
	now := time.Now()
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.HexRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.LineRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.UnitRecord{}).Error; err != nil {
			return err
		}

		for hexKey, cell := range cells {
			if cell.FillColor == document.DefaultFillColor || cell.FillColor == "" {
				continue // sparse storage
			}
			record := models.HexRecord{RoomID: roomID, HexKey: hexKey, FillColor: cell.FillColor, UpdatedBy: updatedBy}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		for _, line := range lines {
			record := models.LineRecord{
				RoomID:   roomID,
				StartKey: line.Start.Key,
				EndKey:   line.End.Key,
				Distance: line.Distance,
				Color:    line.Color,
				AddedBy:  updatedBy,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		for _, unit := range units {
			placedAt := unit.CreatedAt
			if placedAt.IsZero() {
				placedAt = now
			}
			record := models.UnitRecord{
				RoomID:      roomID,
				UnitID:      unit.ID,
				Name:        unit.Name,
				Color:       unit.Color,
				Icon:        unit.Icon,
				HexKey:      unit.HexKey,
				Description: unit.Description,
				GroupedWith: unit.GroupedWith,
				CreatedBy:   unit.CreatedBy,
				PlacedAt:    placedAt,
				MovedBy:     unit.MovedBy,
				MovedAt:     unit.MovedAt,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func lineFromRecord(record models.LineRecord) document.Line {
	start, _ := hexgrid.ParseKey(record.StartKey)
	end, _ := hexgrid.ParseKey(record.EndKey)
	return document.Line{
		Start:    document.Endpoint{Q: start.Q, R: start.R, Key: record.StartKey},
		End:      document.Endpoint{Q: end.Q, R: end.R, Key: record.EndKey},
		Distance: record.Distance,
		Color:    record.Color,
	}
}
