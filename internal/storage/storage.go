package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound повертається, коли запис відсутній у базі даних.
var ErrNotFound = errors.New("storage: record not found")

// Storage is everything the hub and registry need from the persistence and
// pub/sub layer. Tests substitute a testify mock.
type Storage interface {
	CreateUser(user *models.User) error
	GetUserByName(username string) (*models.User, error)
	UpdateUserLastLogin(username string) error
	SetUserAdmin(username string, isAdmin bool) error

	SaveRoomRecord(record *models.RoomRecord) error
	TouchRoom(roomID string) error
	DeleteRoomRecord(roomID string) error
	GetAllRoomRecords() ([]models.RoomRecord, error)

	UpsertHex(roomID, hexKey, fillColor, updatedBy string) error
	EraseHex(roomID, hexKey string) error
	AddLine(roomID string, line document.Line, addedBy string) error
	DeleteLinesByHex(roomID, hexKey string) error
	SaveUnit(roomID string, unit document.Unit) error
	DeleteUnit(roomID, unitID string) error
	LoadRoomState(roomID string) (map[string]document.Cell, []document.Line, []document.Unit, error)
	ReplaceRoomState(roomID string, cells map[string]document.Cell, lines []document.Line, units []document.Unit, updatedBy string) error

	PublishEvent(event models.Event) error
	SubscribeRooms() *redis.PubSub

	AddActiveRoom(roomID string) error
	RemoveActiveRoom(roomID string) error
	GetActiveRoomIDs() ([]string, error)
}

// Service implements Storage on PostgreSQL (gorm) plus Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService Constructor
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// CreateUser зберігає нового користувача в PostgreSQL.
func (s *Service) CreateUser(user *models.User) error {
	return s.DB.Create(user).Error
}

// GetUserByName шукає користувача без урахування регістру імені.
func (s *Service) GetUserByName(username string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("LOWER(username) = LOWER(?)", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get user %s: %v", username, err)
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUserLastLogin(username string) error {
	return s.DB.Model(&models.User{}).
		Where("username = ?", username).
		Update("last_login", gorm.Expr("NOW()")).Error
}

func (s *Service) SetUserAdmin(username string, isAdmin bool) error {
	result := s.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRoomRecord зберігає метадані кімнати.
func (s *Service) SaveRoomRecord(record *models.RoomRecord) error {
	return s.DB.Save(record).Error
}

// TouchRoom оновлює час активності та лічильник версій кімнати.
func (s *Service) TouchRoom(roomID string) error {
	return s.DB.Model(&models.RoomRecord{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"last_activity": gorm.Expr("NOW()"),
			"version":       gorm.Expr("version + 1"),
		}).Error
}

// DeleteRoomRecord видаляє кімнату разом з усім її вмістом.
func (s *Service) DeleteRoomRecord(roomID string) error {
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
		return tx.Where("room_id = ?", roomID).Delete(&models.RoomRecord{}).Error
	})
}

// GetAllRoomRecords повертає всі кімнати, відсортовані за активністю.
func (s *Service) GetAllRoomRecords() ([]models.RoomRecord, error) {
	var records []models.RoomRecord
	if err := s.DB.Order("last_activity DESC").Find(&records).Error; err != nil {
		log.Printf("ERROR: Failed to retrieve room records: %v", err)
		return nil, err
	}
	return records, nil
}

// PublishEvent публікує подію в Redis Pub/Sub каналу кімнати.
func (s *Service) PublishEvent(event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := "rooms"
	if event.RoomID != "" {
		channel = "room:" + event.RoomID
	}
	return s.Redis.Publish(s.Ctx, channel, string(payload)).Err()
}

// SubscribeRooms підписується на всі канали подій кімнат.
func (s *Service) SubscribeRooms() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, "room*")
}

// AddActiveRoom додає кімнату до множини активних у Redis.
func (s *Service) AddActiveRoom(roomID string) error {
	return s.Redis.SAdd(s.Ctx, "active_rooms", roomID).Err()
}

// RemoveActiveRoom видаляє кімнату з множини активних.
func (s *Service) RemoveActiveRoom(roomID string) error {
	return s.Redis.SRem(s.Ctx, "active_rooms", roomID).Err()
}

// GetActiveRoomIDs повертає всі кімнати, які мали учасників на момент
// останнього запуску.
func (s *Service) GetActiveRoomIDs() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, "active_rooms").Result()
}
