package registry_test

import (
	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByName(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUserLastLogin(username string) error {
	args := m.Called(username)
	return args.Error(0)
}

func (m *MockStorage) SetUserAdmin(username string, isAdmin bool) error {
	args := m.Called(username, isAdmin)
	return args.Error(0)
}

func (m *MockStorage) SaveRoomRecord(record *models.RoomRecord) error {
	args := m.Called(record)
	return args.Error(0)
}

func (m *MockStorage) TouchRoom(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) DeleteRoomRecord(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) GetAllRoomRecords() ([]models.RoomRecord, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoomRecord), args.Error(1)
}

func (m *MockStorage) UpsertHex(roomID, hexKey, fillColor, updatedBy string) error {
	args := m.Called(roomID, hexKey, fillColor, updatedBy)
	return args.Error(0)
}

func (m *MockStorage) EraseHex(roomID, hexKey string) error {
	args := m.Called(roomID, hexKey)
	return args.Error(0)
}

func (m *MockStorage) AddLine(roomID string, line document.Line, addedBy string) error {
	args := m.Called(roomID, line, addedBy)
	return args.Error(0)
}

func (m *MockStorage) DeleteLinesByHex(roomID, hexKey string) error {
	args := m.Called(roomID, hexKey)
	return args.Error(0)
}

func (m *MockStorage) SaveUnit(roomID string, unit document.Unit) error {
	args := m.Called(roomID, unit)
	return args.Error(0)
}

func (m *MockStorage) DeleteUnit(roomID, unitID string) error {
	args := m.Called(roomID, unitID)
	return args.Error(0)
}

func (m *MockStorage) LoadRoomState(roomID string) (map[string]document.Cell, []document.Line, []document.Unit, error) {
	args := m.Called(roomID)
	cells, _ := args.Get(0).(map[string]document.Cell)
	lines, _ := args.Get(1).([]document.Line)
	units, _ := args.Get(2).([]document.Unit)
	return cells, lines, units, args.Error(3)
}

func (m *MockStorage) ReplaceRoomState(roomID string, cells map[string]document.Cell, lines []document.Line, units []document.Unit, updatedBy string) error {
	args := m.Called(roomID, cells, lines, units, updatedBy)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(event models.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockStorage) SubscribeRooms() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

func (m *MockStorage) AddActiveRoom(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) RemoveActiveRoom(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) GetActiveRoomIDs() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}
