package registry_test

import (
	"strings"
	"testing"
	"time"

	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/registry"
	"mechmap/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRegistry(t *testing.T) (*registry.Registry, *MockStorage) {
	t.Helper()
	storageMock := new(MockStorage)
	storageMock.On("SaveRoomRecord", mock.Anything).Return(nil)
	storageMock.On("TouchRoom", mock.AnythingOfType("string")).Return(nil)
	storageMock.On("AddActiveRoom", mock.AnythingOfType("string")).Return(nil)
	storageMock.On("RemoveActiveRoom", mock.AnythingOfType("string")).Return(nil)
	storageMock.On("DeleteRoomRecord", mock.AnythingOfType("string")).Return(nil)
	storageMock.On("PublishEvent", mock.AnythingOfType("models.Event")).Return(nil)
	return registry.NewRegistry(storageMock, 10, 10), storageMock
}

func TestRegistry_Create(t *testing.T) {
	reg, storageMock := newTestRegistry(t)

	member := models.Member{Name: "alice", Username: "alice", Authenticated: true}
	room, err := reg.Create("Front Line", "", "alice", "conn_1", member)
	assert.NoError(t, err)

	assert.Len(t, room.ID, 6)
	assert.Equal(t, room.ID, strings.ToUpper(room.ID))
	assert.Equal(t, "Front Line", room.Name)
	assert.Equal(t, "alice", room.Owner)
	assert.Equal(t, 1, room.MemberCount())
	assert.Equal(t, models.DefaultPalette, room.Palette)

	storageMock.AssertCalled(t, "SaveRoomRecord", mock.Anything)
	storageMock.AssertCalled(t, "AddActiveRoom", room.ID)
}

func TestRegistry_Create_DefaultName(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("   ", "", "", "conn_1", models.Member{Name: "Anonymous"})
	assert.NoError(t, err)
	assert.Equal(t, "Unnamed Room", room.Name)
	assert.Empty(t, room.Owner)
}

func TestRegistry_Get_CaseInsensitive(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	found, ok := reg.Get(strings.ToLower(room.ID))
	assert.True(t, ok)
	assert.Equal(t, room.ID, found.ID)
}

func TestRegistry_Join_PasswordGate(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Private", "hunter2", "alice", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	_, err = reg.Join(room.ID, "conn_2", "wrong", models.Member{Name: "bob"})
	assert.ErrorIs(t, err, registry.ErrUnauthorized)
	assert.Equal(t, 1, room.MemberCount())

	joined, err := reg.Join(room.ID, "conn_2", "hunter2", models.Member{Name: "bob"})
	assert.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)
	assert.Equal(t, 2, room.MemberCount())
}

func TestRegistry_Join_UnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Join("ZZZZZZ", "conn_1", "", models.Member{Name: "bob"})
	assert.ErrorIs(t, err, registry.ErrRoomNotFound)
}

func TestRegistry_Join_Idempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	_, err = reg.Join(room.ID, "conn_1", "", models.Member{Name: "alice"})
	assert.NoError(t, err)
	assert.Equal(t, 1, room.MemberCount())
}

func TestRegistry_Leave_PreservesEmptyRoom(t *testing.T) {
	reg, storageMock := newTestRegistry(t)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	left, member, ok := reg.Leave(room.ID, "conn_1")
	assert.True(t, ok)
	assert.Equal(t, "alice", member.Name)
	assert.Equal(t, 0, left.MemberCount())

	// Порожня кімната залишається доступною для повторного приєднання.
	_, stillThere := reg.Get(room.ID)
	assert.True(t, stillThere)
	storageMock.AssertCalled(t, "RemoveActiveRoom", room.ID)
}

func TestRegistry_Leave_UnknownMember(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	_, _, ok := reg.Leave(room.ID, "conn_unknown")
	assert.False(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestRegistry_Delete_RequiresOwnerOrAdmin(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Owned", "", "alice", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	_, _, err = reg.Delete(room.ID, "bob", false)
	assert.ErrorIs(t, err, registry.ErrForbidden)

	// Анонімно створені кімнати не мають власника, тож їх видаляє лише адмін.
	_, _, err = reg.Delete(room.ID, "", false)
	assert.ErrorIs(t, err, registry.ErrForbidden)

	deleted, kicked, err := reg.Delete(room.ID, "alice", false)
	assert.NoError(t, err)
	assert.Equal(t, room.ID, deleted.ID)
	assert.Equal(t, []string{"conn_1"}, kicked)

	_, stillThere := reg.Get(room.ID)
	assert.False(t, stillThere)
}

func TestRegistry_Delete_AdminOverride(t *testing.T) {
	reg, storageMock := newTestRegistry(t)

	room, err := reg.Create("Owned", "", "alice", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	_, _, err = reg.Delete(room.ID, "root", true)
	assert.NoError(t, err)
	storageMock.AssertCalled(t, "DeleteRoomRecord", room.ID)
}

func TestRegistry_List_OrderedByActivity(t *testing.T) {
	reg, _ := newTestRegistry(t)

	first, err := reg.Create("First", "", "", "conn_1", models.Member{Name: "a"})
	assert.NoError(t, err)
	second, err := reg.Create("Second", "", "", "conn_2", models.Member{Name: "b"})
	assert.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	first.Touch()

	list := reg.List()
	assert.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].RoomID)
	assert.Equal(t, second.ID, list[1].RoomID)
	assert.True(t, list[0].IsActive)
	assert.Equal(t, 1, list[0].UsersCount)
}

func TestRegistry_Restore(t *testing.T) {
	storageMock := new(MockStorage)
	records := []models.RoomRecord{{
		RoomID:       "AB12CD",
		Name:         "Restored",
		GridCols:     10,
		GridRows:     10,
		CreatedAt:    time.Now().Add(-time.Hour),
		LastActivity: time.Now().Add(-time.Hour),
	}}
	storageMock.On("GetActiveRoomIDs").Return([]string{}, nil)
	storageMock.On("GetAllRoomRecords").Return(records, nil)
	storageMock.On("LoadRoomState", "AB12CD").Return(
		map[string]document.Cell{"1,1": {FillColor: "red"}},
		[]document.Line{}, []document.Unit{}, nil)

	reg := registry.NewRegistry(storageMock, 10, 10)
	assert.NoError(t, reg.Restore())

	room, ok := reg.Get("AB12CD")
	assert.True(t, ok)
	assert.Equal(t, "Restored", room.Name)

	cells, _, _ := room.Doc.Snapshot()
	assert.Equal(t, "red", cells["1,1"].FillColor)
}

func TestRegistry_Restore_ClearsStaleActiveFlags(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetActiveRoomIDs").Return([]string{"AB12CD", "EF34GH"}, nil)
	storageMock.On("RemoveActiveRoom", mock.AnythingOfType("string")).Return(nil)
	storageMock.On("GetAllRoomRecords").Return([]models.RoomRecord{}, nil)

	reg := registry.NewRegistry(storageMock, 10, 10)
	assert.NoError(t, reg.Restore())

	// Після рестарту жодна кімната не має учасників, тож прапорці
	// активності попереднього процесу знімаються.
	storageMock.AssertCalled(t, "RemoveActiveRoom", "AB12CD")
	storageMock.AssertCalled(t, "RemoveActiveRoom", "EF34GH")
}

func TestRegistry_Shutdown_StopsActors(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	reg.Shutdown()

	ok := room.Do(registry.Origin{ConnID: "conn_1"}, func(doc *document.Store) (registry.Applied, error) {
		return registry.Applied{}, nil
	})
	assert.False(t, ok)
}

func TestRoom_Do_AppliesAndPublishes(t *testing.T) {
	reg, storageMock := newTestRegistry(t)
	storageMock.On("UpsertHex", mock.Anything, "2,3", "red", "alice").Return(nil)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	ok := room.Do(registry.Origin{ConnID: "conn_1", UserName: "alice"}, func(doc *document.Store) (registry.Applied, error) {
		if err := doc.SetCellColor("2,3", "red"); err != nil {
			return registry.Applied{}, err
		}
		return registry.Applied{
			EventType: "hex_updated",
			Data:      models.HexUpdated{HexKey: "2,3", FillColor: "red", UserName: "alice"},
			Persist: func(st storage.Storage) error {
				return st.UpsertHex(room.ID, "2,3", "red", "alice")
			},
		}, nil
	})
	assert.True(t, ok)
	time.Sleep(100 * time.Millisecond)

	storageMock.AssertCalled(t, "UpsertHex", room.ID, "2,3", "red", "alice")
	storageMock.AssertCalled(t, "PublishEvent", mock.MatchedBy(func(e models.Event) bool {
		return e.Type == "hex_updated" && e.RoomID == room.ID && e.Origin == "conn_1"
	}))

	cells, _, _ := room.Doc.Snapshot()
	assert.Equal(t, "red", cells["2,3"].FillColor)
}

func TestRoom_Do_ErrorRepliesToOrigin(t *testing.T) {
	reg, storageMock := newTestRegistry(t)

	room, err := reg.Create("Test", "", "", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	reply := make(chan models.Event, 1)
	ok := room.Do(registry.Origin{ConnID: "conn_1", Reply: reply}, func(doc *document.Store) (registry.Applied, error) {
		return registry.Applied{}, document.ErrInvalidInput
	})
	assert.True(t, ok)
	time.Sleep(100 * time.Millisecond)

	select {
	case event := <-reply:
		assert.Equal(t, "room_error", event.Type)
	default:
		t.Error("origin did not receive error reply")
	}

	// Помилка не транслюється іншим учасникам.
	storageMock.AssertNotCalled(t, "PublishEvent", mock.Anything)
}

func TestRoom_Do_AfterStop(t *testing.T) {
	reg, _ := newTestRegistry(t)

	room, err := reg.Create("Test", "", "alice", "conn_1", models.Member{Name: "alice"})
	assert.NoError(t, err)

	_, _, err = reg.Delete(room.ID, "alice", false)
	assert.NoError(t, err)

	ok := room.Do(registry.Origin{ConnID: "conn_1"}, func(doc *document.Store) (registry.Applied, error) {
		return registry.Applied{}, nil
	})
	assert.False(t, ok)
}
