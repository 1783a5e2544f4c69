package registry

import (
	"log"
	"sort"
	"strings"
	"sync"

	"mechmap/backend/internal/auth"
	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/storage"

	"github.com/google/uuid"
)

const defaultRoomName = "Unnamed Room"

// Registry tracks every room in the process. It is an explicit owned object:
// created at startup, passed by reference into the hub, never package-global.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	storage  storage.Storage
	gridCols int
	gridRows int
}

func NewRegistry(st storage.Storage, gridCols, gridRows int) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		storage:  st,
		gridCols: gridCols,
		gridRows: gridRows,
	}
}

// Restore завантажує збережені кімнати з бази даних під час запуску.
// Після рестарту жодна кімната не має учасників, тож прапорці активності,
// що лишилися в Redis від попереднього процесу, знімаються.
func (g *Registry) Restore() error {
	staleIDs, err := g.storage.GetActiveRoomIDs()
	if err != nil {
		log.Printf("WARNING: Failed to read active-room set: %v", err)
	}
	for _, roomID := range staleIDs {
		if err := g.storage.RemoveActiveRoom(roomID); err != nil {
			log.Printf("WARNING: Failed to clear stale active flag for room %s: %v", roomID, err)
		}
	}
	if len(staleIDs) > 0 {
		log.Printf("Cleared %d stale active-room flags", len(staleIDs))
	}

	records, err := g.storage.GetAllRoomRecords()
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, record := range records {
		cells, lines, units, err := g.storage.LoadRoomState(record.RoomID)
		if err != nil {
			log.Printf("WARNING: Skipping room %s, state load failed: %v", record.RoomID, err)
			continue
		}

		cols, rows := record.GridCols, record.GridRows
		if cols <= 0 || rows <= 0 {
			cols, rows = g.gridCols, g.gridRows
		}
		doc := document.NewStore(cols, rows)
		doc.Replace(cells, lines, units)

		room := newRoom(record.RoomID, record.Name, record.OwnerUsername, record.PasswordHash, record.Palette, doc, g.storage)
		room.mu.Lock()
		room.CreatedAt = record.CreatedAt
		room.lastActivity = record.LastActivity
		room.mu.Unlock()
		g.rooms[record.RoomID] = room
	}

	log.Printf("Restored %d rooms from storage", len(g.rooms))
	return nil
}

// Create allocates a fresh room and registers the creator as its sole member.
// An empty name falls back to the default instead of failing.
func (g *Registry) Create(name, password string, ownerUsername, connID string, member models.Member) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultRoomName
	}

	passwordHash := ""
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	g.mu.Lock()
	roomID := generateRoomID()
	for _, exists := g.rooms[roomID]; exists; _, exists = g.rooms[roomID] {
		roomID = generateRoomID()
	}

	doc := document.NewStore(g.gridCols, g.gridRows)
	room := newRoom(roomID, name, ownerUsername, passwordHash, models.DefaultPalette, doc, g.storage)
	room.addMember(connID, member)
	g.rooms[roomID] = room
	g.mu.Unlock()

	record := models.RoomRecord{
		RoomID:        roomID,
		Name:          name,
		OwnerUsername: ownerUsername,
		HasPassword:   passwordHash != "",
		PasswordHash:  passwordHash,
		GridCols:      g.gridCols,
		GridRows:      g.gridRows,
		Palette:       models.DefaultPalette,
		Version:       1,
		CreatedAt:     room.CreatedAt,
		LastActivity:  room.LastActivity(),
	}
	if err := g.storage.SaveRoomRecord(&record); err != nil {
		log.Printf("ERROR: Failed to persist room %s: %v", roomID, err)
	}
	if err := g.storage.AddActiveRoom(roomID); err != nil {
		log.Printf("ERROR: Failed to mark room %s active: %v", roomID, err)
	}

	log.Printf("Room %s (%s) created by %s", roomID, name, member.Name)
	return room, nil
}

// Get looks a room up by id. Lookups are case-insensitive: ids normalize to
// upper case.
func (g *Registry) Get(roomID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[strings.ToUpper(roomID)]
	return room, ok
}

// Join registers the connection as a member and returns the room. Rejoining
// is idempotent. A wrong password on a private room fails without touching
// the member set.
func (g *Registry) Join(roomID, connID, password string, member models.Member) (*Room, error) {
	room, ok := g.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	if room.PasswordHash != "" && !auth.CheckPassword(password, room.PasswordHash) {
		return nil, ErrUnauthorized
	}

	room.addMember(connID, member)
	room.Touch()
	if err := g.storage.TouchRoom(room.ID); err != nil {
		log.Printf("ERROR: Failed to touch room %s: %v", room.ID, err)
	}
	if err := g.storage.AddActiveRoom(room.ID); err != nil {
		log.Printf("ERROR: Failed to mark room %s active: %v", room.ID, err)
	}
	return room, nil
}

// Leave removes the membership. An emptied room is kept and simply listed as
// inactive.
func (g *Registry) Leave(roomID, connID string) (*Room, models.Member, bool) {
	room, ok := g.Get(roomID)
	if !ok {
		return nil, models.Member{}, false
	}
	member, ok := room.removeMember(connID)
	if !ok {
		return room, models.Member{}, false
	}

	room.Touch()
	if room.MemberCount() == 0 {
		if err := g.storage.RemoveActiveRoom(room.ID); err != nil {
			log.Printf("ERROR: Failed to unmark room %s active: %v", room.ID, err)
		}
		log.Printf("Room %s (%s) is now empty but preserved", room.ID, room.Name)
	}
	return room, member, true
}

// Delete discards a room. Only the owner or an admin may do it; callers must
// notify the returned connections that they were force-removed.
func (g *Registry) Delete(roomID, actorUsername string, isAdmin bool) (*Room, []string, error) {
	room, ok := g.Get(roomID)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	if !isAdmin && (room.Owner == "" || actorUsername != room.Owner) {
		return nil, nil, ErrForbidden
	}

	kicked := room.MemberConnIDs()

	g.mu.Lock()
	delete(g.rooms, room.ID)
	g.mu.Unlock()
	room.stop()

	if err := g.storage.DeleteRoomRecord(room.ID); err != nil {
		log.Printf("ERROR: Failed to delete room record %s: %v", room.ID, err)
	}
	if err := g.storage.RemoveActiveRoom(room.ID); err != nil {
		log.Printf("ERROR: Failed to unmark room %s active: %v", room.ID, err)
	}

	log.Printf("Room %s (%s) deleted by %s", room.ID, room.Name, actorUsername)
	return room, kicked, nil
}

// List produces room summaries ordered by most recent activity. It is a
// snapshot, not a subscription; clients poll it.
func (g *Registry) List() []models.RoomSummary {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastActivity().After(rooms[j].LastActivity())
	})

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}
	return summaries
}

// RoomIDs returns all known room ids in ascending order.
func (g *Registry) RoomIDs() []string {
	g.mu.RLock()
	ids := make([]string, 0, len(g.rooms))
	for id := range g.rooms {
		ids = append(ids, id)
	}
	g.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Shutdown stops every room actor.
func (g *Registry) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, room := range g.rooms {
		room.stop()
	}
}

// generateRoomID повертає короткий 6-символьний ідентифікатор кімнати.
func generateRoomID() string {
	return strings.ToUpper(uuid.New().String()[:6])
}
