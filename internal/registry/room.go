package registry

import (
	"log"
	"math"
	"sync"
	"time"

	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/storage"
)

// Origin identifies the connection a mutation came from. Reply is that
// connection's send channel; errors go there and nowhere else.
type Origin struct {
	ConnID   string
	UserName string
	Reply    chan<- models.Event
}

// Applied is the outcome of a successful mutation: the broadcast to fan out
// plus the write-through for the database.
type Applied struct {
	EventType string
	Data      any
	Persist   func(storage.Storage) error
}

// ApplyFunc runs inside the room's actor goroutine with exclusive access to
// the document store.
type ApplyFunc func(doc *document.Store) (Applied, error)

type mutationRequest struct {
	origin Origin
	apply  ApplyFunc
}

// Room is one collaborative session: metadata, the member set and the owned
// document store. All document mutations for a room flow through its actor
// goroutine, one at a time, in receipt order.
type Room struct {
	ID           string
	Name         string
	Owner        string // username; empty for anonymously created rooms
	PasswordHash string
	Palette      []string
	CreatedAt    time.Time

	Doc *document.Store

	mu           sync.Mutex
	lastActivity time.Time
	members      map[string]models.Member // connection id -> member

	storage  storage.Storage
	commands chan mutationRequest
	quit     chan struct{}
	closed   bool
}

func newRoom(id, name, owner, passwordHash string, palette []string, doc *document.Store, st storage.Storage) *Room {
	r := &Room{
		ID:           id,
		Name:         name,
		Owner:        owner,
		PasswordHash: passwordHash,
		Palette:      palette,
		CreatedAt:    time.Now(),
		Doc:          doc,
		lastActivity: time.Now(),
		members:      make(map[string]models.Member),
		storage:      st,
		commands:     make(chan mutationRequest, 64),
		quit:         make(chan struct{}),
	}
	go r.run()
	return r
}

// run is the room's actor loop. Serializing here is what makes compound
// operations (erase + line cascade) atomic for every observer.
func (r *Room) run() {
	for {
		select {
		case <-r.quit:
			return
		case req := <-r.commands:
			applied, err := req.apply(r.Doc)
			if err != nil {
				r.replyError(req.origin, err.Error())
				continue
			}

			r.Touch()
			if err := r.storage.TouchRoom(r.ID); err != nil {
				log.Printf("ERROR: Failed to touch room %s: %v", r.ID, err)
			}
			if applied.Persist != nil {
				if err := applied.Persist(r.storage); err != nil {
					log.Printf("ERROR: Failed to persist %s in room %s: %v", applied.EventType, r.ID, err)
				}
			}

			event := models.NewEvent(applied.EventType, r.ID, req.origin.ConnID, applied.Data)
			if err := r.storage.PublishEvent(event); err != nil {
				log.Printf("ERROR: Failed to publish %s for room %s: %v", applied.EventType, r.ID, err)
			}
		}
	}
}

// Do enqueues a mutation for the actor. Returns false once the room has been
// deleted. commands ніколи не закривається, тож запит, що програв гонку зі
// stop(), залишається в буфері замість паніки; його ніхто не обробить.
func (r *Room) Do(origin Origin, apply ApplyFunc) bool {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return false
	}
	r.commands <- mutationRequest{origin: origin, apply: apply}
	return true
}

func (r *Room) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.quit)
	}
}

func (r *Room) replyError(origin Origin, message string) {
	if origin.Reply == nil {
		return
	}
	event := models.NewEvent("room_error", "", "", models.ErrorMessage{Message: message})
	select {
	case origin.Reply <- event:
	default:
		log.Printf("WARNING: Dropped error reply to %s (slow client)", origin.ConnID)
	}
}

// Touch оновлює час останньої активності кімнати.
func (r *Room) Touch() {
	r.mu.Lock()
	r.lastActivity = time.Now()
	r.mu.Unlock()
}

// LastActivity повертає час останньої активності.
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) addMember(connID string, member models.Member) {
	r.mu.Lock()
	r.members[connID] = member
	r.mu.Unlock()
}

func (r *Room) removeMember(connID string) (models.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[connID]
	if ok {
		delete(r.members, connID)
	}
	return member, ok
}

// Members returns the current member list (order is not significant).
func (r *Room) Members() []models.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := make([]models.Member, 0, len(r.members))
	for _, member := range r.members {
		members = append(members, member)
	}
	return members
}

// MemberConnIDs returns the connection ids of all current members.
func (r *Room) MemberConnIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// MemberCount повертає кількість учасників.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// State builds the full reconciliation payload for a joining connection.
func (r *Room) State(userName string, isOwner bool) models.RoomState {
	cells, lines, units := r.Doc.Snapshot()
	return models.RoomState{
		RoomID:   r.ID,
		RoomName: r.Name,
		UserName: userName,
		IsOwner:  isOwner,
		Palette:  r.Palette,
		HexData:  cells,
		Lines:    lines,
		Units:    units,
		Users:    r.Members(),
	}
}

// Summary builds one row of the room list.
func (r *Room) Summary() models.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	hours := time.Since(r.lastActivity).Hours()
	return models.RoomSummary{
		RoomID:             r.ID,
		Name:               r.Name,
		HasPassword:        r.PasswordHash != "",
		Owner:              r.Owner,
		UsersCount:         len(r.members),
		IsActive:           len(r.members) > 0,
		HoursSinceActivity: math.Round(hours*10) / 10,
	}
}
