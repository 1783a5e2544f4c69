package maphub

import (
	"encoding/json"
	"log"

	"mechmap/backend/internal/auth"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/registry"
	"mechmap/backend/internal/storage"
)

// Inbound is one decoded frame from a client, routed through the manager.
type Inbound struct {
	Client   Client
	Envelope models.Envelope
}

// overlayNote signals that a room contributing to an admin overlay mutated.
type overlayNote struct {
	connID string
}

// Manager is the hub: it owns the connection table, mediates session
// transitions (authenticate, join, leave, disconnect) and fans broadcast
// events out to local members. Everything it owns is touched only from its
// Run goroutine.
type Manager struct {
	Clients map[string]Client

	// Channels
	RegisterCh   chan Client
	UnregisterCh chan Client
	CommandCh    chan Inbound
	PubSubCh     chan models.Event

	overlayCh chan overlayNote
	overlays  map[string]*overlayState

	Storage  storage.Storage
	Registry *registry.Registry
	Auth     *auth.Service

	// NotifyCh is an optional sink for ops notifications (Telegram).
	NotifyCh chan<- string
}

// NewManager створює хаб. Реєстр та сховище передаються за посиланням —
// жодного глобального стану.
func NewManager(st storage.Storage, reg *registry.Registry, authSvc *auth.Service) *Manager {
	return &Manager{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client, 16),
		CommandCh:    make(chan Inbound),
		PubSubCh:     make(chan models.Event, 64),
		overlayCh:    make(chan overlayNote, 256),
		overlays:     make(map[string]*overlayState),
		Storage:      st,
		Registry:     reg,
		Auth:         authSvc,
	}
}

// StartPubSubListener запускає Goroutine, яка слухає Redis Pub/Sub.
func (m *Manager) StartPubSubListener() {
	pubsub := m.Storage.SubscribeRooms()
	if pubsub == nil {
		return // немає Redis (unit-тести)
	}
	go func() {
		defer pubsub.Close()
		for msg := range pubsub.Channel() {
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshalling pub/sub event: %v", err)
				continue
			}
			m.PubSubCh <- event
		}
	}()
}

// Run is the manager's main dispatcher loop.
func (m *Manager) Run() {
	m.StartPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.GetConnID()] = client
			log.Printf("Client connected: %s", client.GetConnID())

		case client := <-m.UnregisterCh:
			m.handleDisconnect(client)

		case inbound := <-m.CommandCh:
			m.handleCommand(inbound.Client, inbound.Envelope)

		case event := <-m.PubSubCh:
			m.deliver(event)

		case note := <-m.overlayCh:
			m.refreshOverlay(note.connID)
		}
	}
}

// deliver fans one broadcast event out to the local members of its room,
// skipping the originating connection: the actor already has the result and
// must not receive its own echo.
func (m *Manager) deliver(event models.Event) {
	for connID, client := range m.Clients {
		if connID == event.Origin {
			continue
		}
		if client.GetRoomID() != event.RoomID {
			continue
		}
		m.send(client, event)
	}
}

// send is best-effort: a slow client drops events instead of blocking the
// hub. Consistency recovery is rejoin (full state), per protocol.
func (m *Manager) send(client Client, event models.Event) {
	select {
	case client.GetSendChannel() <- event:
	default:
		log.Printf("WARNING: Dropped %s event for slow client %s", event.Type, client.GetConnID())
	}
}

func (m *Manager) handleDisconnect(client Client) {
	connID := client.GetConnID()
	if _, ok := m.Clients[connID]; !ok {
		return
	}
	delete(m.Clients, connID)

	// Обрив з'єднання еквівалентний leave_room.
	m.leaveCurrentRoom(client)
	m.dropOverlay(connID)
	client.Close()
	log.Printf("Client disconnected: %s", connID)
}

// leaveCurrentRoom removes the client's membership, if any, and publishes
// user_left. Used for explicit leave, implicit leave-on-join and disconnect.
func (m *Manager) leaveCurrentRoom(client Client) {
	roomID := client.GetRoomID()
	if roomID == "" {
		return
	}
	client.SetRoomID("")

	room, member, ok := m.Registry.Leave(roomID, client.GetConnID())
	if !ok {
		return
	}
	m.publish(models.NewEvent("user_left", room.ID, client.GetConnID(), models.UserLeft{
		UserName:   member.Name,
		UsersCount: room.MemberCount(),
	}))
}

func (m *Manager) publish(event models.Event) {
	if err := m.Storage.PublishEvent(event); err != nil {
		log.Printf("ERROR: Failed to publish %s: %v", event.Type, err)
	}
}

func (m *Manager) notify(message string) {
	if m.NotifyCh == nil {
		return
	}
	select {
	case m.NotifyCh <- message:
	default:
	}
}
