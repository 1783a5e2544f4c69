package maphub

import (
	"encoding/json"
	"sort"

	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"
)

// overlayState is one privileged viewer's composite-view configuration:
// which rooms are toggled into the merge, and the live document
// subscriptions that keep the merge current.
type overlayState struct {
	toggles map[string]bool
	subs    map[string]int // room id -> document subscription id
}

func (m *Manager) hasOverlay(connID string) bool {
	state, ok := m.overlays[connID]
	return ok && len(state.toggles) > 0
}

// handleAdminSubscribe opens an overlay session for a privileged connection.
func (m *Manager) handleAdminSubscribe(client Client) {
	if !client.GetIdentity().Admin {
		m.adminError(client, "Admin privilege required")
		return
	}
	connID := client.GetConnID()
	if _, ok := m.overlays[connID]; !ok {
		m.overlays[connID] = &overlayState{
			toggles: make(map[string]bool),
			subs:    make(map[string]int),
		}
	}
	m.refreshOverlay(connID)
}

// handleAdminToggle flips one room in or out of the composite view and
// re-wires the mutation subscription so the overlay stays live.
func (m *Manager) handleAdminToggle(client Client, payload json.RawMessage) {
	if !client.GetIdentity().Admin {
		m.adminError(client, "Admin privilege required")
		return
	}
	var p models.AdminTogglePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.adminError(client, "Invalid request payload")
		return
	}

	connID := client.GetConnID()
	state, ok := m.overlays[connID]
	if !ok {
		state = &overlayState{toggles: make(map[string]bool), subs: make(map[string]int)}
		m.overlays[connID] = state
	}

	room, ok := m.Registry.Get(p.RoomID)
	if !ok {
		m.adminError(client, "Room not found")
		return
	}

	if p.Enabled {
		state.toggles[room.ID] = true
		if _, subscribed := state.subs[room.ID]; !subscribed {
			id := connID
			state.subs[room.ID] = room.Doc.Subscribe(func(document.Mutation) {
				select {
				case m.overlayCh <- overlayNote{connID: id}:
				default:
				}
			})
		}
	} else {
		delete(state.toggles, room.ID)
		if subID, subscribed := state.subs[room.ID]; subscribed {
			room.Doc.Unsubscribe(subID)
			delete(state.subs, room.ID)
		}
	}

	m.refreshOverlay(connID)
}

// refreshOverlay recomputes the merged snapshot and pushes it to the viewer.
func (m *Manager) refreshOverlay(connID string) {
	state, ok := m.overlays[connID]
	if !ok {
		return
	}
	client, ok := m.Clients[connID]
	if !ok {
		return
	}
	m.send(client, models.NewEvent("admin_overlay", "", "", m.computeOverlay(state)))
}

// computeOverlay merges the documents of every toggled-on room. Rooms are
// iterated in ascending id order and later rooms overwrite conflicting
// cells; the tie-break is deterministic and identical on every invocation.
func (m *Manager) computeOverlay(state *overlayState) models.OverlaySnapshot {
	ids := make([]string, 0, len(state.toggles))
	for roomID, enabled := range state.toggles {
		if enabled {
			ids = append(ids, roomID)
		}
	}
	sort.Strings(ids)

	merged := models.OverlaySnapshot{
		HexData:     make(map[string]document.Cell),
		Lines:       make([]document.Line, 0),
		Units:       make([]document.Unit, 0),
		RoomToggles: make(map[string]bool, len(state.toggles)),
	}
	for roomID, enabled := range state.toggles {
		merged.RoomToggles[roomID] = enabled
	}

	for _, roomID := range ids {
		room, ok := m.Registry.Get(roomID)
		if !ok {
			continue
		}
		cells, lines, units := room.Doc.Snapshot()
		for key, cell := range cells {
			merged.HexData[key] = cell
		}
		merged.Lines = append(merged.Lines, lines...)
		merged.Units = append(merged.Units, units...)
	}
	return merged
}

// dropOverlay tears an overlay session down on disconnect.
func (m *Manager) dropOverlay(connID string) {
	state, ok := m.overlays[connID]
	if !ok {
		return
	}
	for roomID, subID := range state.subs {
		if room, ok := m.Registry.Get(roomID); ok {
			room.Doc.Unsubscribe(subID)
		}
	}
	delete(m.overlays, connID)
}

// detachRoomFromOverlays removes a deleted room from every overlay and
// refreshes the affected viewers.
func (m *Manager) detachRoomFromOverlays(roomID string) {
	for connID, state := range m.overlays {
		if _, ok := state.toggles[roomID]; !ok {
			continue
		}
		delete(state.toggles, roomID)
		delete(state.subs, roomID)
		m.refreshOverlay(connID)
	}
}
