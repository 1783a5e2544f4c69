package maphub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"mechmap/backend/internal/document"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/registry"
	"mechmap/backend/internal/storage"
)

const anonymousName = "Anonymous"

func (m *Manager) handleCommand(client Client, envelope models.Envelope) {
	switch envelope.Type {
	case "authenticate":
		m.handleAuthenticate(client, envelope.Payload)
	case "create_room":
		m.handleCreateRoom(client, envelope.Payload)
	case "join_room":
		m.handleJoinRoom(client, envelope.Payload)
	case "leave_room":
		m.handleLeaveRoom(client)
	case "delete_room":
		m.handleDeleteRoom(client, envelope.Payload)
	case "get_rooms":
		m.handleGetRooms(client)
	case "cursor_update":
		m.handleCursorUpdate(client, envelope.Payload)
	case "hex_update", "hex_erase", "line_add", "unit_add", "unit_move",
		"unit_delete", "unit_describe", "unit_group", "map_import":
		m.handleMutation(client, envelope)
	case "admin_subscribe":
		m.handleAdminSubscribe(client)
	case "admin_toggle_room":
		m.handleAdminToggle(client, envelope.Payload)
	default:
		log.Printf("Received unknown command %q from %s", envelope.Type, client.GetConnID())
	}
}

func (m *Manager) handleAuthenticate(client Client, payload json.RawMessage) {
	var p models.AuthenticatePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Token == "" {
		m.send(client, models.NewEvent("auth_error", "", "", models.ErrorMessage{Message: "No token provided"}))
		return
	}

	claims, err := m.Auth.Verify(p.Token)
	if err != nil {
		m.send(client, models.NewEvent("auth_error", "", "", models.ErrorMessage{Message: "Invalid token"}))
		return
	}

	client.SetIdentity(models.Identity{
		Name:          claims.Username,
		Username:      claims.Username,
		Authenticated: true,
		Admin:         claims.IsAdmin,
	})
	m.send(client, models.NewEvent("auth_success", "", "", map[string]string{
		"username": claims.Username,
		"message":  "Authentication successful",
	}))
	log.Printf("User %s authenticated via socket", claims.Username)
}

// resolveIdentity either keeps the authenticated identity or adopts the
// display name supplied with the request.
func resolveIdentity(client Client, requestedName string) models.Identity {
	identity := client.GetIdentity()
	if identity.Authenticated {
		return identity
	}
	name := requestedName
	if name == "" {
		name = anonymousName
	}
	identity.Name = name
	client.SetIdentity(identity)
	return identity
}

func (m *Manager) handleCreateRoom(client Client, payload json.RawMessage) {
	var p models.CreateRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.roomError(client, "Invalid request payload")
		return
	}
	identity := resolveIdentity(client, p.UserName)

	owner := ""
	if identity.Authenticated {
		owner = identity.Username
	}
	member := models.Member{Name: identity.Name, Username: identity.Username, Authenticated: identity.Authenticated}

	room, err := m.Registry.Create(p.RoomName, p.Password, owner, client.GetConnID(), member)
	if err != nil {
		m.roomError(client, "Failed to create room")
		return
	}

	// Попередня кімната залишається недоторканою, доки нову не створено.
	m.leaveCurrentRoom(client)
	client.SetRoomID(room.ID)

	m.send(client, models.NewEvent("room_created", "", "", room.State(identity.Name, owner != "")))
	m.publish(models.NewEvent("rooms_changed", "", client.GetConnID(), nil))
	m.notify(fmt.Sprintf("Room %s (%s) created by %s", room.ID, room.Name, identity.Name))
}

func (m *Manager) handleJoinRoom(client Client, payload json.RawMessage) {
	var p models.JoinRoomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		m.roomError(client, "Invalid request payload")
		return
	}
	identity := resolveIdentity(client, p.UserName)

	member := models.Member{Name: identity.Name, Username: identity.Username, Authenticated: identity.Authenticated}
	room, err := m.Registry.Join(p.RoomID, client.GetConnID(), p.Password, member)
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		m.roomError(client, "Room not found")
		return
	case errors.Is(err, registry.ErrUnauthorized):
		m.roomError(client, "Wrong room password")
		return
	case err != nil:
		m.roomError(client, "Failed to join room")
		return
	}

	// Невдале приєднання не чіпає поточного членства; стару кімнату
	// залишаємо лише після успішної перевірки.
	if prev := client.GetRoomID(); prev != "" && prev != room.ID {
		m.leaveCurrentRoom(client)
	}
	client.SetRoomID(room.ID)

	isOwner := room.Owner != "" && identity.Username == room.Owner

	// Повний стан — точка звірки для учасника, що приєднався пізніше.
	m.send(client, models.NewEvent("room_joined", "", "", room.State(identity.Name, isOwner)))
	m.publish(models.NewEvent("user_joined", room.ID, client.GetConnID(), models.UserJoined{
		UserName:      identity.Name,
		Authenticated: identity.Authenticated,
		UsersCount:    room.MemberCount(),
	}))
	log.Printf("User %s joined room %s (%s)", identity.Name, room.ID, room.Name)
}

func (m *Manager) handleLeaveRoom(client Client) {
	m.leaveCurrentRoom(client)
	m.send(client, models.NewEvent("room_left", "", "", map[string]bool{"success": true}))
}

func (m *Manager) handleDeleteRoom(client Client, payload json.RawMessage) {
	var p models.DeleteRoomPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			m.roomError(client, "Invalid request payload")
			return
		}
	}
	roomID := p.RoomID
	if roomID == "" {
		roomID = client.GetRoomID()
	}
	if roomID == "" {
		m.roomError(client, "You must name a room to delete it")
		return
	}

	identity := client.GetIdentity()
	room, kicked, err := m.Registry.Delete(roomID, identity.Username, identity.Admin)
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		m.roomError(client, "Room not found")
		return
	case errors.Is(err, registry.ErrForbidden):
		m.roomError(client, "Only the room owner or an admin can delete a room")
		return
	case err != nil:
		m.roomError(client, "Failed to delete room")
		return
	}

	// Примусове відключення всіх учасників від кімнати.
	notice := models.NewEvent("room_deleted", "", "", models.ErrorMessage{
		Message: fmt.Sprintf("Room %q has been deleted", room.Name),
	})
	for _, connID := range kicked {
		member, ok := m.Clients[connID]
		if !ok {
			continue
		}
		member.SetRoomID("")
		m.send(member, notice)
	}

	m.detachRoomFromOverlays(room.ID)
	m.publish(models.NewEvent("rooms_changed", "", "", nil))
	m.notify(fmt.Sprintf("Room %s (%s) deleted by %s", room.ID, room.Name, identity.Name))
}

func (m *Manager) handleGetRooms(client Client) {
	m.send(client, models.NewEvent("rooms_list", "", "", map[string]any{
		"rooms": m.Registry.List(),
	}))
}

// handleCursorUpdate relays presence without touching the document store.
func (m *Manager) handleCursorUpdate(client Client, payload json.RawMessage) {
	roomID := client.GetRoomID()
	if roomID == "" {
		return
	}
	var p models.CursorUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	m.publish(models.NewEvent("cursor_moved", roomID, client.GetConnID(), models.CursorMoved{
		UserName: client.GetIdentity().Name,
		HexKey:   p.HexKey,
		Mode:     p.Mode,
	}))
}

func (m *Manager) handleMutation(client Client, envelope models.Envelope) {
	roomID := client.GetRoomID()
	if roomID == "" {
		// Оверлей доступний лише для читання: редагування мусить
		// здійснюватися в конкретній кімнаті.
		if m.hasOverlay(client.GetConnID()) {
			m.adminError(client, "The overlay is read-only; join a room to edit")
		} else {
			m.roomError(client, "You are not in a room")
		}
		return
	}
	room, ok := m.Registry.Get(roomID)
	if !ok {
		m.roomError(client, "Room not found")
		return
	}

	apply, err := buildApply(roomID, client.GetIdentity().Name, envelope)
	if err != nil {
		m.roomError(client, "Invalid request payload")
		return
	}

	origin := registry.Origin{
		ConnID:   client.GetConnID(),
		UserName: client.GetIdentity().Name,
		Reply:    client.GetSendChannel(),
	}
	if !room.Do(origin, apply) {
		m.roomError(client, "Room not found")
	}
}

// buildApply translates one wire command into a store mutation plus its
// broadcast payload and database write-through. It runs on the hub goroutine;
// the returned closure runs on the room's actor.
func buildApply(roomID, userName string, envelope models.Envelope) (registry.ApplyFunc, error) {
	switch envelope.Type {
	case "hex_update":
		var p models.HexUpdatePayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			if err := doc.SetCellColor(p.HexKey, p.FillColor); err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "hex_updated",
				Data:      models.HexUpdated{HexKey: p.HexKey, FillColor: p.FillColor, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.UpsertHex(roomID, p.HexKey, p.FillColor, userName)
				},
			}, nil
		}, nil

	case "hex_erase":
		var p models.HexErasePayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			result, err := doc.EraseCell(p.HexKey)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "hex_erased",
				Data:      models.HexErased{HexKey: result.HexKey, Lines: result.Lines, UserName: userName},
				Persist: func(st storage.Storage) error {
					if err := st.EraseHex(roomID, p.HexKey); err != nil {
						return err
					}
					return st.DeleteLinesByHex(roomID, p.HexKey)
				},
			}, nil
		}, nil

	case "line_add":
		var p models.LineAddPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			line, err := doc.AddLine(p.StartKey, p.EndKey, p.Color)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "line_added",
				Data:      models.LineAdded{Line: line, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.AddLine(roomID, line, userName)
				},
			}, nil
		}, nil

	case "unit_add":
		var p models.UnitAddPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			unit, err := doc.AddUnit(p.Name, p.Color, p.Icon, p.HexKey, userName)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "unit_added",
				Data:      models.UnitChanged{Unit: unit, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.SaveUnit(roomID, unit)
				},
			}, nil
		}, nil

	case "unit_move":
		var p models.UnitMovePayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			unit, err := doc.MoveUnit(p.UnitID, p.NewHexKey, userName)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "unit_moved",
				Data:      models.UnitMoved{UnitID: unit.ID, NewHexKey: unit.HexKey, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.SaveUnit(roomID, unit)
				},
			}, nil
		}, nil

	case "unit_delete":
		var p models.UnitDeletePayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			unit, err := doc.DeleteUnit(p.UnitID)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "unit_deleted",
				Data:      models.UnitChanged{Unit: unit, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.DeleteUnit(roomID, unit.ID)
				},
			}, nil
		}, nil

	case "unit_describe":
		var p models.UnitDescribePayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			unit, err := doc.SetUnitDescription(p.UnitID, p.Description)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "unit_described",
				Data:      models.UnitChanged{Unit: unit, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.SaveUnit(roomID, unit)
				},
			}, nil
		}, nil

	case "unit_group":
		var p models.UnitGroupPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			unit, err := doc.GroupUnit(p.UnitID, p.GroupedWith)
			if err != nil {
				return registry.Applied{}, err
			}
			return registry.Applied{
				EventType: "unit_grouped",
				Data:      models.UnitChanged{Unit: unit, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.SaveUnit(roomID, unit)
				},
			}, nil
		}, nil

	case "map_import":
		var p models.MapImportPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, err
		}
		return func(doc *document.Store) (registry.Applied, error) {
			// Атомарна заміна: кімната бачить одну подію, а не потік дельт.
			doc.Replace(p.HexData, p.Lines, p.Units)
			cells, lines, units := doc.Snapshot()
			return registry.Applied{
				EventType: "map_imported",
				Data:      models.MapImported{HexData: cells, Lines: lines, Units: units, UserName: userName},
				Persist: func(st storage.Storage) error {
					return st.ReplaceRoomState(roomID, cells, lines, units, userName)
				},
			}, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown mutation %q", envelope.Type)
}

func (m *Manager) roomError(client Client, message string) {
	m.send(client, models.NewEvent("room_error", "", "", models.ErrorMessage{Message: message}))
}

func (m *Manager) adminError(client Client, message string) {
	m.send(client, models.NewEvent("admin_error", "", "", models.ErrorMessage{Message: message}))
}
