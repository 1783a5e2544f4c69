package models

import (
	"encoding/json"

	"mechmap/backend/internal/document"
)

// Envelope is the inbound frame a client sends over the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is one broadcast unit. Events travel through the Redis pub/sub before
// local fan-out: RoomID selects the recipients, Origin is the connection id
// whose socket must not receive its own echo. Clients only ever see Type and
// Data.
type Event struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id,omitempty"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals data into an Event. Marshal failures here would mean a
// broken payload type, so they are treated as programmer errors.
func NewEvent(eventType, roomID, origin string, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		panic("models: unmarshalable event payload: " + err.Error())
	}
	return Event{Type: eventType, RoomID: roomID, Origin: origin, Data: raw}
}

// Identity is who a connection is acting as. Fixed for the connection's
// lifetime once set.
type Identity struct {
	Name          string `json:"name"`
	Username      string `json:"username,omitempty"`
	Authenticated bool   `json:"is_authenticated"`
	Admin         bool   `json:"-"`
}

// Member is one connection currently joined to a room.
type Member struct {
	Name          string `json:"name"`
	Username      string `json:"username,omitempty"`
	Authenticated bool   `json:"is_authenticated"`
}

// --- Inbound command payloads ---

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type CreateRoomPayload struct {
	RoomName string `json:"room_name"`
	UserName string `json:"user_name"`
	Password string `json:"password,omitempty"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"room_id"`
	UserName string `json:"user_name"`
	Password string `json:"password,omitempty"`
}

type DeleteRoomPayload struct {
	RoomID string `json:"room_id"`
}

type HexUpdatePayload struct {
	HexKey    string `json:"hex_key"`
	FillColor string `json:"fill_color"`
}

type HexErasePayload struct {
	HexKey string `json:"hex_key"`
}

type LineAddPayload struct {
	StartKey string `json:"start_key"`
	EndKey   string `json:"end_key"`
	Color    string `json:"color"`
}

type UnitAddPayload struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Icon   string `json:"icon,omitempty"`
	HexKey string `json:"hex_key"`
}

type UnitMovePayload struct {
	UnitID    string `json:"unit_id"`
	NewHexKey string `json:"new_hex_key"`
}

type UnitDeletePayload struct {
	UnitID string `json:"unit_id"`
}

type UnitDescribePayload struct {
	UnitID      string `json:"unit_id"`
	Description string `json:"description"`
}

type UnitGroupPayload struct {
	UnitID      string `json:"unit_id"`
	GroupedWith string `json:"grouped_with"`
}

type MapImportPayload struct {
	HexData map[string]document.Cell `json:"hex_data"`
	Lines   []document.Line          `json:"lines"`
	Units   []document.Unit          `json:"units"`
}

type CursorUpdatePayload struct {
	HexKey string `json:"hex_key"`
	Mode   string `json:"mode"`
}

type AdminTogglePayload struct {
	RoomID  string `json:"room_id"`
	Enabled bool   `json:"enabled"`
}

// --- Outbound event payloads ---

// RoomState is the full reconciliation payload sent on room_created and
// room_joined. A late joiner applies this instead of replaying deltas.
type RoomState struct {
	RoomID   string                   `json:"room_id"`
	RoomName string                   `json:"room_name"`
	UserName string                   `json:"user_name"`
	IsOwner  bool                     `json:"is_owner"`
	Palette  []string                 `json:"palette,omitempty"`
	HexData  map[string]document.Cell `json:"hex_data"`
	Lines    []document.Line          `json:"lines"`
	Units    []document.Unit          `json:"units"`
	Users    []Member                 `json:"users"`
}

// RoomSummary is one row of the room list.
type RoomSummary struct {
	RoomID             string  `json:"room_id"`
	Name               string  `json:"name"`
	HasPassword        bool    `json:"has_password"`
	Owner              string  `json:"owner,omitempty"`
	UsersCount         int     `json:"users_count"`
	IsActive           bool    `json:"is_active"`
	HoursSinceActivity float64 `json:"hours_since_activity"`
}

type UserJoined struct {
	UserName      string `json:"user_name"`
	Authenticated bool   `json:"is_authenticated"`
	UsersCount    int    `json:"users_count"`
}

type UserLeft struct {
	UserName   string `json:"user_name"`
	UsersCount int    `json:"users_count"`
}

type CursorMoved struct {
	UserName string `json:"user_name"`
	HexKey   string `json:"hex_key"`
	Mode     string `json:"mode"`
}

// HexUpdated is broadcast after a cell repaint.
type HexUpdated struct {
	HexKey    string `json:"hex_key"`
	FillColor string `json:"fill_color"`
	UserName  string `json:"user_name"`
}

// HexErased is the compound erase broadcast: the reset hex plus the full
// surviving line list, applied by receivers in one step.
type HexErased struct {
	HexKey   string          `json:"hex_key"`
	Lines    []document.Line `json:"lines"`
	UserName string          `json:"user_name"`
}

type LineAdded struct {
	Line     document.Line `json:"line"`
	UserName string        `json:"user_name"`
}

type UnitChanged struct {
	Unit     document.Unit `json:"unit"`
	UserName string        `json:"user_name"`
}

type UnitMoved struct {
	UnitID    string `json:"unit_id"`
	NewHexKey string `json:"new_hex_key"`
	UserName  string `json:"user_name"`
}

// MapImported is the single broadcast of a bulk replace. It deliberately
// carries the whole new state instead of a delta stream.
type MapImported struct {
	HexData  map[string]document.Cell `json:"hex_data"`
	Lines    []document.Line          `json:"lines"`
	Units    []document.Unit          `json:"units"`
	UserName string                   `json:"user_name"`
}

// OverlaySnapshot is the merged read-only view sent to privileged viewers.
type OverlaySnapshot struct {
	HexData     map[string]document.Cell `json:"hex_data"`
	Lines       []document.Line          `json:"lines"`
	Units       []document.Unit          `json:"units"`
	RoomToggles map[string]bool          `json:"room_toggles"`
}

// ErrorMessage is the typed error event payload. It goes only to the
// requesting connection.
type ErrorMessage struct {
	Message string `json:"message"`
}
