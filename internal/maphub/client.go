package maphub

import "mechmap/backend/internal/models"

// Client is the interface for any type of connection bound to the hub. It
// abstracts the underlying transport so the manager can treat every session
// uniformly.
type Client interface {
	// GetConnID returns the transport-assigned, ephemeral connection id.
	GetConnID() string

	// GetRoomID returns the id of the room this connection is joined to,
	// or "" when it is not in a room.
	GetRoomID() string
	// SetRoomID binds the connection to a room. Joining a new room
	// implicitly leaves the previous one; the manager mediates that.
	SetRoomID(string)

	// GetIdentity returns who the connection is acting as.
	GetIdentity() models.Identity
	// SetIdentity fixes the identity after a successful authenticate.
	SetIdentity(models.Identity)

	// GetSendChannel returns the channel the manager writes outbound
	// events into. It is a send-only channel.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's outbound channel.
	Close()
}
