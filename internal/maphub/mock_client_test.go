package maphub_test

import (
	"mechmap/backend/internal/models"
)

type MockClient struct {
	connID      string
	roomID      string
	identity    models.Identity
	RecvChannel chan models.Event
}

func newMockClient(connID string) *MockClient {
	return &MockClient{
		connID:      connID,
		identity:    models.Identity{Name: "Anonymous"},
		RecvChannel: make(chan models.Event, 16),
	}
}

func (c *MockClient) GetConnID() string {
	return c.connID
}

func (c *MockClient) GetRoomID() string {
	return c.roomID
}

func (c *MockClient) SetRoomID(roomID string) {
	c.roomID = roomID
}

func (c *MockClient) GetIdentity() models.Identity {
	return c.identity
}

func (c *MockClient) SetIdentity(identity models.Identity) {
	c.identity = identity
}

func (c *MockClient) GetSendChannel() chan<- models.Event {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	// Not needed for testing
}

// drain collects everything currently buffered on the receive channel.
func (c *MockClient) drain() []models.Event {
	var events []models.Event
	for {
		select {
		case event := <-c.RecvChannel:
			events = append(events, event)
		default:
			return events
		}
	}
}
