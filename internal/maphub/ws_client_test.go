package maphub_test

import (
	"testing"

	"mechmap/backend/internal/maphub"
	"mechmap/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestWebSocketClient_CloseLeavesSendOpen(t *testing.T) {
	client := maphub.NewWebSocketClient("conn_A", nil, nil)

	client.Close()
	client.Close() // повторний Close безпечний

	// Актор кімнати може відповісти вже після відключення; канал Send
	// мусить приймати подію без паніки.
	assert.NotPanics(t, func() {
		client.GetSendChannel() <- models.NewEvent("room_error", "", "", models.ErrorMessage{Message: "late reply"})
	})

	event := <-client.Send
	assert.Equal(t, "room_error", event.Type)
}

func TestWebSocketClient_Accessors(t *testing.T) {
	client := maphub.NewWebSocketClient("conn_A", nil, nil)

	assert.Equal(t, "conn_A", client.GetConnID())
	assert.Equal(t, "Anonymous", client.GetIdentity().Name)

	client.SetRoomID("AB12CD")
	assert.Equal(t, "AB12CD", client.GetRoomID())

	client.SetIdentity(models.Identity{Name: "alice", Username: "alice", Authenticated: true})
	assert.True(t, client.GetIdentity().Authenticated)
}
