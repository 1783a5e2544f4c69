package models_test

import (
	"encoding/json"
	"testing"

	"mechmap/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	event := models.NewEvent("hex_updated", "AB12CD", "conn_1", models.HexUpdated{
		HexKey:    "2,3",
		FillColor: "red",
		UserName:  "alice",
	})

	assert.Equal(t, "hex_updated", event.Type)
	assert.Equal(t, "AB12CD", event.RoomID)
	assert.Equal(t, "conn_1", event.Origin)

	var payload models.HexUpdated
	assert.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "2,3", payload.HexKey)
	assert.Equal(t, "red", payload.FillColor)
}

func TestIdentity_AdminNeverSerialized(t *testing.T) {
	raw, err := json.Marshal(models.Identity{Name: "root", Admin: true})
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "Admin")
	assert.NotContains(t, string(raw), "admin")
}
