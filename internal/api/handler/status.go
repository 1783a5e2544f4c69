package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RoomsStatus returns an aggregate view over all rooms for debugging and
// admin dashboards. Like the room list, it is a poll target, not a stream.
func (h *Handler) RoomsStatus(c *gin.Context) {
	summaries := h.Registry.List()

	totalUsers := 0
	activeRooms := 0
	rooms := make([]gin.H, 0, len(summaries))
	for _, summary := range summaries {
		totalUsers += summary.UsersCount
		if summary.IsActive {
			activeRooms++
		}

		room, ok := h.Registry.Get(summary.RoomID)
		if !ok {
			continue
		}
		cells, lines, units := room.Doc.Snapshot()
		rooms = append(rooms, gin.H{
			"room_id":              summary.RoomID,
			"name":                 summary.Name,
			"owner":                summary.Owner,
			"users_count":          summary.UsersCount,
			"hours_since_activity": summary.HoursSinceActivity,
			"hex_count":            len(cells),
			"lines_count":          len(lines),
			"units_count":          len(units),
			"version":              room.Doc.Version(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_rooms":        len(summaries),
		"active_rooms":       activeRooms,
		"total_active_users": totalUsers,
		"rooms":              rooms,
	})
}
