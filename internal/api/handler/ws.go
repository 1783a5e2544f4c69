package handler

import (
	"net/http"

	"mechmap/backend/internal/maphub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket. З'єднання стартує
// анонімним; команда authenticate може підвищити його пізніше.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := maphub.NewWebSocketClient(uuid.New().String(), conn, h.Hub)

	// Реєстрація клієнта в хабі та запуск його goroutines.
	h.Hub.RegisterCh <- client
	client.Run()
}
