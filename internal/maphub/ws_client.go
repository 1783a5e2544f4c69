package maphub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"mechmap/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Великий ліміт, бо map_import надсилає весь стан кімнати одним кадром.
	maxMessageSize = 1 << 20
)

// outboundFrame is what a client actually sees: routing fields stripped.
type outboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WebSocketClient реалізує інтерфейс maphub.Client поверх gorilla/websocket.
// Канал Send ніколи не закривається: актор кімнати може тримати його як
// адресу для відповіді ще після відключення клієнта. Зупинку writePump
// сигналізує окремий канал done.
type WebSocketClient struct {
	ConnID   string
	RoomID   string
	Identity models.Identity
	Conn     *websocket.Conn
	Hub      *Manager
	Send     chan models.Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketClient створює клієнта для щойно оновленого з'єднання.
func NewWebSocketClient(connID string, conn *websocket.Conn, hub *Manager) *WebSocketClient {
	return &WebSocketClient{
		ConnID:   connID,
		Identity: models.Identity{Name: "Anonymous"},
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.Event, 256),
		done:     make(chan struct{}),
	}
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) GetConnID() string                    { return c.ConnID }
func (c *WebSocketClient) GetRoomID() string                    { return c.RoomID }
func (c *WebSocketClient) SetRoomID(id string)                  { c.RoomID = id }
func (c *WebSocketClient) GetIdentity() models.Identity         { return c.Identity }
func (c *WebSocketClient) SetIdentity(identity models.Identity) { c.Identity = identity }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event  { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close зупиняє writePump. Send залишається відкритим; запізнілі події
// просто осідають у буфері й збираються GC разом із клієнтом.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	// readPump зупиниться сам, коли Conn.Close() буде викликано в його defer
}

func (c *WebSocketClient) readPump() {
	// Встановлення таймаутів та обробка закриття з'єднання
	defer func() {
		c.Hub.UnregisterCh <- c // Надсилаємо команду на Unregister
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var envelope models.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			log.Printf("Error decoding frame from client %s: %v", c.ConnID, err)
			continue // Пропускаємо невірне повідомлення
		}

		// Надсилаємо команду у головний канал хаба
		c.Hub.CommandCh <- Inbound{Client: c, Envelope: envelope}
	}
}

// writePump читає події з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Хаб відключив клієнта, закриваємо з'єднання WS
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			frame, err := json.Marshal(outboundFrame{Type: event.Type, Data: event.Data})
			if err != nil {
				log.Printf("Error encoding frame for client %s: %v", c.ConnID, err)
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
