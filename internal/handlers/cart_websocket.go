package handlers

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"vinyl_back_end/internal/models"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type cartSnapshot struct {
	Type       string            `json:"type"`
	Event      string            `json:"event,omitempty"`
	Items      []models.CartLine `json:"items"`
	TotalItems int               `json:"totalItems"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{}
	if len(h.AllowedOrigins) > 0 {
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if slices.Contains(h.AllowedOrigins, origin) {
				return true
			}
			parsed, err := url.Parse(origin)
			return err == nil && parsed.Host == r.Host
		}
	}
	return u
}

// 🔄 GET /api/cart/ws
// Pushes the full cart to the client whenever it changes, from any tab or
// device of the same user.
func (h *Handler) CartWebSocket(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	// Subscribe before upgrading so a Redis failure can still be answered
	// with a plain HTTP error.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub, err := h.Events.Subscribe(ctx, userID)
	if err != nil {
		log.Printf("❌ Cart subscription failed for user %d: %v", userID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart sync unavailable"})
		return
	}
	defer pubsub.Close()

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The reader goroutine processes control frames and notices the client
	// going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushCart(ctx, conn, userID, "connected", ""); err != nil {
		return
	}

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := h.pushCart(ctx, conn, userID, "cart_updated", msg.Payload); err != nil {
				log.Printf("❌ WebSocket send failed: %v", err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *Handler) pushCart(ctx context.Context, conn *websocket.Conn, userID int64, kind, event string) error {
	lines, err := h.Cart.Lines(ctx, userID)
	if err != nil {
		return err
	}
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(cartSnapshot{Type: kind, Event: event, Items: lines, TotalItems: total})
}
