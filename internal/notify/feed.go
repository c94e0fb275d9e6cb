package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedBuffer     = 16
)

// SellerFeed pushes new orders to sellers connected over websocket.
type SellerFeed struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*feedClient]struct{}
	logger   zerolog.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewSellerFeed creates an empty SellerFeed.
func NewSellerFeed(logger zerolog.Logger) *SellerFeed {
	return &SellerFeed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]map[*feedClient]struct{}),
		logger:  logger.With().Str("notifier", "seller_feed").Logger(),
	}
}

// Serve upgrades the request and streams sellerID's new orders until the
// connection closes.
func (f *SellerFeed) Serve(w http.ResponseWriter, r *http.Request, sellerID uuid.UUID) error {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &feedClient{conn: conn, send: make(chan []byte, feedBuffer)}
	f.add(sellerID, c)
	f.logger.Debug().Str("seller_id", sellerID.String()).Msg("seller connected")

	go c.writeLoop()
	c.readLoop()

	f.remove(sellerID, c)
	f.logger.Debug().Str("seller_id", sellerID.String()).Msg("seller disconnected")
	return nil
}

// Notify forwards seller.new_order events to the seller's connections.
// Slow connections drop messages instead of blocking delivery.
func (f *SellerFeed) Notify(_ context.Context, event model.Event) error {
	if event.Type != model.EventSellerNewOrder || event.SellerID == nil {
		return ErrSkipped
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for c := range f.clients[*event.SellerID] {
		select {
		case c.send <- data:
		default:
			f.logger.Warn().Str("seller_id", event.SellerID.String()).Msg("seller feed buffer full, dropping event")
		}
	}
	return nil
}

// Connections returns the number of open connections for sellerID.
func (f *SellerFeed) Connections(sellerID uuid.UUID) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients[sellerID])
}

// Close disconnects every client.
func (f *SellerFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, set := range f.clients {
		for c := range set {
			_ = c.conn.Close()
		}
	}
}

func (f *SellerFeed) add(sellerID uuid.UUID, c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clients[sellerID] == nil {
		f.clients[sellerID] = make(map[*feedClient]struct{})
	}
	f.clients[sellerID][c] = struct{}{}
}

func (f *SellerFeed) remove(sellerID uuid.UUID, c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients[sellerID], c)
	if len(f.clients[sellerID]) == 0 {
		delete(f.clients, sellerID)
	}
	close(c.send)
}

// readLoop discards inbound messages and returns when the peer goes away.
func (c *feedClient) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writeLoop() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
