package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans stored credit transactions out to websocket subscribers.
// Slow clients are dropped rather than allowed to block the ingest path.
type EventHub struct {
	mu       sync.RWMutex
	clients  map[*eventClient]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewEventHub(logger *zap.Logger) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHub{
		clients: make(map[*eventClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

type creditEvent struct {
	ID              string     `json:"id"`
	TransactionHash *string    `json:"transactionHash"`
	Address         string     `json:"address"`
	Provider        string     `json:"provider"`
	Amount          float64    `json:"amount"`
	AmountLeft      float64    `json:"amountLeft"`
	Status          string     `json:"status"`
	BlockNumber     *uint64    `json:"blockNumber"`
	ExpiredAt       *time.Time `json:"expiredAt"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// PublishCreditTransaction implements credits.EventSink.
func (h *EventHub) PublishCreditTransaction(tx *store.CreditTransaction) {
	msg := creditEvent{
		ID:              tx.ID,
		TransactionHash: tx.TransactionHash,
		Address:         tx.Address,
		Provider:        string(tx.Provider),
		Amount:          tx.Amount,
		AmountLeft:      tx.AmountLeft,
		Status:          string(tx.Status),
		BlockNumber:     tx.BlockNumber,
		ExpiredAt:       tx.ExpiredAt,
		CreatedAt:       tx.CreatedAt,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("marshal credit event", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			go h.closeClient(client)
		}
	}
}

func (h *EventHub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket", zap.Error(err))
		return
	}
	client := &eventClient{
		conn: conn,
		send: make(chan []byte, 32),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go client.writePump()
	go client.readPump(func() {
		h.closeClient(client)
	})
}

func (h *EventHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.conn.Close()
		delete(h.clients, client)
	}
}

// closeClient is reachable from both the slow-client drop path and the
// readPump teardown; the map entry is the de-dup point, so teardown runs only
// for the call that removes it.
func (h *EventHub) closeClient(client *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	client.conn.Close()
	close(client.send)
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *eventClient) readPump(onClose func()) {
	defer onClose()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
