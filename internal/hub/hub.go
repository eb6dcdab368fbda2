// Package hub pushes the auction board to websocket clients after every
// change.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
)

const (
	outboxSize   = 8
	writeTimeout = 5 * time.Second
)

// Message is the envelope written to clients.
type Message struct {
	Type  string          `json:"type"`
	Board dashboard.Board `json:"board"`
}

// Msg is a request handled by the hub loop.
type Msg interface{ isHubMsg() }

// Join registers a client outbox. The latest board, if any, is sent at once.
type Join struct {
	ClientID string
	Outbox   chan []byte
}

// Leave unregisters a client.
type Leave struct{ ClientID string }

// Count reports the number of connected clients.
type Count struct{ Reply chan int }

// Shutdown closes every outbox and stops the loop.
type Shutdown struct{}

func (Join) isHubMsg()     {}
func (Leave) isHubMsg()    {}
func (Count) isHubMsg()    {}
func (Shutdown) isHubMsg() {}

// Hub fans board updates out to connected clients. A single goroutine owns
// the client set; clients that fall behind are dropped.
type Hub struct {
	inbox   chan Msg
	boards  chan []byte
	clients map[string]chan []byte
	latest  []byte
	origins []string
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts a hub bound to parent. origins lists the host patterns
// allowed to connect from a browser; empty means same-origin only.
func New(parent context.Context, logger *slog.Logger, origins ...string) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		boards:  make(chan []byte, 1),
		clients: make(map[string]chan []byte),
		origins: origins,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Publish queues the board for st. Only the newest pending board is kept,
// so Publish never blocks on slow clients.
func (h *Hub) Publish(st auction.State) {
	payload, err := json.Marshal(Message{Type: "board", Board: dashboard.Build(st)})
	if err != nil {
		h.logger.Error("failed to encode board", slog.Any("error", err))
		return
	}
	for {
		select {
		case h.boards <- payload:
			return
		default:
		}
		select {
		case <-h.boards:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	if !h.send(Count{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.ctx.Done():
		return 0
	}
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.send(Shutdown{})
}

// Handler upgrades the request to a websocket and streams boards until
// the client goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
		if err != nil {
			h.logger.WarnContext(r.Context(), "websocket accept failed", slog.Any("error", err))
			return
		}
		defer conn.CloseNow()

		// Clients never send; CloseRead handles control frames and
		// cancels ctx once the peer disconnects.
		ctx := conn.CloseRead(r.Context())

		id := uuid.NewString()
		out := make(chan []byte, outboxSize)
		if !h.send(Join{ClientID: id, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		}
		defer h.send(Leave{ClientID: id})

		h.logger.DebugContext(ctx, "websocket client connected", slog.String("client_id", id))

		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-out:
				if !ok {
					conn.Close(websocket.StatusTryAgainLater, "client too slow or hub closed")
					return
				}
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err := conn.Write(wctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					h.logger.DebugContext(ctx, "websocket write failed",
						slog.String("client_id", id),
						slog.Any("error", err),
					)
					return
				}
			}
		}
	}
}

func (h *Hub) send(m Msg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case payload := <-h.boards:
			h.latest = payload
			h.broadcast(payload)

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				if h.latest != nil {
					msg.Outbox <- h.latest
				}

			case Leave:
				delete(h.clients, msg.ClientID)

			case Count:
				msg.Reply <- len(h.clients)

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(payload []byte) {
	for id, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			close(ch)
			delete(h.clients, id)
			h.logger.Warn("dropping slow websocket client", slog.String("client_id", id))
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.cancel()
}
