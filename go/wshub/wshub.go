// Package wshub fans binary frames out to every connected websocket
// spectator. Connections register on upgrade and unregister on any read or
// write failure; broadcasting only ever enqueues onto per-client buffered
// channels, so a slow client can never stall a click.
package wshub

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// sendBufferSize is the per-client queue of pending frames. A client
	// that falls this far behind is disconnected.
	sendBufferSize = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	metricClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hexfield_ws_clients",
		Help: "Number of connected websocket clients.",
	})
	metricFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexfield_ws_frames_sent_total",
		Help: "Binary frames enqueued to websocket clients.",
	})
	metricSlowDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexfield_ws_slow_client_drops_total",
		Help: "Clients dropped because their send queue overflowed.",
	})
)

// Hub is the shared set of websocket connections. Safe for concurrent use.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mutex   sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New returns an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The push channel is public and carries no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: map[*client]bool{},
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// it dies.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(c)
	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast enqueues the frame for every connected client. Clients whose
// queue is full are dropped rather than waited on; the mutex is never held
// across I/O.
func (h *Hub) Broadcast(frame []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
			metricFramesSent.Inc()
		default:
			metricSlowDrops.Inc()
			h.removeLocked(c)
		}
	}
}

// NumClients returns the number of connected clients.
func (h *Hub) NumClients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c] = true
	metricClients.Set(float64(len(h.clients)))
}

func (h *Hub) remove(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metricClients.Set(float64(len(h.clients)))
}

// readPump discards inbound messages; clients have nothing to say on this
// channel, but reading is what surfaces closes and keeps pongs flowing.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
