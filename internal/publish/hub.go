package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/pkg/logger"
	"github.com/wonny/aegis/v13/perf/pkg/metrics"
)

const (
	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	sendBuffer   = 16
	maxReadBytes = 512
)

// AllPortfolios subscribes a stream client to every portfolio
const AllPortfolios = "*"

// Hub pushes fresh reports to websocket subscribers of a portfolio
// ⭐ SSOT: 대시보드 실시간 스트림은 이 허브에서만
type Hub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	closed  bool

	upgrader websocket.Upgrader
	origins  map[string]bool // scheme://host, 소문자
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type streamClient struct {
	conn        *websocket.Conn
	portfolioID string
	send        chan []byte
	closeOnce   sync.Once
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	h := &Hub{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		origins: make(map[string]bool),
		logger:  log.Component("publish.hub"),
		now:     time.Now,
	}
	h.upgrader.CheckOrigin = h.checkOrigin
	return h
}

// WithAllowedOrigins lets browsers on origins (e.g. "https://dash.example.com")
// open streams besides same-host pages. "*" allows any origin.
func (h *Hub) WithAllowedOrigins(origins []string) *Hub {
	for _, o := range origins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o != "" {
			h.origins[o] = true
		}
	}
	return h
}

// checkOrigin accepts non-browser clients (no Origin), same-host pages and the allow list
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.origins["*"] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return h.origins[strings.ToLower(u.Scheme+"://"+u.Host)]
}

// WithMetrics tracks the connected client count
func (h *Hub) WithMetrics(m *metrics.Metrics) *Hub {
	h.metrics = m
	return h
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams reports of portfolioID until the
// peer disconnects. The upgrader has already replied when an error is returned.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, portfolioID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &streamClient{
		conn:        conn,
		portfolioID: portfolioID,
		send:        make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return conn.Close()
	}

	h.logger.WithFields(map[string]interface{}{
		"portfolio_id": portfolioID,
		"remote":       r.RemoteAddr,
	}).Info("Stream client connected")

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Publish implements contracts.ReportPublisher. Slow clients miss the report
// instead of blocking the analysis.
func (h *Hub) Publish(_ context.Context, report *contracts.PerformanceReport) error {
	if report == nil {
		return errors.New("hub: nil report")
	}

	payload, err := json.Marshal(newEvent(report, h.now()))
	if err != nil {
		return fmt.Errorf("hub: marshal report %s: %w", report.ID, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.portfolioID != AllPortfolios && c.portfolioID != report.PortfolioID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.WithField("portfolio_id", c.portfolioID).Warn("Stream client too slow, report dropped")
		}
	}
	return nil
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.StreamClients.Inc()
	}
	return true
}

func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	if ok && h.metrics != nil {
		h.metrics.StreamClients.Dec()
	}
	h.mu.Unlock()

	// send는 register 해제 후에만 닫음 (Publish는 RLock 안에서 전송)
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump discards inbound frames and detects disconnects via pong deadlines
func (h *Hub) readPump(c *streamClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Stream client read failed")
			}
			return
		}
	}
}

// writePump owns all writes to the connection
func (h *Hub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.WithError(err).Debug("Stream client write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
