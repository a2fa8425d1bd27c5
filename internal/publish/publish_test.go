package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
	"github.com/wonny/aegis/v13/perf/pkg/config"
	"github.com/wonny/aegis/v13/perf/pkg/metrics"
)

var published = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleReport(portfolioID string) *contracts.PerformanceReport {
	return &contracts.PerformanceReport{
		ID:          "rep-" + portfolioID,
		PortfolioID: portfolioID,
		GeneratedAt: published,
	}
}

// ============================================================================
// Kafka
// ============================================================================

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "perf.reports", nil)
	p.now = func() time.Time { return published }

	require.NoError(t, p.Publish(context.Background(), sampleReport("pf-1")))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "pf-1", string(msg.Key))
	assert.Equal(t, published, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, EventReportGenerated, string(msg.Headers[0].Value))
	assert.Equal(t, "rep-pf-1", string(msg.Headers[1].Value))

	var event ReportEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventReportGenerated, event.Type)
	assert.Equal(t, "pf-1", event.PortfolioID)
	assert.Equal(t, "rep-pf-1", event.ReportID)
	require.NotNil(t, event.Report)
	assert.Equal(t, "rep-pf-1", event.Report.ID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_Errors(t *testing.T) {
	boom := errors.New("leader not available")
	p := newKafkaPublisher(&fakeWriter{err: boom}, "perf.reports", nil)

	err := p.Publish(context.Background(), sampleReport("pf-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "perf.reports")

	assert.Error(t, p.Publish(context.Background(), nil))
}

func TestNewKafkaPublisher_Config(t *testing.T) {
	_, err := NewKafkaPublisher(config.KafkaConfig{}, nil)
	assert.Error(t, err)

	_, err = NewKafkaPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)

	p, err := NewKafkaPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, ReportTopic: "perf.reports"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "perf.reports", p.topic)
	require.NoError(t, p.Close())
}

// ============================================================================
// Multi / Nop
// ============================================================================

type recordingPublisher struct {
	ids []string
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, report *contracts.PerformanceReport) error {
	r.ids = append(r.ids, report.ID)
	return r.err
}

func TestMulti(t *testing.T) {
	first := &recordingPublisher{err: errors.New("first down")}
	second := &recordingPublisher{}
	multi := Multi{first, nil, second}

	err := multi.Publish(context.Background(), sampleReport("pf-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first down")

	// failure of one sink does not skip the next
	assert.Equal(t, []string{"rep-pf-1"}, second.ids)

	first.err = nil
	assert.NoError(t, multi.Publish(context.Background(), sampleReport("pf-2")))
	assert.Error(t, multi.Publish(context.Background(), nil))
}

func TestNop(t *testing.T) {
	var p contracts.ReportPublisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), sampleReport("pf-1")))
}

// ============================================================================
// Hub
// ============================================================================

func dialHub(t *testing.T, hub *Hub, portfolioID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, portfolioID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ReportEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event ReportEvent
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHub_PublishesToSubscribers(t *testing.T) {
	m := metrics.New()
	hub := NewHub(nil).WithMetrics(m)
	hub.now = func() time.Time { return published }

	pf1 := dialHub(t, hub, "pf-1")
	all := dialHub(t, hub, AllPortfolios)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamClients))

	require.NoError(t, hub.Publish(context.Background(), sampleReport("pf-2")))
	require.NoError(t, hub.Publish(context.Background(), sampleReport("pf-1")))

	// pf-1 subscriber skips pf-2
	event := readEvent(t, pf1)
	assert.Equal(t, "pf-1", event.PortfolioID)
	assert.Equal(t, published, event.PublishedAt)

	assert.Equal(t, "pf-2", readEvent(t, all).PortfolioID)
	assert.Equal(t, "pf-1", readEvent(t, all).PortfolioID)
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub(nil).WithAllowedOrigins([]string{" https://Dash.example.com/ ", ""})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://perf.internal:8080", true},
		{"allowed", "https://dash.example.com", true},
		{"scheme mismatch", "http://dash.example.com", false},
		{"foreign", "https://evil.example.net", false},
		{"garbage", "::not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://perf.internal:8080/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, hub.checkOrigin(req))
		})
	}

	assert.True(t, NewHub(nil).WithAllowedOrigins([]string{"*"}).checkOrigin(func() *http.Request {
		req := httptest.NewRequest("GET", "/ws", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		return req
	}()))
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, "pf-1")
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.net"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Clients())
}

func TestHub_Disconnect(t *testing.T) {
	m := metrics.New()
	hub := NewHub(nil).WithMetrics(m)

	conn := dialHub(t, hub, "pf-1")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StreamClients))

	// publishing with no subscribers is fine
	assert.NoError(t, hub.Publish(context.Background(), sampleReport("pf-1")))
	assert.Error(t, hub.Publish(context.Background(), nil))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	conn := dialHub(t, hub, "pf-1")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
