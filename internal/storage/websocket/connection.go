package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/sailsitl/sailsim/pkg/streaming"
)

const (
	sendChSize = 10_000
	ackChSize  = 16
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// retryPolicy bounds the reconnect loop.
type retryPolicy struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}

var defaultRetry = retryPolicy{attempts: 10, initial: time.Second, max: 30 * time.Second}

func (p retryPolicy) next(d time.Duration) time.Duration {
	return min(2*d, p.max)
}

// connection owns one viewer socket. A single writer goroutine drains
// sendCh; a reader routes acks to ackCh.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	lost   chan struct{} // closed when conn is torn down
	closed bool

	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}

	endpoint string // with the secret query set
	retry    retryPolicy
	startMsg []byte // replayed after a reconnect

	logger *slog.Logger
}

func newConnection(logger *slog.Logger, retry retryPolicy) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		retry:  retry,
		logger: logger,
	}
}

func viewerURL(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// dial connects and starts the loops.
func (c *connection) dial(rawURL, secret string) error {
	endpoint, err := viewerURL(rawURL, secret)
	if err != nil {
		return err
	}
	c.endpoint = endpoint

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn current and starts its read and write loops.
func (c *connection) attach(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.lost = make(chan struct{})
	lost := c.lost
	c.mu.Unlock()

	go c.writeLoop(conn, lost)
	go c.readLoop(conn)
}

func writeFrame(conn *ws.Conn, kind int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(kind, data)
}

// writeLoop serves one connection until it fails, is replaced or the
// backend shuts down.
func (c *connection) writeLoop(conn *ws.Conn, lost chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-c.done:
			return
		case <-lost:
			return
		case <-ping.C:
			err = writeFrame(conn, ws.PingMessage, nil)
		case data := <-c.sendCh:
			err = writeFrame(conn, ws.TextMessage, data)
		}
		if err != nil {
			c.logger.Warn("WebSocket write error", "error", err)
			go c.reconnect(conn)
			return
		}
	}
}

func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("WebSocket read error", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Ignoring viewer message", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces the failed connection, backing off between dials. The
// open run's start_run goes out first on the new connection.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != failed {
		// shut down, or the other loop got here first
		c.mu.Unlock()
		return
	}
	_ = failed.Close()
	c.conn = nil
	close(c.lost)
	c.mu.Unlock()

	backoff := c.retry.initial
	for attempt := 1; attempt <= c.retry.attempts; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err == nil {
			err = c.replayStart(conn)
		}
		if err != nil {
			c.logger.Warn("Reconnect failed", "attempt", attempt, "backoff", backoff, "error", err)
			backoff = c.retry.next(backoff)
			continue
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}

	c.logger.Error("Giving up on viewer connection", "attempts", c.retry.attempts)
}

func (c *connection) replayStart(conn *ws.Conn) error {
	c.mu.Lock()
	start := c.startMsg
	c.mu.Unlock()

	if start == nil {
		return nil
	}
	if err := writeFrame(conn, ws.TextMessage, start); err != nil {
		_ = conn.Close()
		return fmt.Errorf("replay start_run: %w", err)
	}
	return nil
}

// setStart records the start_run message to replay, nil when no run is open.
func (c *connection) setStart(data []byte) {
	c.mu.Lock()
	c.startMsg = data
	c.mu.Unlock()
}

// send queues data for the writer. It reports false when the queue is full
// and the message was dropped.
func (c *connection) send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
		return false
	}
}

// sendAndWait sends data and waits for the viewer to ack ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close says goodbye to the viewer and stops the loops.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = writeFrame(conn, ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return conn.Close()
}
