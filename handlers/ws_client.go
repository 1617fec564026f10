package handlers

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"game-match-system/services"
)

const (
	heartbeatInterval = 5 * time.Second
	clientTimeout     = 10 * time.Second
	writeTimeout      = 5 * time.Second
	// grace period after a terminal frame so clients can render the outcome
	resultCloseDelay = 3 * time.Second
)

// WebSocketUpgrader gates stream routes behind a websocket upgrade check.
func WebSocketUpgrader(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type outFrame struct {
	payload []byte
	// closeAfter < 0 means the stream stays open; >= 0 schedules a close with
	// closeCode once the frame is written
	closeAfter time.Duration
	closeCode  int
}

// wsClient pumps outbound frames for one stream. It implements both
// services.MatchConn and services.QueueConn; sends are fire-and-forget and a
// send after the stream closed is silently dropped.
type wsClient struct {
	conn    *websocket.Conn
	out     chan outFrame
	closing chan struct{}
	once    sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn:    conn,
		out:     make(chan outFrame, 32),
		closing: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send implements services.MatchConn. A "result" frame is terminal: the
// stream closes after a short grace period.
func (c *wsClient) Send(r services.Response) {
	payload, err := json.Marshal(r)
	if err != nil {
		log.Printf("⚠️ [WS] failed to encode frame %q: %v", r.Cmd, err)
		return
	}
	frame := outFrame{payload: payload, closeAfter: -1}
	if r.Cmd == "result" {
		frame.closeAfter = resultCloseDelay
		frame.closeCode = websocket.CloseNormalClosure
	}
	c.enqueue(frame)
}

// MatchFound implements services.QueueConn: the single terminal message of a
// matchmaking stream.
func (c *wsClient) MatchFound(matchID uuid.UUID) {
	payload, _ := json.Marshal(map[string]string{"match_id": matchID.String()})
	c.enqueue(outFrame{payload: payload, closeAfter: 0, closeCode: websocket.CloseNormalClosure})
}

func (c *wsClient) enqueue(frame outFrame) {
	select {
	case c.out <- frame:
	case <-c.closing:
	default:
		// slow consumer: drop rather than stall the owning unit
	}
}

func (c *wsClient) writePump() {
	ping := time.NewTicker(heartbeatInterval)
	defer ping.Stop()
	for {
		select {
		case frame := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame.payload); err != nil {
				c.close(websocket.CloseNormalClosure)
				return
			}
			if frame.closeAfter >= 0 {
				code := frame.closeCode
				time.AfterFunc(frame.closeAfter, func() { c.close(code) })
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("hi")); err != nil {
				c.close(websocket.CloseNormalClosure)
				return
			}
		case <-c.closing:
			return
		}
	}
}

// close tears the stream down once; the pending ReadMessage in the handler
// goroutine unblocks with an error.
func (c *wsClient) close(code int) {
	c.once.Do(func() {
		close(c.closing)
		deadline := time.Now().Add(writeTimeout)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
		c.conn.Close()
	})
}

// configureHeartbeat arms the liveness window: any pong (or ping) from the
// client extends the read deadline; silence beyond clientTimeout kills the
// pending read.
func configureHeartbeat(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(clientTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(clientTimeout))
	})
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(clientTimeout))
		deadline := time.Now().Add(writeTimeout)
		return conn.WriteControl(websocket.PongMessage, []byte(appData), deadline)
	})
}
