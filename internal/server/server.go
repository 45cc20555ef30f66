package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/lotas/readlater/internal/applog"
	"nhooyr.io/websocket"
)

// Message types exchanged with the browser extension.
const (
	TypeSaveRequest    = "SAVE_PAGE_REQUEST"
	TypeSaved          = "PAGE_SAVED_SUCCESS"
	TypeInjectSession  = "INJECT_SESSION"
	TypeSessionApplied = "SESSION_APPLIED"
)

// IncomingMsg is a message from the extension.
type IncomingMsg struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SessionStr string          `json:"sessionStr,omitempty"`

	conn *websocket.Conn // connection the message arrived on
	ctx  context.Context
}

// OutgoingMsg is a reply to the extension.
type OutgoingMsg struct {
	Type   string `json:"type"`
	Notice string `json:"notice,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Bridge manages the WebSocket connection to the extension. Only the most
// recent connection is kept.
type Bridge struct {
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
}

// NewBridge creates a Bridge with a buffered message queue.
func NewBridge() *Bridge {
	return &Bridge{msgs: make(chan IncomingMsg, 64)}
}

// Messages returns the channel of incoming messages from the extension.
func (b *Bridge) Messages() <-chan IncomingMsg {
	return b.msgs
}

// Connected reports whether an extension is connected.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Reply answers msg on the connection it arrived on. A connection that has
// gone away is not an error.
func (b *Bridge) Reply(msg IncomingMsg, out OutgoingMsg) error {
	if msg.conn == nil {
		return nil
	}
	b.mu.Lock()
	live := b.conn == msg.conn
	b.mu.Unlock()
	if !live {
		applog.Debug("ws.reply_dropped", "type", out.Type)
		return nil
	}

	applog.Info("ws.send", "type", out.Type)
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return msg.conn.Write(msg.ctx, websocket.MessageText, data)
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(1 << 20)

		ctx := r.Context()
		b.mu.Lock()
		if b.conn != nil {
			applog.Info("ws.replaced")
			b.conn.CloseNow()
		}
		b.conn = conn
		b.connCtx = ctx
		b.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
				b.connCtx = nil
			}
			b.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			msg, err := ParseMessage(data)
			if err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			msg.conn = conn
			msg.ctx = ctx
			applog.Info("ws.recv", "type", msg.Type)
			select {
			case b.msgs <- msg:
			default:
				applog.Warn("ws.queue_full", "type", msg.Type)
			}
		}
	})
}

// Close drops the current connection, if any.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.CloseNow()
	}
}
