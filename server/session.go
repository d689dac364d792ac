package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TFMV/webgraph/models"
	"github.com/TFMV/webgraph/render"
	"github.com/TFMV/webgraph/widget"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// clientMessage is one browser event. Pointer kinds carry client
// coordinates; resize carries the canvas origin and the pixel ratio.
type clientMessage struct {
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	Ratio float64 `json:"ratio"`
}

// notice is a control message for the browser
type notice struct {
	Reload bool `json:"reload,omitempty"`
}

var pointerKinds = map[string]widget.PointerKind{
	"move":  widget.PointerMove,
	"down":  widget.PointerDown,
	"up":    widget.PointerUp,
	"leave": widget.PointerLeave,
}

// Session is one connected browser tab and the widget it drives
type Session struct {
	ID string

	conn    *websocket.Conn
	widget  *widget.Widget
	bus     *widget.EventBus
	handle  *widget.Handle
	logger  *log.Logger
	frames  chan render.Frame
	notices chan notice
	done    chan struct{}

	mu     sync.Mutex
	offset models.Position

	closeOnce sync.Once
	onClose   func()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	sess := &Session{
		ID:      uuid.NewString(),
		conn:    conn,
		widget:  s.newWidget(s.Seed()),
		bus:     widget.NewEventBus(),
		frames:  make(chan render.Frame, 1),
		notices: make(chan notice, 4),
		done:    make(chan struct{}),
	}
	sess.logger = s.logger.With("session", sess.ID)
	sess.onClose = func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		s.metrics.SessionClosed()
	}

	sess.handle = sess.widget.Run(widget.Host{
		Events:  sess.bus,
		Frames:  widget.NewTickerScheduler(s.cfg.FrameRate),
		Surface: render.NewRecorder(sess.push),
		Offset:  sess.origin,
	})

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.metrics.SessionOpened()
	sess.logger.Info("session opened", "remote", r.RemoteAddr)

	go sess.writer()
	sess.reader()
}

// push hands a frame to the writer, replacing one it has not sent yet
func (sess *Session) push(f render.Frame) error {
	select {
	case sess.frames <- f:
		return nil
	default:
	}
	select {
	case <-sess.frames:
	default:
	}
	select {
	case sess.frames <- f:
	default:
	}
	return nil
}

func (sess *Session) notify(n notice) {
	select {
	case sess.notices <- n:
	case <-sess.done:
	default:
		sess.logger.Warn("notice dropped", "reload", n.Reload)
	}
}

func (sess *Session) origin() models.Position {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.offset
}

func (sess *Session) reader() {
	defer sess.close()

	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Warn("unexpected close", "err", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.logger.Debug("bad message", "err", err)
			continue
		}
		sess.handleMessage(msg)
	}
}

func (sess *Session) handleMessage(msg clientMessage) {
	if kind, ok := pointerKinds[msg.Kind]; ok {
		sess.bus.Publish(widget.PointerEvent{Kind: kind, X: msg.X, Y: msg.Y})
		return
	}

	switch msg.Kind {
	case "resize":
		sess.mu.Lock()
		sess.offset = models.Position{X: msg.Left, Y: msg.Top}
		sess.mu.Unlock()
		sess.widget.SetPixelRatio(msg.Ratio)
	default:
		sess.logger.Debug("unknown message kind", "kind", msg.Kind)
	}
}

func (sess *Session) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-sess.frames:
			if err := sess.write(f); err != nil {
				sess.close()
				return
			}
		case n := <-sess.notices:
			if err := sess.write(n); err != nil {
				sess.close()
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sess.close()
				return
			}
		case <-sess.done:
			return
		}
	}
}

func (sess *Session) write(v any) error {
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteJSON(v)
}

// close releases the widget and drops the connection
func (sess *Session) close() {
	sess.closeOnce.Do(func() {
		sess.handle.Release()
		close(sess.done)
		sess.conn.Close()
		if sess.onClose != nil {
			sess.onClose()
		}
		sess.logger.Info("session closed")
	})
}
