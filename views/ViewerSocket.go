package views

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/GrainArc/RealmMap/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 查看器事件通道

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 64,
}

const pingInterval = 30 * time.Second

// socketSession 一条 WebSocket 连接，写操作需持锁
type socketSession struct {
	conn   *websocket.Conn
	viewer *services.ViewerSession
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *socketSession) writeJSON(msg SocketMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *socketSession) writeFrame(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Socket 升级为 WebSocket：接收 JSON 事件，返回状态 JSON 和 PNG 帧
func (h *ViewerHandler) Socket(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to websocket: %v", err)
		return
	}

	detach := h.viewer.Attach(sess)
	defer detach()

	ctx, cancel := context.WithCancel(context.Background())
	socket := &socketSession{conn: conn, viewer: sess, ctx: ctx, cancel: cancel}
	h.handleSocket(socket)
}

func (h *ViewerHandler) handleSocket(socket *socketSession) {
	defer func() {
		socket.cancel()
		socket.conn.Close()
		log.Printf("查看器 %s WebSocket 已关闭", socket.viewer.ID)
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	go func() {
		for {
			select {
			case <-socket.ctx.Done():
				return
			case <-pingTicker.C:
				socket.mu.Lock()
				err := socket.conn.WriteMessage(websocket.PingMessage, nil)
				socket.mu.Unlock()
				if err != nil {
					log.Printf("Ping failed: %v", err)
					socket.cancel()
					return
				}
			}
		}
	}()

	if !h.pushUpdate(socket, true) {
		return
	}

	for {
		select {
		case <-socket.ctx.Done():
			return
		default:
		}

		var ev ViewerEvent
		if err := socket.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		h.viewer.Touch(socket.viewer)

		rerender, err := h.apply(socket.ctx, socket.viewer, ev)
		if err != nil && !errors.Is(err, services.ErrStaleLoad) {
			msg := err.Error()
			if st := socket.viewer.State(); st.Error != "" && (ev.Type == EventLoad || ev.Type == EventUpload) {
				msg = st.Error
			}
			if werr := socket.writeJSON(SocketMessage{Type: "error", Message: msg}); werr != nil {
				return
			}
		}
		if !h.pushUpdate(socket, rerender && err == nil) {
			return
		}
	}
}

// pushUpdate 发送状态，需要时附带新帧；写失败返回 false
func (h *ViewerHandler) pushUpdate(socket *socketSession, withFrame bool) bool {
	state := socket.viewer.State()
	if err := socket.writeJSON(SocketMessage{Type: "state", State: &state}); err != nil {
		log.Printf("Failed to send state: %v", err)
		return false
	}
	if !withFrame {
		return true
	}

	data, err := h.viewer.Frame(socket.ctx, socket.viewer)
	switch {
	case errors.Is(err, services.ErrDegenerate), errors.Is(err, services.ErrNoMap):
		return true
	case err != nil:
		log.Printf("渲染失败: %v", err)
		return socket.writeJSON(SocketMessage{Type: "error", Message: err.Error()}) == nil
	}
	if err := socket.writeFrame(data); err != nil {
		log.Printf("Failed to send frame: %v", err)
		return false
	}
	return true
}
