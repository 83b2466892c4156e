package api

import (
	"context"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/bridge"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

const (
	writeWait      = 10 * time.Second
	maxFrameSize   = 4 << 20
	closeFrameWait = time.Second
)

// handleWebSocket handles GET /ws. Every text frame from the client is one
// request; every frame sent back is a response or an event.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		jww.WARN.Printf("Websocket upgrade from %s failed: %v", c.ClientIP(), err)
		return
	}
	defer conn.Close()

	session, err := s.node.Open()
	if err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, err.Error())
		return
	}
	jww.INFO.Printf("Client %s attached as session %s", c.ClientIP(), session.ID())

	ctx, cancel := context.WithCancel(context.Background())
	written := make(chan struct{})
	go func() {
		defer close(written)
		s.writePump(ctx, conn, session)
		// unblocks the read pump when the node goes away
		conn.Close()
	}()

	s.readPump(ctx, conn, session)
	session.Close()
	cancel()
	<-written
	jww.INFO.Printf("Session %s detached", session.ID())
}

// readPump feeds client frames to the session until the connection or the
// node goes away. Each frame is answered before the next one is read.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, session *bridge.Session) {
	conn.SetReadLimit(maxFrameSize)
	s.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		s.extendDeadline(conn)
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				jww.DEBUG.Printf("Session %s: read: %v", session.ID(), err)
			}
			return
		}
		s.extendDeadline(conn)

		if err := session.HandleFrame(ctx, data); err != nil {
			jww.DEBUG.Printf("Session %s: %v", session.ID(), err)
			return
		}
	}
}

// writePump delivers the session outbox and keeps the connection alive
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, session *bridge.Session) {
	if s.config.PingInterval > 0 {
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						return
					}
				}
			}
		}()
	}

	for {
		msg, err := session.Next(ctx)
		if errors.Is(err, events.ErrClosed) {
			closeWith(conn, websocket.CloseNormalClosure, "")
			return
		}
		if err != nil {
			return
		}

		data, err := msg.Encode()
		if err != nil {
			jww.ERROR.Printf("Session %s: dropping frame: %+v", session.ID(), err)
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			jww.DEBUG.Printf("Session %s: write: %v", session.ID(), err)
			return
		}
	}
}

func (s *Server) extendDeadline(conn *websocket.Conn) {
	if s.config.PingInterval > 0 {
		conn.SetReadDeadline(time.Now().Add(2 * s.config.PingInterval))
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameWait))
}
