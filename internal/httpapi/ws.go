package httpapi

import (
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

const (
	wsWriteWait   = 10 * time.Second
	wsReadLimit   = 64 * 1024
	wsRequestWait = 30 * time.Second
	frameChunk    = "chunk"
	frameError    = "error"
	frameDone     = "done"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts same-host handshakes and, with CORS enabled, the
// configured origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	return originAllowed(origin)
}

func frameFor(c generate.Chunk) types.StreamFrame {
	switch c.Kind {
	case generate.ChunkError:
		return types.StreamFrame{Type: frameError, Error: c.Text, Code: chunkStatus(c)}
	case generate.ChunkDone:
		return types.StreamFrame{Type: frameDone}
	default:
		return types.StreamFrame{Type: frameChunk, Text: c.Text}
	}
}

func writeFrame(conn *websocket.Conn, f types.StreamFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// chatWS godoc
// @Summary      Stream a reply (WebSocket)
// @Description  The client sends one ChatRequest; the server answers with chunk frames and a final done frame, or an error frame.
// @Tags         chat
// @Success      101
// @Router       /chat/ws [get]
func (a *api) chatWS(w http.ResponseWriter, r *http.Request) {
	rl := newReqLog(r, "/chat/ws")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		rl.event(LevelError).Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	_ = conn.SetReadDeadline(time.Now().Add(wsRequestWait))
	var req types.ChatRequest
	_, msg, err := conn.ReadMessage()
	if err != nil {
		rl.event(LevelInfo).Err(err).Msg("websocket closed before request")
		return
	}
	if err := json.Unmarshal(msg, &req); err != nil {
		_ = writeFrame(conn, types.StreamFrame{Type: frameError, Error: "invalid JSON request"})
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()
	st, err := a.svc.Stream(ctx, req)
	if err != nil {
		_ = writeFrame(conn, types.StreamFrame{Type: frameError, Error: err.Error(), Code: statusFor(err)})
		return
	}
	defer st.Close()

	streamsOpen.WithLabelValues("ws").Inc()
	defer streamsOpen.WithLabelValues("ws").Dec()
	start := time.Now()
	rl.event(LevelInfo).Str("session_id", req.SessionID).Msg("stream start")

	// The reader only watches for the peer going away; further messages are
	// ignored. Pongs push the read deadline forward.
	gone := make(chan struct{})
	_ = conn.SetReadDeadline(time.Now().Add(2 * keepAliveInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * keepAliveInterval))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	chunks := st.Chunks()
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				rl.event(LevelInfo).Str("session_id", req.SessionID).Dur("dur", time.Since(start)).Msg("stream end")
				return
			}
			rl.event(LevelDebug).Str("kind", c.Kind.String()).Str("text", c.Text).Msg("chunk")
			if err := writeFrame(conn, frameFor(c)); err != nil {
				streamDisconnects.WithLabelValues("ws").Inc()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				streamDisconnects.WithLabelValues("ws").Inc()
				return
			}
		case <-gone:
			streamDisconnects.WithLabelValues("ws").Inc()
			rl.event(LevelInfo).Str("session_id", req.SessionID).Dur("dur", time.Since(start)).Msg("stream client gone")
			return
		case <-ctx.Done():
			return
		}
	}
}
