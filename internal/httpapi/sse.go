package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

// doneData is the data payload of the final SSE message event.
const doneData = "[DONE]"

// chatRequestFromQuery reads a ChatRequest from the URL query.
func chatRequestFromQuery(r *http.Request) (types.ChatRequest, error) {
	q := r.URL.Query()
	req := types.ChatRequest{SessionID: q.Get("session_id"), Prompt: q.Get("prompt")}
	if v := q.Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, err
		}
		req.MaxTokens = n
	}
	return req, nil
}

// writeSSE writes one event. Every line of data becomes its own data field,
// so clients rejoin multi-line chunks with "\n".
func writeSSE(w io.Writer, event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSSEChunk(w io.Writer, c generate.Chunk) error {
	switch c.Kind {
	case generate.ChunkError:
		payload, err := json.Marshal(types.ErrorResponse{Error: c.Text, Code: chunkStatus(c)})
		if err != nil {
			return err
		}
		return writeSSE(w, "error", string(payload))
	case generate.ChunkDone:
		return writeSSE(w, "message", doneData)
	default:
		return writeSSE(w, "message", c.Text)
	}
}

// chatStream godoc
// @Summary      Stream a reply (SSE)
// @Description  Streams text chunks as "message" events, failures as "error" events, and finishes with data [DONE].
// @Tags         chat
// @Produce      text/event-stream
// @Param        session_id  query     string  true   "Session identifier"
// @Param        prompt      query     string  false  "Prompt text"
// @Param        max_tokens  query     int     false  "Step budget"
// @Success      200
// @Failure      400  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /chat/stream [get]
func (a *api) chatStream(w http.ResponseWriter, r *http.Request) {
	req, err := chatRequestFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "max_tokens must be an integer")
		return
	}
	rc := http.NewResponseController(w)
	rl := newReqLog(r, "/chat/stream")

	ctx, cancel := requestContext(r)
	defer cancel()
	st, err := a.svc.Stream(ctx, req)
	if err != nil {
		status := writeServiceError(w, err)
		rl.event(LevelError).Int("status", status).Err(err).Msg("stream rejected")
		return
	}
	// Closing tells the run the client left; a no-op once the run finished.
	defer st.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	streamsOpen.WithLabelValues("sse").Inc()
	defer streamsOpen.WithLabelValues("sse").Dec()
	start := time.Now()
	rl.event(LevelInfo).Str("session_id", req.SessionID).Msg("stream start")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	chunks := st.Chunks()
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				rl.event(LevelInfo).Str("session_id", req.SessionID).Dur("dur", time.Since(start)).Msg("stream end")
				return
			}
			rl.event(LevelDebug).Str("kind", c.Kind.String()).Str("text", c.Text).Msg("chunk")
			if err := writeSSEChunk(w, c); err != nil {
				streamDisconnects.WithLabelValues("sse").Inc()
				rl.event(LevelInfo).Str("session_id", req.SessionID).Err(err).Msg("stream write failed")
				return
			}
			if err := rc.Flush(); err != nil {
				streamDisconnects.WithLabelValues("sse").Inc()
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				streamDisconnects.WithLabelValues("sse").Inc()
				return
			}
			_ = rc.Flush()
		case <-ctx.Done():
			streamDisconnects.WithLabelValues("sse").Inc()
			rl.event(LevelInfo).Str("session_id", req.SessionID).Dur("dur", time.Since(start)).Msg("stream client gone")
			return
		}
	}
}
