package manager

import (
	"time"

	"chatd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		State:          string(m.state),
		Model:          m.model.ID,
		MaxSteps:       m.ceiling,
		ActiveSessions: len(m.runs),
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		TurnsSaved:     m.turnsSaved.Load(),
		TurnsFailed:    m.turnsFailed.Load(),
		LastError:      m.err,
	}
	if m.handle != nil {
		resp.Inflight = m.handle.Inflight()
		resp.QueueLen = m.handle.Waiting()
		resp.MaxQueueDepth = m.handle.MaxQueueDepth()
		queueLength.Set(float64(resp.QueueLen))
	}
	return resp
}
