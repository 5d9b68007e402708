package manager

import "context"

// registerLocked records cancel for a run of sessionID. m.mu must be held.
func (m *Manager) registerLocked(sessionID string, cancel context.CancelFunc) uint64 {
	m.nextRun++
	id := m.nextRun
	byID := m.runs[sessionID]
	if byID == nil {
		byID = make(map[uint64]context.CancelFunc)
		m.runs[sessionID] = byID
	}
	byID[id] = cancel
	return id
}

func (m *Manager) unregister(sessionID string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.runs[sessionID]
	delete(byID, id)
	if len(byID) == 0 {
		delete(m.runs, sessionID)
	}
}

// Cancel stops every in-flight run of sessionID and returns how many were
// signalled. Cancelled runs still deliver their completion marker and are
// persisted with the text generated so far.
func (m *Manager) Cancel(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byID := m.runs[sessionID]
	for _, cancel := range byID {
		cancel()
	}
	if n := len(byID); n > 0 {
		m.log.Info().Str("session_id", sessionID).Int("runs", n).Msg("cancel requested")
	}
	return len(byID)
}
