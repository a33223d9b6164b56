package waypoint

import "log/slog"

// Option configures a Manager.
type Option func(*Manager)

// WithUndoCapacity sets the maximum number of retained undo waypoints.
// Non-positive values are ignored and the default (30) is kept.
func WithUndoCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.undoCap = n
		}
	}
}

// WithRedoCapacity sets the maximum number of retained redo waypoints.
// Non-positive values are ignored and the default (10) is kept.
func WithRedoCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.redoCap = n
		}
	}
}

// WithLogger sets the structured logger for debug records. The default
// discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTruthyCapture restores the legacy capture rule: zero, false, and
// empty values are excluded from snapshots in addition to nil. This
// silently drops legitimate zero-valued state and exists only for
// callers that need snapshots compatible with the old behavior.
func WithTruthyCapture() Option {
	return func(m *Manager) {
		m.truthyCapture = true
	}
}
