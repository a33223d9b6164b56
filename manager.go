package waypoint

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"

	"github.com/dshills/waypoint/notify"
	"github.com/dshills/waypoint/propstore"
)

// Default stack capacities.
const (
	DefaultUndoCapacity = 30
	DefaultRedoCapacity = 10
)

// Common errors for manager operations.
var (
	ErrNilStore      = errors.New("nil property store")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrManagerClosed = errors.New("manager closed")
)

// Manager records named waypoints onto a bounded undo stack and supports
// reverting to or reapplying them. It is bound to one store and one
// capture specification for its entire life.
//
// All methods are safe for concurrent use. Notifications are delivered
// synchronously on the goroutine that called Undo or Redo, after the
// store mutation and before the call returns.
type Manager struct {
	mu sync.Mutex

	store       propstore.Store
	captureKeys []string

	undoStack []*Waypoint
	redoStack []*Waypoint

	undoCap int
	redoCap int

	enabled bool
	closed  bool

	// Capture rule: by default only absent/nil values are excluded.
	truthyCapture bool

	undoEvents *notify.Channel
	redoEvents *notify.Channel

	logger *slog.Logger
}

// New creates a manager bound to store, capturing the given property
// identifiers in order. The capture list may be empty; the store must
// not be nil.
func New(store propstore.Store, captureKeys []string, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	m := &Manager{
		store:       store,
		captureKeys: append([]string(nil), captureKeys...),
		undoCap:     DefaultUndoCapacity,
		redoCap:     DefaultRedoCapacity,
		enabled:     true,
		undoEvents:  notify.NewChannel(notify.KindUndo),
		redoEvents:  notify.NewChannel(notify.KindRedo),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// SetWaypoint captures the current value of every property in the
// capture specification and appends the snapshot to the undo stack.
// Capturing clears the redo stack and evicts the oldest undo entries
// beyond capacity. While the manager is disabled or closed this is a
// no-op.
func (m *Manager) SetWaypoint(name string) {
	m.mu.Lock()
	if m.closed || !m.enabled {
		m.mu.Unlock()
		return
	}
	keys := m.captureKeys
	m.mu.Unlock()

	// Read the store outside the lock; captures may hit slow targets.
	props := make(map[string]any, len(keys))
	for _, key := range keys {
		val, err := m.store.Get(key)
		if err != nil {
			m.logger.Debug("capture skipped property", "key", key, "error", err)
			continue
		}
		if m.excluded(val) {
			continue
		}
		props[key] = val
	}

	wp := NewWaypoint(name, props)

	m.mu.Lock()
	if m.closed || !m.enabled {
		m.mu.Unlock()
		return
	}

	m.undoStack = append(m.undoStack, wp)
	m.redoStack = nil

	if len(m.undoStack) > m.undoCap {
		excess := len(m.undoStack) - m.undoCap
		m.undoStack = m.undoStack[excess:]
		m.logger.Debug("evicted oldest waypoints", "count", excess)
	}
	m.mu.Unlock()

	m.logger.Debug("waypoint captured", "name", wp.Name, "properties", len(wp.Props))
}

// Undo restores the most recently captured waypoint onto the store and
// moves it to the redo stack, emitting one undo event carrying its name.
// Returns ErrNothingToUndo when the undo stack is empty; nothing is
// mutated and nothing is emitted.
//
// If a store write fails the waypoint is restored to the undo stack and
// the error is returned.
func (m *Manager) Undo() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if len(m.undoStack) == 0 {
		m.mu.Unlock()
		return ErrNothingToUndo
	}

	wp := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.mu.Unlock()

	// Apply without holding the lock.
	if err := m.apply(wp); err != nil {
		m.mu.Lock()
		m.undoStack = append(m.undoStack, wp)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.redoStack = append(m.redoStack, wp)
	if len(m.redoStack) > m.redoCap {
		m.redoStack = m.redoStack[len(m.redoStack)-m.redoCap:]
	}
	m.mu.Unlock()

	m.logger.Debug("undo applied", "name", wp.Name)
	m.undoEvents.Emit(wp.Name)
	return nil
}

// Redo reapplies the most recently undone waypoint onto the store and
// moves it back to the undo stack, emitting one redo event carrying its
// name. Returns ErrNothingToRedo when the redo stack is empty.
func (m *Manager) Redo() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if len(m.redoStack) == 0 {
		m.mu.Unlock()
		return ErrNothingToRedo
	}

	wp := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.mu.Unlock()

	if err := m.apply(wp); err != nil {
		m.mu.Lock()
		m.redoStack = append(m.redoStack, wp)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.undoStack = append(m.undoStack, wp)
	if len(m.undoStack) > m.undoCap {
		m.undoStack = m.undoStack[len(m.undoStack)-m.undoCap:]
	}
	m.mu.Unlock()

	m.logger.Debug("redo applied", "name", wp.Name)
	m.redoEvents.Emit(wp.Name)
	return nil
}

// apply writes every captured pair back onto the store. Properties not
// present in the snapshot are left untouched.
func (m *Manager) apply(wp *Waypoint) error {
	for key, val := range wp.Props {
		if err := m.store.Set(key, val); err != nil {
			return fmt.Errorf("restoring property %q: %w", key, err)
		}
	}
	return nil
}

// Reset clears both stacks. No notification is emitted.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.undoStack = nil
	m.redoStack = nil
}

// CanUndo returns the waypoint the next Undo call would apply, or false
// when the undo stack is empty. The returned waypoint is live; treat it
// as read-only.
func (m *Manager) CanUndo() (*Waypoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undoStack) == 0 {
		return nil, false
	}
	return m.undoStack[len(m.undoStack)-1], true
}

// CanRedo returns the waypoint the next Redo call would apply, or false
// when the redo stack is empty.
func (m *Manager) CanRedo() (*Waypoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redoStack) == 0 {
		return nil, false
	}
	return m.redoStack[len(m.redoStack)-1], true
}

// UndoCount returns the number of retained undo waypoints.
func (m *Manager) UndoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undoStack)
}

// RedoCount returns the number of retained redo waypoints.
func (m *Manager) RedoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redoStack)
}

// UndoHistory returns info about retained undo entries, oldest first.
func (m *Manager) UndoHistory() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stackInfo(m.undoStack)
}

// RedoHistory returns info about retained redo entries, oldest first.
func (m *Manager) RedoHistory() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stackInfo(m.redoStack)
}

func stackInfo(stack []*Waypoint) []Info {
	result := make([]Info, len(stack))
	for i, wp := range stack {
		result[i] = Info{Name: wp.Name, CreatedAt: wp.CreatedAt}
	}
	return result
}

// SetEnabled turns waypoint capture on or off. Disabling discards all
// history; enabling leaves the stacks untouched.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = enabled
	if !enabled {
		m.undoStack = nil
		m.redoStack = nil
	}
}

// Toggle flips the enabled state, with SetEnabled semantics.
func (m *Manager) Toggle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = !m.enabled
	if !m.enabled {
		m.undoStack = nil
		m.redoStack = nil
	}
}

// Enabled reports whether waypoint capture is active.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// OverrideStacks replaces either stack wholesale with a caller-supplied
// sequence; a nil argument leaves that stack unchanged. Entries are not
// validated against capacity or shape — the caller owns consistency.
// Intended for restoring saved sessions.
func (m *Manager) OverrideStacks(undo, redo []*Waypoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if undo != nil {
		m.undoStack = append([]*Waypoint(nil), undo...)
	}
	if redo != nil {
		m.redoStack = append([]*Waypoint(nil), redo...)
	}

	m.logger.Debug("stacks overridden", "undo", len(m.undoStack), "redo", len(m.redoStack))
}

// Stacks returns copies of both stacks, oldest first, for persistence.
// The waypoints themselves are shared; treat them as read-only.
func (m *Manager) Stacks() (undo, redo []*Waypoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Waypoint(nil), m.undoStack...),
		append([]*Waypoint(nil), m.redoStack...)
}

// UndoEvents returns the channel that emits after every completed Undo.
func (m *Manager) UndoEvents() *notify.Channel {
	return m.undoEvents
}

// RedoEvents returns the channel that emits after every completed Redo.
func (m *Manager) RedoEvents() *notify.Channel {
	return m.redoEvents
}

// UndoCapacity returns the maximum number of retained undo waypoints.
func (m *Manager) UndoCapacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.undoCap
}

// RedoCapacity returns the maximum number of retained redo waypoints.
func (m *Manager) RedoCapacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redoCap
}

// Close releases both stacks, the capture list, and the notification
// channels. Subsequent Undo/Redo calls return ErrManagerClosed and
// capture becomes a no-op. Closing the manager never affects the target
// store; tear the target down separately if it supports it.
// It is safe to call Close multiple times.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.undoStack = nil
	m.redoStack = nil
	m.captureKeys = nil
	m.mu.Unlock()

	m.undoEvents.Close()
	m.redoEvents.Close()
}

// excluded reports whether a captured value is omitted from a snapshot.
// The default rule excludes only absent/nil values; zero, false, and
// empty values are legitimate state. WithTruthyCapture restores the
// legacy truthy-only rule.
func (m *Manager) excluded(val any) bool {
	if val == nil {
		return true
	}
	if !m.truthyCapture {
		return false
	}
	return isZeroValue(val)
}

// isZeroValue reports whether val is the zero value of its type
// (false, 0, "", nil-equivalent).
func isZeroValue(val any) bool {
	switch v := val.(type) {
	case bool:
		return !v
	case string:
		return v == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	rv := reflect.ValueOf(val)
	if !rv.IsValid() {
		return true
	}
	return rv.IsZero()
}
