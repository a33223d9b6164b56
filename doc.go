// Package waypoint provides bounded undo/redo history for mutable
// property stores.
//
// A Manager is bound at construction to one target store and one capture
// specification: an ordered list of property identifiers. Key concepts:
//
// # Waypoints
//
// A Waypoint is a named snapshot of the captured properties at one point
// in time. Waypoints are immutable once pushed and are moved, never
// copied, between the undo and redo stacks.
//
// # Stacks
//
// The Manager keeps two bounded stacks, newest at the tail:
//
//	mgr, err := waypoint.New(store, []string{"title", "width"})
//
//	mgr.SetWaypoint("resize")   // capture onto the undo stack
//	mgr.Undo()                  // restore the latest waypoint
//	mgr.Redo()                  // reapply it
//
// Capturing while redo entries exist clears the redo stack; a new edit
// invalidates the redo branch. When the undo stack exceeds its capacity,
// the oldest entries are evicted.
//
// # Notifications
//
// Every completed Undo or Redo emits exactly one event on the matching
// channel, synchronously, carrying the waypoint name:
//
//	mgr.UndoEvents().Subscribe(func(e notify.Event) { ... })
//
// # Enable gating and override
//
// SetEnabled(false) suppresses capture and discards existing history.
// OverrideStacks replaces either stack wholesale, which together with the
// persist package supports carrying history across sessions.
package waypoint
