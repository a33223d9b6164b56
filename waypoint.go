package waypoint

import (
	"time"

	"github.com/google/uuid"
)

// DefaultName is used when a waypoint is captured without a name.
const DefaultName = "Unnamed Waypoint"

// Waypoint is a named snapshot of a subset of a store's properties.
// A waypoint is immutable once pushed onto a stack; callers holding one
// must treat Props as read-only.
type Waypoint struct {
	// ID uniquely identifies the waypoint across sessions.
	ID string

	// Name is the caller-supplied label, or DefaultName.
	Name string

	// Props maps property identifiers to the values captured for them.
	Props map[string]any

	// CreatedAt is when the waypoint was captured.
	CreatedAt time.Time
}

// NewWaypoint creates a waypoint with a fresh identity. It is exported
// for callers reconstructing history externally (OverrideStacks).
func NewWaypoint(name string, props map[string]any) *Waypoint {
	if name == "" {
		name = DefaultName
	}
	if props == nil {
		props = make(map[string]any)
	}
	return &Waypoint{
		ID:        uuid.NewString(),
		Name:      name,
		Props:     props,
		CreatedAt: time.Now(),
	}
}

// Info describes a stack entry without exposing its snapshot.
type Info struct {
	Name      string
	CreatedAt time.Time
}
