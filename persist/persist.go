// Package persist saves and restores waypoint history sessions.
//
// A Session is the serializable form of a manager's two stacks. The file
// format is chosen by extension: .json, .yaml/.yml, or .toml. Together
// with Manager.OverrideStacks this carries history across sessions:
//
//	undo, redo := mgr.Stacks()
//	persist.Save(path, persist.FromWaypoints(undo, redo))
//
//	session, err := persist.Load(path)
//	undo, redo = session.Waypoints()
//	mgr.OverrideStacks(undo, redo)
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/waypoint"
)

// ErrUnsupportedFormat is returned for file extensions with no codec.
var ErrUnsupportedFormat = errors.New("unsupported session format")

// Record is the serializable form of one waypoint.
type Record struct {
	ID        string         `json:"id" yaml:"id" toml:"id"`
	Name      string         `json:"name" yaml:"name" toml:"name"`
	Props     map[string]any `json:"props" yaml:"props" toml:"props"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at" toml:"created_at"`
}

// Session holds both stacks, oldest first.
type Session struct {
	Undo []Record `json:"undo" yaml:"undo" toml:"undo"`
	Redo []Record `json:"redo" yaml:"redo" toml:"redo"`
}

// FromWaypoints builds a session from manager stacks.
func FromWaypoints(undo, redo []*waypoint.Waypoint) *Session {
	return &Session{
		Undo: toRecords(undo),
		Redo: toRecords(redo),
	}
}

// Waypoints converts the session back into manager stacks.
func (s *Session) Waypoints() (undo, redo []*waypoint.Waypoint) {
	return fromRecords(s.Undo), fromRecords(s.Redo)
}

func toRecords(stack []*waypoint.Waypoint) []Record {
	records := make([]Record, len(stack))
	for i, wp := range stack {
		records[i] = Record{
			ID:        wp.ID,
			Name:      wp.Name,
			Props:     wp.Props,
			CreatedAt: wp.CreatedAt,
		}
	}
	return records
}

func fromRecords(records []Record) []*waypoint.Waypoint {
	stack := make([]*waypoint.Waypoint, len(records))
	for i, rec := range records {
		props := rec.Props
		if props == nil {
			props = make(map[string]any)
		}
		stack[i] = &waypoint.Waypoint{
			ID:        rec.ID,
			Name:      rec.Name,
			Props:     props,
			CreatedAt: rec.CreatedAt,
		}
	}
	return stack
}

// Save writes the session to path in the format implied by its
// extension.
func Save(path string, session *Session) error {
	data, err := marshal(path, session)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing session file %s: %w", path, err)
	}
	return nil
}

// Load reads a session from path. A missing file is not an error; it
// returns (nil, nil).
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session file %s: %w", path, err)
	}

	return parse(path, data)
}

func marshal(path string, session *Session) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.MarshalIndent(session, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(session)
	case ".toml":
		return toml.Marshal(session)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func parse(path string, data []byte) (*Session, error) {
	var session Session
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &session)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &session)
	case ".toml":
		err = toml.Unmarshal(data, &session)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return &session, nil
}

// ParseError represents an error while decoding a session file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
