// Package propstore defines the property-store contract for history
// capture targets, plus an in-memory implementation.
//
// A history manager only ever touches its target through Store: reading
// declared properties when a waypoint is captured and writing them back
// when one is restored. The target's lifetime is never the manager's
// concern; stores that want explicit teardown implement Destroyer.
package propstore

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownProperty is returned when a property identifier does not
// exist on the store.
var ErrUnknownProperty = errors.New("unknown property")

// ErrStoreDestroyed is returned by operations on a destroyed store.
var ErrStoreDestroyed = errors.New("store destroyed")

// Store is the minimal capability required of a capture target.
//
// Property identifiers are strings; integer identifiers are represented
// in decimal form. Values are opaque to the history layer.
type Store interface {
	// Get returns the current value of a property.
	Get(key string) (any, error)

	// Set overwrites the value of a property.
	Set(key string, value any) error
}

// Destroyer is an optional capability for stores with an explicit
// teardown step. Destroying a store is always an independent operation;
// closing a history manager never triggers it.
type Destroyer interface {
	Destroy() error
}

// MapStore is a mutex-guarded map-backed Store. It is the standard
// in-process target and doubles as the test target.
type MapStore struct {
	mu        sync.RWMutex
	values    map[string]any
	destroyed bool
}

// NewMapStore creates a store seeded with the given values.
// The initial map is copied; nil is allowed.
func NewMapStore(initial map[string]any) *MapStore {
	values := make(map[string]any, len(initial))
	for key, val := range initial {
		values[key] = val
	}
	return &MapStore{values: values}
}

// Get returns the value of a property.
// Unknown identifiers return ErrUnknownProperty.
func (s *MapStore) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrStoreDestroyed
	}

	val, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, key)
	}
	return val, nil
}

// Set overwrites the value of a property, creating it if absent.
func (s *MapStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrStoreDestroyed
	}

	s.values[key] = value
	return nil
}

// Delete removes a property.
func (s *MapStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Len returns the number of properties.
func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns all property identifiers.
func (s *MapStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	return keys
}

// Snapshot returns a copy of all current properties.
func (s *MapStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]any, len(s.values))
	for key, val := range s.values {
		snapshot[key] = val
	}
	return snapshot
}

// Destroy releases the store's contents. Subsequent Get/Set calls
// return ErrStoreDestroyed. It is safe to call Destroy multiple times.
func (s *MapStore) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyed = true
	s.values = nil
	return nil
}

// Destroyed reports whether Destroy has been called.
func (s *MapStore) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}
