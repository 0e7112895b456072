// Package session tracks named browser sessions on disk and allocates
// debugging ports for new ones.
//
// A session record is the sole source of truth for "is this session alive":
// the tool does not track browser process identity beyond the CDP port the
// browser was bound to at launch time.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Record identifies one running (or previously run) browser instance.
type Record struct {
	// Session is the unique session name
	Session string `json:"session"`

	// Port is the CDP debugging port bound at launch time
	Port int `json:"port"`

	// StartedAt is informational only
	StartedAt time.Time `json:"startedAt"`

	// External is true when the browser was launched by the operator and
	// registered via `surf connect`, rather than spawned by this tool
	External bool `json:"external,omitempty"`
}

// Store persists one record per session name under a state directory.
//
// There is no locking: the tool assumes one CLI invocation at a time per
// session name. Concurrent invocations against the same name carry no
// consistency guarantee.
type Store struct {
	dir string
}

// NewStore creates the state directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// unsafePathChars matches anything we do not want in a session file name.
var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func (s *Store) path(name string) string {
	safe := unsafePathChars.ReplaceAllString(name, "_")
	return filepath.Join(s.dir, safe+".json")
}

// Read returns the record for name, or absent=false when there is no record.
// A missing or unparsable file is treated as absence, never as an error.
func (s *Store) Read(name string) (*Record, bool) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// Write persists the record, replacing any existing one for its session name.
func (s *Store) Write(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.Session), data, 0600); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

// Clear removes the record for name. Removing a record that does not exist
// is not an error.
func (s *Store) Clear(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session record: %w", err)
	}
	return nil
}
