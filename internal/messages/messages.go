// Package messages holds the user-visible wording for every failure and
// fallback path the hub can surface. The strings are sensitive — they are
// shown to veterans in crisis — so they live in an overridable catalog
// rather than in code: the charity can reword them by dropping a JSON file
// in the catalog directory, without a redeploy of the hub logic.
package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Catalog keys.
const (
	KeyNoStaffAvailable = "no_staff_available"
	KeyRequestExpired   = "request_expired"
	KeyAlreadyMatched   = "already_matched"
	KeyRoomFull         = "room_full"
	KeyRoomNotFound     = "room_not_found"
	KeyConnectionLost   = "connection_lost"
	KeyCallUnreachable  = "call_unreachable"
	KeyCallFailed       = "call_failed"
	KeyCallDeclined     = "call_declined"
)

// defaults are the shipped wording; an override file replaces entries by key.
var defaults = map[string]string{
	KeyNoStaffAvailable: "No one is available to talk right now. You can leave your number and someone will call you back as soon as possible.",
	KeyRequestExpired:   "We couldn't reach anyone in time. Please try again, or leave your number for a callback.",
	KeyAlreadyMatched:   "Someone else has already taken this request.",
	KeyRoomFull:         "This conversation already has its participants.",
	KeyRoomNotFound:     "This conversation is no longer open.",
	KeyConnectionLost:   "The other person lost their connection.",
	KeyCallUnreachable:  "We couldn't reach them. They may have stepped away — please try again shortly.",
	KeyCallFailed:       "The call couldn't connect. Please check your connection and try again.",
	KeyCallDeclined:     "They can't take the call right now.",
}

// Catalog resolves message keys to wording, with optional file overrides.
type Catalog struct {
	overrides map[string]string
	mu        sync.RWMutex
}

// NewCatalog returns a catalog with the shipped defaults. If dir is
// non-empty, every *.json file in it is loaded as a key→string map and
// merged over the defaults.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{overrides: make(map[string]string)}
	if dir == "" {
		return c, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read messages file %s: %w", file.Name(), err)
		}
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse messages file %s: %w", file.Name(), err)
		}
		for k, v := range entries {
			c.overrides[k] = v
		}
	}
	return c, nil
}

// Get returns the wording for a key. Unknown keys return the key itself so
// a missing entry is visible rather than silent.
func (c *Catalog) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.overrides[key]; ok {
		return v
	}
	if v, ok := defaults[key]; ok {
		return v
	}
	return key
}
