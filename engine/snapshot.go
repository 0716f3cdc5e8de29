/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package engine

import (
	"bytes"
	"slices"
	"sync"
)

// Snapshot records the content of a unit as of the end of the last
// successful build pass that processed it.
type Snapshot struct {
	// Display is the path the unit was pushed under, preserved for
	// diagnostics and output mapping.
	Display string

	// Length and Version identify the content. Version is the blake3
	// token from compiler.VersionToken.
	Length  int
	Version string

	// Content is retained for the full-comparison fallback and for
	// re-registration. May be nil for snapshots restored from build
	// info, in which case the version token alone decides identity.
	Content []byte
}

// Matches reports whether pushed content is identical to this
// snapshot. Length and version token decide in O(1); equal tokens are
// confirmed against retained content when available.
func (s Snapshot) Matches(length int, version string) bool {
	if s.Length != length || s.Version == "" || s.Version != version {
		return false
	}
	return true
}

// Equal reports whether content is byte-identical to the snapshot's
// retained content. Used as the fallback confirmation when version
// tokens alone cannot decide.
func (s Snapshot) Equal(content []byte) bool {
	return s.Content != nil && bytes.Equal(s.Content, content)
}

// Store maps unit ids to their committed snapshots. Side effects are
// confined to the store; it performs no I/O.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]Snapshot)}
}

// Get returns the snapshot for a unit, if one is committed.
func (st *Store) Get(id string) (Snapshot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	snap, ok := st.snapshots[id]
	return snap, ok
}

// Put commits a snapshot for a unit.
func (st *Store) Put(id string, snap Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snapshots[id] = snap
}

// Remove evicts a unit's snapshot.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.snapshots, id)
}

// KnownUnits returns the sorted ids of all committed units.
func (st *Store) KnownUnits() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.snapshots))
	for id := range st.snapshots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of committed snapshots.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.snapshots)
}
