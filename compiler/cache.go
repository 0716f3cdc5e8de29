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
package compiler

import "sync"

// analysis holds everything derived from one parse of a unit's content:
// its imports, its content-level diagnostics, and its stripped output.
type analysis struct {
	Imports     []Import
	Diagnostics []Diagnostic
	Output      []byte
}

// analysisEntry holds a cached analysis and coordinates concurrent loading.
type analysisEntry struct {
	analysis *analysis
	err      error
	once     sync.Once
}

// analysisCache caches per-unit analyses keyed by unit id and content
// version, so repeated diagnostics/emit queries within and across build
// passes reuse one parse per content version.
type analysisCache struct {
	mu       sync.RWMutex
	versions map[string]string    // unit id -> cached version
	cache    map[string]*analysis // unit id -> analysis for that version
	loading  sync.Map             // map[string]*analysisEntry keyed id+"\x00"+version
}

func newAnalysisCache() *analysisCache {
	return &analysisCache{
		versions: make(map[string]string),
		cache:    make(map[string]*analysis),
	}
}

// GetOrLoad returns the analysis for (id, version), running loader at
// most once per version; concurrent callers for the same version wait.
func (c *analysisCache) GetOrLoad(id, version string, loader func() (*analysis, error)) (*analysis, error) {
	c.mu.RLock()
	if c.versions[id] == version {
		if a, ok := c.cache[id]; ok {
			c.mu.RUnlock()
			return a, nil
		}
	}
	c.mu.RUnlock()

	key := id + "\x00" + version
	actual, _ := c.loading.LoadOrStore(key, &analysisEntry{})
	entry := actual.(*analysisEntry)

	entry.once.Do(func() {
		entry.analysis, entry.err = loader()
		if entry.err == nil {
			c.mu.Lock()
			c.versions[id] = version
			c.cache[id] = entry.analysis
			c.mu.Unlock()
		}
	})

	return entry.analysis, entry.err
}

// Invalidate removes a unit's cached analysis and in-flight state.
func (c *analysisCache) Invalidate(id string) {
	c.mu.Lock()
	version := c.versions[id]
	delete(c.versions, id)
	delete(c.cache, id)
	c.mu.Unlock()
	c.loading.Delete(id + "\x00" + version)
}
