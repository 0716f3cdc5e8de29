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

import (
	"slices"
	"sync"
)

// DependencyGraph tracks import edges between source units. Built
// incrementally as units are registered and queried for reverse
// dependencies during change-set expansion.
type DependencyGraph struct {
	mu sync.RWMutex

	// dependsOn maps unit id -> set of unit ids it imports
	dependsOn map[string]map[string]bool

	// dependents maps unit id -> set of unit ids that import it
	dependents map[string]map[string]bool
}

// NewDependencyGraph creates a new empty dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// addEdgeLocked records that unit depends on dep, updating both maps.
// Callers hold g.mu.
func (g *DependencyGraph) addEdgeLocked(unit, dep string) {
	if g.dependsOn[unit] == nil {
		g.dependsOn[unit] = make(map[string]bool)
	}
	g.dependsOn[unit][dep] = true

	if g.dependents[dep] == nil {
		g.dependents[dep] = make(map[string]bool)
	}
	g.dependents[dep][unit] = true
}

// SetDependencies replaces unit's outgoing edges with deps. Used when a
// unit is re-registered with new content: stale edges from the previous
// content must not survive.
func (g *DependencyGraph) SetDependencies(unit string, deps []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for old := range g.dependsOn[unit] {
		delete(g.dependents[old], unit)
	}
	delete(g.dependsOn, unit)

	for _, dep := range deps {
		g.addEdgeLocked(unit, dep)
	}
}

// Dependencies returns the unit ids this unit directly imports, sorted.
func (g *DependencyGraph) Dependencies(unit string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependsOn[unit])
}

// Dependents returns all units that directly import unit, sorted.
func (g *DependencyGraph) Dependents(unit string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[unit])
}

// TransitiveDependents returns all units that directly or indirectly
// import unit. Uses breadth-first traversal, each unit visited once no
// matter how many import chains reach it.
func (g *DependencyGraph) TransitiveDependents(unit string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	queue := []string{unit}
	var result []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dep := range g.dependents[current] {
			if !visited[dep] {
				visited[dep] = true
				result = append(result, dep)
				queue = append(queue, dep)
			}
		}
	}

	slices.Sort(result)
	return result
}

// RemoveUnit removes a unit and all its edges from the graph.
// Returns the units that were dependents of the removed unit; their
// imports of it are now dangling and they need re-analysis.
func (g *DependencyGraph) RemoveUnit(unit string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := sortedKeys(g.dependents[unit])

	for dep := range g.dependsOn[unit] {
		delete(g.dependents[dep], unit)
	}
	for dependent := range g.dependents[unit] {
		delete(g.dependsOn[dependent], unit)
	}

	delete(g.dependsOn, unit)
	delete(g.dependents, unit)

	return result
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	result := make([]string, 0, len(set))
	for key := range set {
		result = append(result, key)
	}
	slices.Sort(result)
	return result
}
