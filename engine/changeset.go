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

import "slices"

// ChangeSet is the per-pass result of change detection. Ephemeral:
// computed fresh each pass, never persisted.
type ChangeSet struct {
	// Direct holds units whose pushed content differs from their
	// snapshot, plus units never seen before. Sorted.
	Direct []string

	// Affected holds Direct plus every known unit whose import chain
	// reaches a direct change. Sorted; this is the pass's processing
	// order, fixed so output streams are reproducible.
	Affected []string
}

// resolver computes change sets from pushed units, the snapshot store,
// and the oracle's dependency graph.
type resolver struct {
	store  *Store
	oracle Oracle
}

// directChanges partitions pushed units into changed and unchanged.
// A unit is unchanged only when its length and version token match the
// committed snapshot, confirmed against retained content when the
// snapshot carries it.
func (r *resolver) directChanges(pending map[string]*pendingFile) (changed, unchanged []string) {
	for id, p := range pending {
		snap, ok := r.store.Get(id)
		if ok && snap.Matches(len(p.content), p.version) &&
			(snap.Content == nil || snap.Equal(p.content)) {
			unchanged = append(unchanged, id)
			continue
		}
		changed = append(changed, id)
	}
	slices.Sort(changed)
	slices.Sort(unchanged)
	return changed, unchanged
}

// expand computes the affected set: the fixed point of direct reverse
// dependencies starting from the seed units. Every unit reachable
// through any chain of importers appears exactly once, regardless of
// how many paths reach it. Oracle faults during expansion are reported
// through fault and don't stop the traversal.
func (r *resolver) expand(seeds []string, fault func(unit string, err error)) []string {
	affected := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if !affected[id] {
			affected[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		dependents, err := r.oracle.ReverseDependenciesOf(current)
		if err != nil {
			fault(current, err)
			continue
		}
		for _, dep := range dependents {
			if !affected[dep] {
				affected[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	result := make([]string, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}
