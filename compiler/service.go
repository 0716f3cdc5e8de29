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
	"encoding/hex"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"bennypowers.dev/tsb/tsconfig"
)

// NormalizePath returns the canonical unit id for a logical path:
// slash-separated, cleaned, and lower-cased. Unit identity is
// case-insensitive to match the host ecosystem's filesystems.
func NormalizePath(p string) string {
	return strings.ToLower(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// VersionToken returns the content version token for a unit: a blake3
// hash in hex. Two contents with equal tokens are treated as identical.
func VersionToken(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// unit is one registered source unit.
type unit struct {
	id      string
	display string
	content []byte
	version string
	imports []Import

	// waitingOn lists the candidate unit ids this unit's currently
	// unresolved imports would resolve to, so resolution can be retried
	// when one of them is registered.
	waitingOn []string
}

// Service is the compiler service: it owns the registered units, the
// dependency graph, and all per-unit analysis. The build engine holds
// the only handle to a Service and serializes mutation through it.
type Service struct {
	mu       sync.RWMutex
	project  *tsconfig.Project
	units    map[string]*unit
	graph    *DependencyGraph
	analyses *analysisCache

	// pending maps a candidate unit id to the importers whose edges
	// must be recomputed if that unit appears. This is what keeps
	// reverse-dependency answers current when units arrive in any
	// order.
	pending map[string]map[string]bool
}

// NewService creates a compiler service for the given project.
func NewService(project *tsconfig.Project) *Service {
	if project == nil {
		project = tsconfig.New(".")
	}
	return &Service{
		project:  project,
		units:    make(map[string]*unit),
		graph:    NewDependencyGraph(),
		analyses: newAnalysisCache(),
		pending:  make(map[string]map[string]bool),
	}
}

// RegisterOrUpdate registers a unit's content, replacing any previous
// content. Cached analysis for the unit is dropped and its dependency
// edges are recomputed; importers waiting on this unit are re-resolved,
// so reverse-dependency queries made afterwards never under-report.
func (s *Service) RegisterOrUpdate(p string, content []byte) error {
	id := NormalizePath(p)
	version := VersionToken(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.units[id]
	if u != nil && u.version == version {
		return nil
	}
	if u == nil {
		u = &unit{id: id, display: p}
		s.units[id] = u
	}
	u.content = content
	u.version = version
	s.analyses.Invalidate(id)

	a, err := s.analysisLocked(u)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", u.display, err)
	}
	u.imports = a.Imports
	s.refreshEdgesLocked(u)

	// A freshly registered unit may satisfy imports that could not be
	// resolved before it existed.
	if waiters := s.pending[id]; len(waiters) > 0 {
		delete(s.pending, id)
		for importer := range waiters {
			if iu := s.units[importer]; iu != nil {
				s.refreshEdgesLocked(iu)
			}
		}
	}
	return nil
}

// Remove evicts a unit. Importers of the removed unit keep their other
// edges and re-resolve against it if it ever comes back.
func (s *Service) Remove(p string) error {
	id := NormalizePath(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.units[id]
	if u == nil {
		return nil
	}
	s.clearWaitsLocked(u)
	delete(s.units, id)
	s.analyses.Invalidate(id)

	importers := s.graph.RemoveUnit(id)
	for _, importer := range importers {
		if iu := s.units[importer]; iu != nil {
			s.refreshEdgesLocked(iu)
		}
	}
	return nil
}

// Has reports whether a unit is registered.
func (s *Service) Has(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units[NormalizePath(p)] != nil
}

// DiagnosticsFor returns the ordered diagnostics for a unit: syntax
// errors, unsupported-construct errors, then unresolved imports.
func (s *Service) DiagnosticsFor(p string) ([]Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.units[NormalizePath(p)]
	if u == nil {
		return nil, fmt.Errorf("unknown unit %s", p)
	}

	a, err := s.analysisLocked(u)
	if err != nil {
		return nil, err
	}

	diags := make([]Diagnostic, 0, len(a.Diagnostics))
	for _, d := range a.Diagnostics {
		d.File = u.display
		diags = append(diags, d)
	}

	for _, imp := range a.Imports {
		if IsBareSpecifier(imp.Specifier) {
			continue
		}
		if s.resolveLocked(u.id, imp.Specifier) == "" {
			diags = append(diags, Diagnostic{
				File:     u.display,
				Line:     imp.Line,
				Severity: SeverityError,
				Code:     CodeUnresolved,
				Message:  fmt.Sprintf("cannot find module %q", imp.Specifier),
			})
		}
	}
	return diags, nil
}

// EmitOutputsFor returns the ordered output artifacts for a unit.
// Returns nothing when the project sets noEmit.
func (s *Service) EmitOutputsFor(p string) ([]OutputFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.project.NoEmit {
		return nil, nil
	}

	u := s.units[NormalizePath(p)]
	if u == nil {
		return nil, fmt.Errorf("unknown unit %s", p)
	}

	a, err := s.analysisLocked(u)
	if err != nil {
		return nil, err
	}

	return []OutputFile{{
		Path:     s.project.OutputPath(u.display),
		Contents: a.Output,
	}}, nil
}

// ReverseDependenciesOf returns the units that directly import the
// given unit. Transitive closure is the caller's concern.
func (s *Service) ReverseDependenciesOf(p string) ([]string, error) {
	return s.graph.Dependents(NormalizePath(p)), nil
}

// TransitiveDependentsOf returns the display paths of every unit that
// directly or indirectly imports the given unit, sorted by unit id.
func (s *Service) TransitiveDependentsOf(p string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.graph.TransitiveDependents(NormalizePath(p))
	displays := make([]string, 0, len(ids))
	for _, id := range ids {
		if u := s.units[id]; u != nil {
			displays = append(displays, u.display)
		} else {
			displays = append(displays, id)
		}
	}
	return displays
}

// Graph exposes the dependency graph for introspection.
func (s *Service) Graph() *DependencyGraph {
	return s.graph
}

// ProgramFile is one unit in a program snapshot.
type ProgramFile struct {
	Path    string   `json:"path"`
	Version string   `json:"version"`
	Imports []string `json:"imports,omitempty"`
}

// ProgramSnapshot is a read-only view of the service's current program
// state: every registered unit and its resolved imports, sorted.
type ProgramSnapshot struct {
	Files []ProgramFile `json:"files"`
}

// Snapshot captures the current program state for introspection.
func (s *Service) Snapshot() ProgramSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap ProgramSnapshot
	ids := make([]string, 0, len(s.units))
	for id := range s.units {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		u := s.units[id]
		deps := s.graph.Dependencies(id)
		displays := make([]string, 0, len(deps))
		for _, dep := range deps {
			if du := s.units[dep]; du != nil {
				displays = append(displays, du.display)
			}
		}
		snap.Files = append(snap.Files, ProgramFile{
			Path:    u.display,
			Version: u.version,
			Imports: displays,
		})
	}
	return snap
}

// analysisLocked returns the cached analysis for a unit, parsing if the
// content version is new. Callers hold s.mu (read or write).
func (s *Service) analysisLocked(u *unit) (*analysis, error) {
	content := u.content
	return s.analyses.GetOrLoad(u.id, u.version, func() (*analysis, error) {
		return analyzeContent(content)
	})
}

// analyzeContent performs the single parse a unit's diagnostics,
// imports, and output all derive from.
func analyzeContent(content []byte) (*analysis, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getTSParser()
	defer putTSParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	imports, err := extractImports(tree, content, qm)
	if err != nil {
		return nil, err
	}

	diags := syntaxDiagnostics(tree, content)
	out, stripDiags := stripTree(tree, content)
	rewriteSpecifiers(out, imports)

	return &analysis{
		Imports:     imports,
		Diagnostics: append(diags, stripDiags...),
		Output:      out,
	}, nil
}

// refreshEdgesLocked recomputes a unit's outgoing edges from its
// imports against the currently registered unit set. Unresolved
// relative imports park the unit on every candidate id they could
// resolve to.
func (s *Service) refreshEdgesLocked(u *unit) {
	s.clearWaitsLocked(u)

	var deps []string
	for _, imp := range u.imports {
		if IsBareSpecifier(imp.Specifier) {
			continue
		}
		if dep := s.resolveLocked(u.id, imp.Specifier); dep != "" {
			deps = append(deps, dep)
			continue
		}
		for _, candidate := range resolveCandidates(u.id, imp.Specifier) {
			if s.pending[candidate] == nil {
				s.pending[candidate] = make(map[string]bool)
			}
			s.pending[candidate][u.id] = true
			u.waitingOn = append(u.waitingOn, candidate)
		}
	}
	s.graph.SetDependencies(u.id, deps)
}

// clearWaitsLocked removes a unit's parked resolution retries.
func (s *Service) clearWaitsLocked(u *unit) {
	for _, candidate := range u.waitingOn {
		if waiters := s.pending[candidate]; waiters != nil {
			delete(waiters, u.id)
			if len(waiters) == 0 {
				delete(s.pending, candidate)
			}
		}
	}
	u.waitingOn = nil
}

// resolveLocked resolves a relative specifier from a unit to a
// registered unit id, or "" if no candidate is registered.
func (s *Service) resolveLocked(fromID, specifier string) string {
	for _, candidate := range resolveCandidates(fromID, specifier) {
		if s.units[candidate] != nil {
			return candidate
		}
	}
	return ""
}

// resolveCandidates lists the unit ids a relative specifier could
// resolve to, in priority order, following the ecosystem's convention
// that compiled imports name the output file (./a.js -> a.ts).
func resolveCandidates(fromID, specifier string) []string {
	base := NormalizePath(path.Join(path.Dir(fromID), specifier))

	switch {
	case strings.HasSuffix(base, ".ts") || strings.HasSuffix(base, ".mts"):
		return []string{base}
	case strings.HasSuffix(base, ".js"):
		return []string{base[:len(base)-3] + ".ts"}
	case strings.HasSuffix(base, ".mjs"):
		return []string{base[:len(base)-4] + ".mts"}
	default:
		return []string{base + ".ts", base + "/index.ts"}
	}
}
