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

// Package engine is the incremental compilation engine: it owns
// compiler state between build passes, decides which units must be
// reprocessed after an edit, and streams a deterministic sequence of
// outputs and diagnostics per pass.
//
// An Engine is fed source units with File, then driven one pass at a
// time with Build. Between passes it keeps a snapshot per known unit;
// a pass reprocesses exactly the units whose content changed plus
// every unit whose import chain reaches one, in sorted unit order.
// Cancellation is cooperative: the context is polled between unit
// boundaries, committed snapshots from earlier in the pass persist,
// and the unprocessed remainder carries over into the next pass.
package engine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/internal/output"
	"bennypowers.dev/tsb/tsconfig"
)

// Options configures an Engine at construction.
type Options struct {
	// Verbose emits extra progress diagnostics (info severity) through
	// the diagnostic sink.
	Verbose bool

	// StructuredDiagnostics makes the default diagnostic sink print
	// machine-readable JSON lines instead of formatted strings. Ignored
	// when a sink is supplied to Build or via OnError.
	StructuredDiagnostics bool

	// OnError overrides the default diagnostic sink used when Build is
	// called with a nil sink.
	OnError func(compiler.Diagnostic)
}

// SourceFile is a pushed source unit record.
type SourceFile struct {
	// Path is the unit's logical path. Identity is case-insensitive.
	Path string

	// Contents is the unit's full text.
	Contents []byte

	// Streamed marks records whose contents arrive as a stream rather
	// than a buffer. Unsupported; File rejects them.
	Streamed bool
}

// pendingFile is a buffered push awaiting the next build pass.
type pendingFile struct {
	display string
	content []byte
	version string
}

// Engine is the incremental compilation engine. It exclusively owns
// its snapshot store and its compiler-service handle; no other
// component mutates compiler state.
type Engine struct {
	project *tsconfig.Project
	opts    Options
	oracle  Oracle
	svc     *compiler.Service
	store   *Store

	// buildMu serializes build passes. TryLock, not Lock: a concurrent
	// Build is rejected, never queued behind mutation in flight.
	buildMu sync.Mutex

	// mu guards the buffers below. File may be called while a pass is
	// running; pushes land in pending for the NEXT pass, isolated from
	// the set the in-flight pass captured at its start.
	mu         sync.Mutex
	pending    map[string]*pendingFile
	carryover  map[string]bool
	registered map[string]bool
}

// New creates an Engine over its own compiler service for the given
// project. The project may carry a load error; it surfaces as a
// ConfigurationError on the first Build rather than here.
func New(project *tsconfig.Project, opts Options) *Engine {
	svc := compiler.NewService(project)
	e := NewWithOracle(project, NewServiceOracle(svc), opts)
	e.svc = svc
	return e
}

// NewWithOracle creates an Engine over a caller-supplied Oracle.
// LanguageService returns nil for such engines.
func NewWithOracle(project *tsconfig.Project, oracle Oracle, opts Options) *Engine {
	if project == nil {
		project = tsconfig.New(".")
	}
	return &Engine{
		project:    project,
		opts:       opts,
		oracle:     oracle,
		store:      NewStore(),
		pending:    make(map[string]*pendingFile),
		carryover:  make(map[string]bool),
		registered: make(map[string]bool),
	}
}

// File buffers a pushed unit for the next build pass. Compiler state is
// not touched until the pass runs.
func (e *Engine) File(f SourceFile) error {
	if f.Path == "" {
		return &InputRejectedError{Path: f.Path, Reason: "missing path"}
	}
	if f.Streamed {
		return &InputRejectedError{Path: f.Path, Reason: "streaming contents are not supported"}
	}

	id := compiler.NormalizePath(f.Path)
	p := &pendingFile{
		display: f.Path,
		content: f.Contents,
		version: compiler.VersionToken(f.Contents),
	}
	e.mu.Lock()
	e.pending[id] = p
	e.mu.Unlock()
	return nil
}

// Remove evicts a unit from the engine and the compiler service.
// Omission from a pass never removes a unit; this is the only way.
func (e *Engine) Remove(path string) error {
	id := compiler.NormalizePath(path)
	e.mu.Lock()
	delete(e.pending, id)
	delete(e.carryover, id)
	delete(e.registered, id)
	e.mu.Unlock()
	e.store.Remove(id)
	return e.oracle.Remove(path)
}

// LanguageService exposes the underlying compiler service for
// introspection. Read-only by convention: callers must not register or
// remove units through it. Nil when the Engine wraps a custom Oracle.
func (e *Engine) LanguageService() *compiler.Service {
	return e.svc
}

// CommittedSnapshots returns a copy of the committed snapshot state,
// for persistence between processes.
func (e *Engine) CommittedSnapshots() map[string]Snapshot {
	snaps := make(map[string]Snapshot)
	for _, id := range e.store.KnownUnits() {
		if snap, ok := e.store.Get(id); ok {
			snaps[id] = snap
		}
	}
	return snaps
}

// SeedSnapshots pre-commits snapshots restored from persisted build
// info, so unchanged pushes in the first pass are recognized as such.
func (e *Engine) SeedSnapshots(snaps map[string]Snapshot) {
	for id, snap := range snaps {
		e.store.Put(id, snap)
	}
}

// Build runs one pass: resolve the change set from buffered pushes,
// re-register changed content, process the affected set in
// deterministic order streaming outputs through emit and diagnostics
// through onError, and commit snapshots per processed unit.
//
// ctx is the cancellation token, polled between unit boundaries only;
// a unit's work, once started, completes. On cancellation Build
// returns ctx.Err() and the unprocessed remainder is reprocessed by
// the next pass. Returning nil is the end-of-stream signal for emit.
func (e *Engine) Build(ctx context.Context, emit func(compiler.OutputFile) error, onError func(compiler.Diagnostic)) error {
	if emit == nil {
		emit = func(compiler.OutputFile) error { return nil }
	}
	if onError == nil {
		onError = e.defaultSink()
	}

	if !e.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	defer e.buildMu.Unlock()

	// A broken project configuration fails the pass before any state
	// mutation: zero units processed, buffers untouched.
	if e.project.LoadError != nil {
		cfgErr := &ConfigurationError{ConfigPath: e.project.ConfigPath, Err: e.project.LoadError}
		onError(compiler.Diagnostic{
			File:     e.project.ConfigPath,
			Severity: compiler.SeverityError,
			Code:     compiler.CodeConfig,
			Message:  cfgErr.Error(),
		})
		// Restore nothing: pending pushes stay buffered for a future
		// engine-rebuild by the caller.
		return cfgErr
	}

	// Snapshot-at-start-of-pass: later File calls buffer for the next
	// pass.
	e.mu.Lock()
	pending := e.pending
	e.pending = make(map[string]*pendingFile)
	carryover := e.carryover
	e.carryover = make(map[string]bool)
	e.mu.Unlock()

	fault := func(id, op string, err error) {
		sf := &ServiceFaultError{Unit: e.displayFor(id, pending), Op: op, Err: err}
		onError(compiler.Diagnostic{
			File:     e.displayFor(id, pending),
			Severity: compiler.SeverityError,
			Code:     compiler.CodeServiceFault,
			Message:  sf.Error(),
		})
	}

	res := &resolver{store: e.store, oracle: e.oracle}
	var cs ChangeSet
	var unchanged []string
	cs.Direct, unchanged = res.directChanges(pending)

	// Register changed content first: the oracle must see new content
	// before any dependency query, or the affected set under-reports.
	seeds := make([]string, 0, len(cs.Direct)+len(carryover))
	for _, id := range cs.Direct {
		p := pending[id]
		if err := e.oracle.RegisterOrUpdate(p.display, p.content); err != nil {
			fault(id, "register", err)
			e.restorePending(id, p)
			continue
		}
		e.markRegistered(id)
		seeds = append(seeds, id)
	}

	// Unchanged pushes the oracle has never seen (warm start from
	// persisted build info) rebuild semantic state without joining the
	// change set.
	for _, id := range unchanged {
		if e.isRegistered(id) {
			continue
		}
		p := pending[id]
		if err := e.oracle.RegisterOrUpdate(p.display, p.content); err != nil {
			fault(id, "register", err)
			continue
		}
		e.markRegistered(id)
	}

	// Units left unprocessed by a cancelled earlier pass.
	for id := range carryover {
		seeds = append(seeds, id)
	}

	cs.Affected = res.expand(seeds, func(unit string, err error) {
		fault(unit, "dependency query", err)
	})

	if e.opts.Verbose {
		onError(compiler.Diagnostic{
			Severity: compiler.SeverityInfo,
			Code:     compiler.CodeProgress,
			Message:  fmt.Sprintf("%d changed units, %d affected", len(cs.Direct), len(cs.Affected)),
		})
	}

	for i, id := range cs.Affected {
		if err := ctx.Err(); err != nil {
			e.stashRemainder(cs.Affected[i:], pending)
			return err
		}

		display := e.displayFor(id, pending)

		diags, err := e.oracle.DiagnosticsFor(display)
		if err != nil {
			fault(id, "diagnostics", err)
			if p, ok := pending[id]; ok {
				e.restorePending(id, p)
			}
			continue
		}
		for _, d := range diags {
			onError(d)
		}

		outs, err := e.oracle.EmitOutputsFor(display)
		if err != nil {
			fault(id, "emit", err)
			if p, ok := pending[id]; ok {
				e.restorePending(id, p)
			}
			continue
		}
		for _, out := range outs {
			if err := emit(out); err != nil {
				// A failing output sink abandons the pass the same way
				// cancellation does: remainder carries over.
				e.stashRemainder(cs.Affected[i:], pending)
				return fmt.Errorf("emit sink: %w", err)
			}
		}

		// Commit: the unit's outputs and diagnostics now reflect its
		// registered content.
		if p, ok := pending[id]; ok {
			e.store.Put(id, Snapshot{
				Display: p.display,
				Length:  len(p.content),
				Version: p.version,
				Content: p.content,
			})
		} else if snap, ok := e.store.Get(id); ok {
			// Affected-but-unchanged unit: recommit as-is.
			e.store.Put(id, snap)
		}
	}

	return nil
}

// defaultSink builds the construction-time diagnostic sink: the
// configured override, or stderr formatting per StructuredDiagnostics.
func (e *Engine) defaultSink() func(compiler.Diagnostic) {
	if e.opts.OnError != nil {
		return e.opts.OnError
	}
	structured := e.opts.StructuredDiagnostics
	return func(d compiler.Diagnostic) {
		output.WriteDiagnostic(os.Stderr, d, structured)
	}
}

// displayFor recovers the display path for a unit id: the in-flight
// push, the committed snapshot, or the id itself.
func (e *Engine) displayFor(id string, pending map[string]*pendingFile) string {
	if p, ok := pending[id]; ok {
		return p.display
	}
	if snap, ok := e.store.Get(id); ok && snap.Display != "" {
		return snap.Display
	}
	return id
}

// stashRemainder preserves the unprocessed tail of an abandoned pass:
// un-consumed pushes go back to pending (unless a newer push landed
// meanwhile), everything else carries over as affected next pass.
func (e *Engine) stashRemainder(remainder []string, pending map[string]*pendingFile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range remainder {
		if p, ok := pending[id]; ok {
			if _, exists := e.pending[id]; !exists {
				e.pending[id] = p
			}
		} else {
			e.carryover[id] = true
		}
	}
}

// restorePending returns a single push to the buffer for retry.
func (e *Engine) restorePending(id string, p *pendingFile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pending[id]; !exists {
		e.pending[id] = p
	}
}

func (e *Engine) markRegistered(id string) {
	e.mu.Lock()
	e.registered[id] = true
	e.mu.Unlock()
}

func (e *Engine) isRegistered(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registered[id]
}
