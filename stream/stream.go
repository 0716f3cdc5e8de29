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

// Package stream adapts between on-disk project files and the build
// engine: it discovers project sources, pushes them as records, runs a
// build pass, and re-emits the engine's outputs.
package stream

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/engine"
	"bennypowers.dev/tsb/fs"
	"bennypowers.dev/tsb/internal/output"
	"bennypowers.dev/tsb/tsconfig"
)

// Discover walks the project root and returns the source records the
// project matches, sorted by path. node_modules and dot-directories are
// never descended into.
func Discover(fsys fs.FileSystem, project *tsconfig.Project) ([]engine.SourceFile, error) {
	var files []engine.SourceFile

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			full := filepath.Join(dir, name)
			if entry.IsDir() {
				if name == "node_modules" {
					continue
				}
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			if !project.Matches(full) {
				continue
			}
			content, err := fsys.ReadFile(full)
			if err != nil {
				return err
			}
			files = append(files, engine.SourceFile{Path: full, Contents: content})
		}
		return nil
	}
	if err := walk(project.RootDir); err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b engine.SourceFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, nil
}

// Result collects one pass's two output sequences. Outputs preserve
// the engine's emission order; Diagnostics are a separate sequence,
// unordered with respect to Outputs. A Result only exists once the
// pass has signalled end-of-stream.
type Result struct {
	Outputs     []compiler.OutputFile
	Diagnostics []compiler.Diagnostic
	ErrorCount  int
}

// Pipeline feeds a project through an engine for one build pass.
type Pipeline struct {
	FS      fs.FileSystem
	Engine  *engine.Engine
	Project *tsconfig.Project

	// WriteOutputs writes emitted artifacts under the project's outDir.
	WriteOutputs bool

	// OnDiagnostic, when set, observes each diagnostic as it arrives,
	// in addition to its collection on the Result.
	OnDiagnostic func(compiler.Diagnostic)
}

// Run discovers project sources, pushes them, and runs one build pass.
// The returned Result holds the complete, terminated output sequence;
// on cancellation Run returns the context error and the engine retains
// its partial progress for a later pass.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	files, err := Discover(p.FS, p.Project)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := p.Engine.File(f); err != nil {
			return nil, err
		}
	}
	return p.RunBuffered(ctx)
}

// RunBuffered runs one build pass over whatever is already pushed,
// without discovery. Used when the caller feeds records itself.
func (p *Pipeline) RunBuffered(ctx context.Context) (*Result, error) {
	res := &Result{}

	err := p.Engine.Build(ctx,
		func(out compiler.OutputFile) error {
			res.Outputs = append(res.Outputs, out)
			return nil
		},
		func(d compiler.Diagnostic) {
			res.Diagnostics = append(res.Diagnostics, d)
			if d.Severity == compiler.SeverityError {
				res.ErrorCount++
			}
			if p.OnDiagnostic != nil {
				p.OnDiagnostic(d)
			}
		})
	if err != nil {
		return res, err
	}

	if p.WriteOutputs {
		if err := output.WriteOutputs(p.FS, res.Outputs); err != nil {
			return res, err
		}
	}
	return res, nil
}
