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

// Package tsconfig loads TypeScript project configuration files.
//
// tsconfig.json files are JSONC: comments and trailing commas are legal.
// Only the options tsb acts on are decoded; everything else is ignored.
package tsconfig

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"

	"bennypowers.dev/tsb/fs"
)

// DefaultInclude is the include pattern used when a config specifies
// neither "files" nor "include".
var DefaultInclude = []string{"**/*.ts"}

// DefaultExclude is always applied in addition to any configured excludes.
var DefaultExclude = []string{"**/node_modules/**"}

// compilerOptions is the decoded compilerOptions object. Pointer fields
// distinguish "absent" from "set to the zero value" so that extends
// chains can overlay child options onto parent options.
type compilerOptions struct {
	RootDir *string `json:"rootDir"`
	OutDir  *string `json:"outDir"`
	NoEmit  *bool   `json:"noEmit"`
}

// rawConfig is the decoded shape of a single tsconfig.json file.
type rawConfig struct {
	Extends         string          `json:"extends"`
	CompilerOptions compilerOptions `json:"compilerOptions"`
	Files           []string        `json:"files"`
	Include         []string        `json:"include"`
	Exclude         []string        `json:"exclude"`
}

// Project is a fully resolved project configuration.
//
// A Project is returned even when loading fails: LoadError carries the
// failure and the remaining fields hold defaults. This lets an engine be
// constructed over a broken configuration and report the error on its
// first build pass instead of at construction time.
type Project struct {
	// ConfigPath is the path of the tsconfig.json this project was
	// loaded from, or empty for an in-memory project.
	ConfigPath string

	// RootDir is the directory source paths are resolved against.
	RootDir string

	// OutDir is the directory output paths are rewritten into.
	// Defaults to RootDir.
	OutDir string

	// NoEmit suppresses output artifacts; diagnostics still run.
	NoEmit bool

	// Files, when non-nil, is an explicit source list and disables
	// include/exclude matching.
	Files []string

	// Include and Exclude are doublestar patterns relative to RootDir.
	Include []string
	Exclude []string

	// LoadError is the error that occurred while reading or parsing
	// the configuration, or nil.
	LoadError error
}

// New returns an in-memory project rooted at rootDir with defaults.
func New(rootDir string) *Project {
	return &Project{
		RootDir: rootDir,
		OutDir:  rootDir,
		Include: DefaultInclude,
	}
}

// Load reads and resolves a tsconfig.json, following extends chains.
// The returned Project is never nil; check LoadError before trusting it.
func Load(fsys fs.FileSystem, configPath string) *Project {
	project := New(filepath.Dir(configPath))
	project.ConfigPath = configPath

	raw, err := loadChain(fsys, configPath, map[string]bool{})
	if err != nil {
		project.LoadError = err
		return project
	}

	configDir := filepath.Dir(configPath)
	if raw.CompilerOptions.RootDir != nil {
		project.RootDir = resolveDir(configDir, *raw.CompilerOptions.RootDir)
	}
	project.OutDir = project.RootDir
	if raw.CompilerOptions.OutDir != nil {
		project.OutDir = resolveDir(configDir, *raw.CompilerOptions.OutDir)
	}
	if raw.CompilerOptions.NoEmit != nil {
		project.NoEmit = *raw.CompilerOptions.NoEmit
	}

	if raw.Files != nil {
		project.Files = make([]string, len(raw.Files))
		for i, f := range raw.Files {
			project.Files[i] = filepath.Join(configDir, f)
		}
		project.Include = nil
	} else if raw.Include != nil {
		project.Include = raw.Include
	}
	project.Exclude = raw.Exclude

	return project
}

// loadChain reads one config file and merges it over its extends parent.
func loadChain(fsys fs.FileSystem, configPath string, visited map[string]bool) (*rawConfig, error) {
	key := filepath.Clean(configPath)
	if visited[key] {
		return nil, fmt.Errorf("circular extends chain at %s", configPath)
	}
	visited[key] = true

	data, err := fsys.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}

	var raw rawConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	if raw.Extends == "" {
		return &raw, nil
	}

	parentPath := filepath.Join(filepath.Dir(configPath), raw.Extends)
	if filepath.Ext(parentPath) == "" {
		parentPath += ".json"
	}
	parent, err := loadChain(fsys, parentPath, visited)
	if err != nil {
		return nil, fmt.Errorf("resolving extends of %s: %w", configPath, err)
	}

	return mergeRaw(parent, &raw), nil
}

// mergeRaw overlays child onto parent. Arrays replace rather than
// append, matching tsc's extends semantics.
func mergeRaw(parent, child *rawConfig) *rawConfig {
	merged := *parent
	merged.Extends = ""

	if child.CompilerOptions.RootDir != nil {
		merged.CompilerOptions.RootDir = child.CompilerOptions.RootDir
	}
	if child.CompilerOptions.OutDir != nil {
		merged.CompilerOptions.OutDir = child.CompilerOptions.OutDir
	}
	if child.CompilerOptions.NoEmit != nil {
		merged.CompilerOptions.NoEmit = child.CompilerOptions.NoEmit
	}
	if child.Files != nil {
		merged.Files = child.Files
	}
	if child.Include != nil {
		merged.Include = child.Include
	}
	if child.Exclude != nil {
		merged.Exclude = child.Exclude
	}

	return &merged
}

// Matches reports whether the given source path belongs to this project.
// Declaration files never match; they produce no runtime output.
func (p *Project) Matches(srcPath string) bool {
	norm := filepath.ToSlash(srcPath)
	if strings.HasSuffix(norm, ".d.ts") {
		return false
	}

	if p.Files != nil {
		for _, f := range p.Files {
			if pathsEqual(f, srcPath) {
				return true
			}
		}
		return false
	}

	rel, err := filepath.Rel(p.RootDir, srcPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	include := p.Include
	if include == nil {
		include = DefaultInclude
	}
	included := false
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pattern := range append(DefaultExclude[:len(DefaultExclude):len(DefaultExclude)], p.Exclude...) {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// OutputPath maps a source path to its output path: rooted under
// OutDir, with the .ts extension rewritten to .js.
func (p *Project) OutputPath(srcPath string) string {
	rel, err := filepath.Rel(p.RootDir, srcPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(srcPath)
	}
	if ext := filepath.Ext(rel); ext == ".ts" || ext == ".tsx" || ext == ".mts" {
		rel = rel[:len(rel)-len(ext)] + outputExt(ext)
	}
	return filepath.Join(p.OutDir, rel)
}

func outputExt(srcExt string) string {
	if srcExt == ".mts" {
		return ".mjs"
	}
	return ".js"
}

// resolveDir resolves a possibly-relative configured directory against
// the config file's directory.
func resolveDir(configDir, dir string) string {
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") {
		return filepath.Clean(dir)
	}
	return filepath.Join(configDir, dir)
}

// pathsEqual compares logical paths the way the engine does: slash
// normalized and case-insensitive.
func pathsEqual(a, b string) bool {
	return strings.EqualFold(filepath.ToSlash(filepath.Clean(a)), filepath.ToSlash(filepath.Clean(b)))
}
