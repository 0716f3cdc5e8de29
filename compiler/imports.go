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
	"fmt"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// Import represents one import statement in a source unit.
type Import struct {
	// Specifier is the raw module specifier (e.g. "lit", "./foo.js").
	Specifier string
	// IsDynamic is true for import() expressions.
	IsDynamic bool
	// TypeOnly is true for `import type` / `export type` forms. Type-only
	// imports still create dependency edges: a change to the target can
	// change this unit's meaning.
	TypeOnly bool
	// Line is 1-indexed.
	Line int
	// Start and End are the byte offsets of the specifier text within
	// the source, used to rewrite .ts specifiers on emit.
	Start, End uint
}

// ExtractImports parses TypeScript content and extracts all import
// specifiers: static imports, re-exports, and dynamic import() calls.
func ExtractImports(content []byte) ([]Import, error) {
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

	return extractImports(tree, content, qm)
}

// extractImports runs the imports query over an already-parsed tree.
func extractImports(tree *ts.Tree, content []byte, qm *QueryManager) ([]Import, error) {
	query, err := qm.Query("imports")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []Import
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var imp Import
		var spec, stmt *ts.Node
		for _, capture := range match.Captures {
			node := capture.Node
			switch captureNames[capture.Index] {
			case "import.spec", "reexport.spec":
				spec = &node
			case "dynamicImport.spec":
				spec = &node
				imp.IsDynamic = true
			case "import.stmt", "reexport.stmt":
				stmt = &node
			}
		}
		if spec == nil {
			continue
		}

		imp.Specifier = spec.Utf8Text(content)
		imp.Line = int(spec.StartPosition().Row) + 1
		imp.Start = spec.StartByte()
		imp.End = spec.EndByte()
		if stmt != nil {
			imp.TypeOnly = isTypeOnlyStatement(stmt)
		}
		imports = append(imports, imp)
	}

	return imports, nil
}

// isTypeOnlyStatement reports whether an import/export statement is the
// `import type` / `export type` form. The grammar exposes the keyword
// as an anonymous "type" token child of the statement.
func isTypeOnlyStatement(stmt *ts.Node) bool {
	count := stmt.ChildCount()
	for i := uint(0); i < count; i++ {
		child := stmt.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "type" && !child.IsNamed() {
			return true
		}
		// `import type` can only appear before the clause; stop once we
		// reach the source string.
		if child.Kind() == "string" {
			break
		}
	}
	return false
}

// IsBareSpecifier returns true if the specifier names an external
// package rather than a project-relative path.
func IsBareSpecifier(specifier string) bool {
	if specifier == "" {
		return false
	}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		return false
	}
	if strings.HasPrefix(specifier, "/") {
		return false
	}
	if strings.Contains(specifier, "://") {
		return false
	}
	return true
}
