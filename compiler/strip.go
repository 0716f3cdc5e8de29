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

// maxSyntaxDiagnostics caps per-file syntax diagnostics so a mangled
// file doesn't flood the sink.
const maxSyntaxDiagnostics = 20

// eraseWhole lists node kinds that exist only in the type system and
// are blanked in their entirety on emit.
var eraseWhole = map[string]bool{
	"type_annotation":           true,
	"opting_type_annotation":    true,
	"omitting_type_annotation":  true,
	"type_alias_declaration":    true,
	"interface_declaration":     true,
	"type_parameters":           true,
	"type_arguments":            true,
	"implements_clause":         true,
	"ambient_declaration":       true,
	"function_signature":        true,
	"abstract_method_signature": true,
	"accessibility_modifier":    true,
	"override_modifier":         true,
}

// eraseTail lists node kinds where everything after the first child is
// type syntax: `expr as T`, `expr satisfies T`, `expr!`.
var eraseTail = map[string]bool{
	"as_expression":        true,
	"satisfies_expression": true,
	"non_null_expression":  true,
}

// eraseTokens lists anonymous modifier tokens with no runtime meaning.
var eraseTokens = map[string]bool{
	"abstract": true,
	"readonly": true,
	"declare":  true,
	"override": true,
}

// unsupported maps node kinds that require real code generation, which
// a type stripper cannot provide, to their diagnostic messages.
var unsupported = map[string]string{
	"enum_declaration": "enums require code generation and are not supported; use a const object",
	"internal_module":  "namespaces require code generation and are not supported; use modules",
}

// Strip converts TypeScript source to JavaScript by blanking type-only
// syntax with spaces, so every surviving token keeps its original line
// and column. Relative import specifiers ending in .ts/.mts are
// rewritten in place to their output extensions.
//
// Constructs that need real code generation (enums, namespaces,
// parameter properties) produce error diagnostics and pass through
// unmodified.
func Strip(content []byte) ([]byte, []Diagnostic, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, nil, err
	}

	parser := getTSParser()
	defer putTSParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	imports, err := extractImports(tree, content, qm)
	if err != nil {
		return nil, nil, err
	}

	out, diags := stripTree(tree, content)
	rewriteSpecifiers(out, imports)
	return out, diags, nil
}

// stripTree blanks type syntax on a copy of content and collects
// unsupported-construct diagnostics.
func stripTree(tree *ts.Tree, content []byte) ([]byte, []Diagnostic) {
	out := append([]byte(nil), content...)
	var diags []Diagnostic

	var walk func(node *ts.Node)
	walk = func(node *ts.Node) {
		kind := node.Kind()

		if msg, ok := unsupported[kind]; ok {
			diags = append(diags, Diagnostic{
				Line:     int(node.StartPosition().Row) + 1,
				Column:   int(node.StartPosition().Column) + 1,
				Severity: SeverityError,
				Code:     CodeUnsupported,
				Message:  msg,
			})
			return
		}

		if eraseWhole[kind] {
			blank(out, node.StartByte(), node.EndByte())
			return
		}

		switch kind {
		case "import_statement", "export_statement":
			if isTypeOnlyStatement(node) {
				blank(out, node.StartByte(), node.EndByte())
				return
			}
			// `export interface ...` must not leave an orphaned export
			// keyword behind when its declaration is blanked.
			if decl := node.ChildByFieldName("declaration"); decl != nil && eraseWhole[decl.Kind()] {
				blank(out, node.StartByte(), node.EndByte())
				return
			}
		case "import_specifier", "export_specifier":
			if typeOnlySpecifier(node) {
				blankSpecifier(out, node)
				return
			}
		case "required_parameter":
			// constructor(private x: T) declares a field; stripping the
			// modifier would silently change behavior.
			if p := namedChildOfKind(node, "accessibility_modifier"); p != nil {
				diags = append(diags, Diagnostic{
					Line:     int(p.StartPosition().Row) + 1,
					Column:   int(p.StartPosition().Column) + 1,
					Severity: SeverityError,
					Code:     CodeUnsupported,
					Message:  "parameter properties require code generation and are not supported",
				})
			}
		}

		if eraseTail[kind] {
			if first := node.Child(0); first != nil {
				blank(out, first.EndByte(), node.EndByte())
				walk(first)
			}
			return
		}

		count := node.ChildCount()
		for i := uint(0); i < count; i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			if !child.IsNamed() {
				childKind := child.Kind()
				if eraseTokens[childKind] {
					blank(out, child.StartByte(), child.EndByte())
					continue
				}
				// optional markers and definite-assignment assertions
				if (childKind == "?" || childKind == "!") && isDeclarationContext(kind) {
					blank(out, child.StartByte(), child.EndByte())
				}
				continue
			}
			walk(child)
		}
	}
	walk(tree.RootNode())

	return out, diags
}

// isDeclarationContext reports whether a bare ? or ! token inside this
// node kind is type syntax rather than an operator.
func isDeclarationContext(kind string) bool {
	switch kind {
	case "required_parameter", "optional_parameter", "public_field_definition",
		"property_signature", "variable_declarator", "method_definition":
		return true
	}
	return false
}

// namedChildOfKind returns the first named child with the given kind.
func namedChildOfKind(node *ts.Node, kind string) *ts.Node {
	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// typeOnlySpecifier reports whether a named import/export specifier
// carries the inline `type` keyword. The grammar exposes it as an
// anonymous "type" token child of the specifier.
func typeOnlySpecifier(node *ts.Node) bool {
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == "type" {
			return true
		}
	}
	return false
}

// blankSpecifier blanks a type-only specifier together with the comma
// separating it from its neighbors, so the surviving list stays valid.
func blankSpecifier(out []byte, node *ts.Node) {
	start, end := node.StartByte(), node.EndByte()
	if next := node.NextSibling(); next != nil && next.Kind() == "," {
		end = next.EndByte()
	} else if prev := node.PrevSibling(); prev != nil && prev.Kind() == "," {
		start = prev.StartByte()
	}
	blank(out, start, end)
}

// blank overwrites [start, end) with spaces, preserving newlines so
// later tokens keep their positions.
func blank(out []byte, start, end uint) {
	for i := start; i < end && i < uint(len(out)); i++ {
		if out[i] != '\n' && out[i] != '\r' {
			out[i] = ' '
		}
	}
}

// rewriteSpecifiers rewrites relative .ts/.mts specifiers to .js/.mjs.
// Both rewrites flip a single byte, so positions are preserved.
func rewriteSpecifiers(out []byte, imports []Import) {
	for _, imp := range imports {
		if IsBareSpecifier(imp.Specifier) {
			continue
		}
		if strings.HasSuffix(imp.Specifier, ".ts") || strings.HasSuffix(imp.Specifier, ".mts") {
			idx := imp.End - 2
			if idx < uint(len(out)) && out[idx] == 't' {
				out[idx] = 'j'
			}
		}
	}
}

// syntaxDiagnostics collects parse errors from a tree.
func syntaxDiagnostics(tree *ts.Tree, content []byte) []Diagnostic {
	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	var diags []Diagnostic
	var walk func(node *ts.Node)
	walk = func(node *ts.Node) {
		if len(diags) >= maxSyntaxDiagnostics {
			return
		}
		if node.IsError() {
			excerpt := node.Utf8Text(content)
			if len(excerpt) > 20 {
				excerpt = excerpt[:20] + "…"
			}
			diags = append(diags, Diagnostic{
				Line:     int(node.StartPosition().Row) + 1,
				Column:   int(node.StartPosition().Column) + 1,
				Severity: SeverityError,
				Code:     CodeSyntax,
				Message:  fmt.Sprintf("syntax error near %q", excerpt),
			})
			return
		}
		if node.IsMissing() {
			diags = append(diags, Diagnostic{
				Line:     int(node.StartPosition().Row) + 1,
				Column:   int(node.StartPosition().Column) + 1,
				Severity: SeverityError,
				Code:     CodeSyntax,
				Message:  fmt.Sprintf("missing %q", node.Kind()),
			})
			return
		}
		if !node.HasError() {
			return
		}
		count := node.ChildCount()
		for i := uint(0); i < count; i++ {
			if child := node.Child(i); child != nil {
				walk(child)
			}
		}
	}
	walk(root)
	return diags
}
