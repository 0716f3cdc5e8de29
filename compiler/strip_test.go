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
package compiler_test

import (
	"bytes"
	"strings"
	"testing"

	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/testutil"
)

// mustStrip strips source and fails the test on infrastructure errors.
func mustStrip(t *testing.T, source string) (string, []compiler.Diagnostic) {
	t.Helper()
	out, diags, err := compiler.Strip([]byte(source))
	if err != nil {
		t.Fatalf("Strip failed: %v", err)
	}
	return string(out), diags
}

func TestStripPreservesLength(t *testing.T) {
	source := `const x: number = 1;
interface Point { x: number; y: number }
function id<T>(v: T): T { return v; }
`
	out, diags := mustStrip(t, source)
	if len(diags) != 0 {
		t.Fatalf("Expected no diagnostics, got %v", diags)
	}
	if len(out) != len(source) {
		t.Errorf("Expected output length %d, got %d", len(source), len(out))
	}
	if bytes.Count([]byte(out), []byte("\n")) != strings.Count(source, "\n") {
		t.Error("Expected line count preserved")
	}
}

func TestStripTypeAnnotation(t *testing.T) {
	out, _ := mustStrip(t, `const x: number = 1;`)
	if strings.Contains(out, "number") {
		t.Errorf("Expected annotation stripped, got %q", out)
	}
	// surviving tokens keep their columns
	if !strings.Contains(out, "const x") {
		t.Errorf("Expected declaration kept, got %q", out)
	}
	if idx := strings.Index(out, "= 1;"); idx != strings.Index(`const x: number = 1;`, "= 1;") {
		t.Errorf("Expected '= 1;' at its original column, got %q", out)
	}
}

func TestStripInterface(t *testing.T) {
	out, _ := mustStrip(t, `interface Point { x: number }
const p = { x: 1 };
`)
	if strings.Contains(out, "interface") {
		t.Errorf("Expected interface stripped, got %q", out)
	}
	if !strings.Contains(out, "const p = { x: 1 };") {
		t.Errorf("Expected value code kept, got %q", out)
	}
}

func TestStripExportedInterface(t *testing.T) {
	out, _ := mustStrip(t, `export interface Opts { name: string }
export const x = 1;
`)
	if strings.Contains(out, "export interface") || strings.Contains(out, "export \n") {
		t.Errorf("Expected whole export statement erased, got %q", out)
	}
	lines := strings.SplitN(out, "\n", 2)
	if strings.TrimSpace(lines[0]) != "" {
		t.Errorf("Expected first line fully blanked, got %q", lines[0])
	}
	if !strings.Contains(out, "export const x = 1;") {
		t.Errorf("Expected value export kept, got %q", out)
	}
}

func TestStripGolden(t *testing.T) {
	input := testutil.LoadFixtureFile(t, "strip/input.ts")

	out, diags, err := compiler.Strip(input)
	if err != nil {
		t.Fatalf("Strip failed: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("Expected no diagnostics, got %v", diags)
	}

	testutil.UpdateGoldenFile(t, "strip/expected.js", out)
	expected := testutil.LoadGoldenFile(t, "strip/expected.js")
	if expected == nil {
		return
	}
	if !bytes.Equal(out, expected) {
		t.Errorf("Output differs from golden file.\ngot:\n%s\nwant:\n%s", out, expected)
	}
}

func TestStripTypeAlias(t *testing.T) {
	out, _ := mustStrip(t, `type ID = string;
const id: ID = 'a';
`)
	if strings.Contains(out, "type ID") {
		t.Errorf("Expected alias stripped, got %q", out)
	}
	if !strings.Contains(out, "const id") || strings.Contains(out, ": ID") {
		t.Errorf("Expected annotation stripped, declaration kept, got %q", out)
	}
}

func TestStripAsExpression(t *testing.T) {
	out, _ := mustStrip(t, `const n = value as number;`)
	if strings.Contains(out, "as number") {
		t.Errorf("Expected 'as number' stripped, got %q", out)
	}
	if !strings.Contains(out, "const n = value") {
		t.Errorf("Expected expression kept, got %q", out)
	}
}

func TestStripSatisfiesExpression(t *testing.T) {
	out, _ := mustStrip(t, `const cfg = { a: 1 } satisfies Config;`)
	if strings.Contains(out, "satisfies") {
		t.Errorf("Expected 'satisfies' stripped, got %q", out)
	}
}

func TestStripNonNullAssertion(t *testing.T) {
	out, _ := mustStrip(t, `const el = document.querySelector('div')!;`)
	if strings.Contains(out, "!;") {
		t.Errorf("Expected assertion stripped, got %q", out)
	}
}

func TestStripTypeOnlyImport(t *testing.T) {
	out, _ := mustStrip(t, `import type { Greeting } from './types.js';
import { greet } from './greeter.js';
`)
	if strings.Contains(out, "Greeting") {
		t.Errorf("Expected type-only import erased, got %q", out)
	}
	if !strings.Contains(out, "import { greet }") {
		t.Errorf("Expected value import kept, got %q", out)
	}
}

func TestStripInlineTypeOnlySpecifier(t *testing.T) {
	source := `import { type Greeting, greet } from './greeter.js';
export { type Opts, run };
`
	out, diags := mustStrip(t, source)
	if len(diags) != 0 {
		t.Fatalf("Expected no diagnostics, got %v", diags)
	}
	if len(out) != len(source) {
		t.Errorf("Expected output length %d, got %d", len(source), len(out))
	}
	if strings.Contains(out, "type") || strings.Contains(out, "Greeting") || strings.Contains(out, "Opts") {
		t.Errorf("Expected inline type specifiers erased, got %q", out)
	}
	if !strings.Contains(out, "greet }") {
		t.Errorf("Expected value import kept, got %q", out)
	}
	if !strings.Contains(out, "run }") {
		t.Errorf("Expected value export kept, got %q", out)
	}
}

func TestStripInlineTypeSpecifierEdges(t *testing.T) {
	source := `import { greet, type Greeting } from './greeter.js';
import { type Only } from './types.js';
`
	out, diags := mustStrip(t, source)
	if len(diags) != 0 {
		t.Fatalf("Expected no diagnostics, got %v", diags)
	}
	if strings.Contains(out, "Greeting") || strings.Contains(out, "Only") {
		t.Errorf("Expected type specifiers erased, got %q", out)
	}
	if strings.Contains(out, ",") {
		t.Errorf("Expected separating comma erased with its specifier, got %q", out)
	}
	if !strings.Contains(out, "{ greet") {
		t.Errorf("Expected value import kept, got %q", out)
	}
	// an emptied clause keeps its side-effect import
	if !strings.Contains(out, "'./types.js'") {
		t.Errorf("Expected module specifier kept, got %q", out)
	}
}

func TestStripRewritesSpecifiers(t *testing.T) {
	out, _ := mustStrip(t, `import { a } from './a.ts';
import { b } from './b.mts';
import { c } from 'pkg/c.ts';
`)
	if !strings.Contains(out, "'./a.js'") {
		t.Errorf("Expected .ts rewritten to .js, got %q", out)
	}
	if !strings.Contains(out, "'./b.mjs'") {
		t.Errorf("Expected .mts rewritten to .mjs, got %q", out)
	}
	// bare specifiers are left alone
	if !strings.Contains(out, "'pkg/c.ts'") {
		t.Errorf("Expected bare specifier untouched, got %q", out)
	}
}

func TestStripOptionalParameter(t *testing.T) {
	out, _ := mustStrip(t, `function f(x?: number) { return x; }`)
	if strings.Contains(out, "?") {
		t.Errorf("Expected optional marker stripped, got %q", out)
	}
}

func TestStripClassModifiers(t *testing.T) {
	out, _ := mustStrip(t, `abstract class Base {
  readonly name: string = '';
  abstract run(): void;
}
`)
	if strings.Contains(out, "abstract") || strings.Contains(out, "readonly") {
		t.Errorf("Expected modifiers stripped, got %q", out)
	}
	if !strings.Contains(out, "class Base") {
		t.Errorf("Expected class kept, got %q", out)
	}
}

func TestStripEnumUnsupported(t *testing.T) {
	_, diags := mustStrip(t, `enum Color { Red, Green }`)
	if len(diags) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", len(diags))
	}
	d := diags[0]
	if d.Code != compiler.CodeUnsupported {
		t.Errorf("Expected code %q, got %q", compiler.CodeUnsupported, d.Code)
	}
	if d.Severity != compiler.SeverityError {
		t.Errorf("Expected error severity, got %v", d.Severity)
	}
	if !strings.Contains(d.Message, "enum") {
		t.Errorf("Expected message to mention enums, got %q", d.Message)
	}
}

func TestStripNamespaceUnsupported(t *testing.T) {
	_, diags := mustStrip(t, `namespace Util { export const x = 1; }`)
	if len(diags) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Code != compiler.CodeUnsupported {
		t.Errorf("Expected code %q, got %q", compiler.CodeUnsupported, diags[0].Code)
	}
}

func TestStripParameterPropertyUnsupported(t *testing.T) {
	_, diags := mustStrip(t, `class C {
  constructor(private x: number) {}
}
`)
	if len(diags) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Line != 2 {
		t.Errorf("Expected diagnostic on line 2, got %d", diags[0].Line)
	}
	if !strings.Contains(diags[0].Message, "parameter properties") {
		t.Errorf("Expected parameter property message, got %q", diags[0].Message)
	}
}

func TestStripPlainJavaScript(t *testing.T) {
	source := `export function add(a, b) {
  return a + b;
}
`
	out, diags := mustStrip(t, source)
	if len(diags) != 0 {
		t.Fatalf("Expected no diagnostics, got %v", diags)
	}
	if out != source {
		t.Errorf("Expected plain JS unchanged, got %q", out)
	}
}
