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
	"testing"

	"bennypowers.dev/tsb/compiler"
)

func TestExtractImportsStatic(t *testing.T) {
	source := []byte(`import { html } from 'lit';
import { greet } from './greeter.js';
`)

	imports, err := compiler.ExtractImports(source)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("Expected 2 imports, got %d", len(imports))
	}

	if imports[0].Specifier != "lit" {
		t.Errorf("Expected specifier 'lit', got %q", imports[0].Specifier)
	}
	if imports[0].Line != 1 {
		t.Errorf("Expected line 1, got %d", imports[0].Line)
	}
	if imports[1].Specifier != "./greeter.js" {
		t.Errorf("Expected specifier './greeter.js', got %q", imports[1].Specifier)
	}
	if imports[1].Line != 2 {
		t.Errorf("Expected line 2, got %d", imports[1].Line)
	}
}

func TestExtractImportsDynamic(t *testing.T) {
	source := []byte(`async function load() {
  const mod = await import('./lazy.js');
  return mod;
}
`)

	imports, err := compiler.ExtractImports(source)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if len(imports) != 1 {
		t.Fatalf("Expected 1 import, got %d", len(imports))
	}
	if !imports[0].IsDynamic {
		t.Error("Expected dynamic import")
	}
	if imports[0].Specifier != "./lazy.js" {
		t.Errorf("Expected specifier './lazy.js', got %q", imports[0].Specifier)
	}
}

func TestExtractImportsReexport(t *testing.T) {
	source := []byte(`export { greet } from './greeter.js';
export * from './util.js';
`)

	imports, err := compiler.ExtractImports(source)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("Expected 2 imports, got %d", len(imports))
	}
	if imports[0].Specifier != "./greeter.js" {
		t.Errorf("Expected './greeter.js', got %q", imports[0].Specifier)
	}
	if imports[1].Specifier != "./util.js" {
		t.Errorf("Expected './util.js', got %q", imports[1].Specifier)
	}
}

func TestExtractImportsTypeOnly(t *testing.T) {
	source := []byte(`import type { Greeting } from './types.js';
import { greet } from './greeter.js';
`)

	imports, err := compiler.ExtractImports(source)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("Expected 2 imports, got %d", len(imports))
	}
	if !imports[0].TypeOnly {
		t.Error("Expected first import to be type-only")
	}
	if imports[1].TypeOnly {
		t.Error("Expected second import to be a value import")
	}
}

func TestExtractImportsSpecifierOffsets(t *testing.T) {
	source := []byte(`import { x } from './x.ts';`)

	imports, err := compiler.ExtractImports(source)
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if len(imports) != 1 {
		t.Fatalf("Expected 1 import, got %d", len(imports))
	}

	imp := imports[0]
	if got := string(source[imp.Start:imp.End]); got != "./x.ts" {
		t.Errorf("Expected offsets to cover './x.ts', got %q", got)
	}
}

func TestExtractImportsNone(t *testing.T) {
	imports, err := compiler.ExtractImports([]byte(`const x = 1;`))
	if err != nil {
		t.Fatalf("ExtractImports failed: %v", err)
	}
	if len(imports) != 0 {
		t.Errorf("Expected no imports, got %d", len(imports))
	}
}

func TestIsBareSpecifier(t *testing.T) {
	tests := []struct {
		specifier string
		want      bool
	}{
		{"lit", true},
		{"@scope/pkg", true},
		{"lit/decorators.js", true},
		{"./local.js", false},
		{"../up.js", false},
		{"/absolute.js", false},
		{"https://example.com/mod.js", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := compiler.IsBareSpecifier(tt.specifier); got != tt.want {
			t.Errorf("IsBareSpecifier(%q) = %v, want %v", tt.specifier, got, tt.want)
		}
	}
}
