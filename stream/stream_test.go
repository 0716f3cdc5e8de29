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
package stream_test

import (
	"context"
	"strings"
	"testing"

	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/engine"
	"bennypowers.dev/tsb/internal/mapfs"
	"bennypowers.dev/tsb/stream"
	"bennypowers.dev/tsb/testutil"
	"bennypowers.dev/tsb/tsconfig"
)

// fixtureFS builds an in-memory project with a mix of matching and
// non-matching files.
func fixtureFS() *mapfs.MapFileSystem {
	mfs := mapfs.New()
	mfs.AddFile("proj/tsconfig.json", `{
  "compilerOptions": { "rootDir": "src", "outDir": "out" }
}`, 0644)
	mfs.AddFile("proj/src/greeter.ts", "export function greet(name: string): string { return name; }\n", 0644)
	mfs.AddFile("proj/src/main.ts", "import { greet } from './greeter.js';\nconsole.log(greet('hi'));\n", 0644)
	mfs.AddFile("proj/src/types.d.ts", "export declare const x: number;\n", 0644)
	mfs.AddFile("proj/src/notes.txt", "not a source file\n", 0644)
	mfs.AddFile("proj/src/node_modules/dep/index.ts", "export const dep = 1;\n", 0644)
	return mfs
}

func loadFixture(t *testing.T, mfs *mapfs.MapFileSystem) *tsconfig.Project {
	t.Helper()
	project := tsconfig.Load(mfs, "proj/tsconfig.json")
	if project.LoadError != nil {
		t.Fatalf("Failed to load fixture config: %v", project.LoadError)
	}
	return project
}

func TestDiscover(t *testing.T) {
	mfs := fixtureFS()
	project := loadFixture(t, mfs)

	files, err := stream.Discover(mfs, project)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("Expected 2 source files, got %d: %v", len(files), files)
	}
	// sorted by path
	if !strings.HasSuffix(files[0].Path, "greeter.ts") {
		t.Errorf("Expected greeter.ts first, got %s", files[0].Path)
	}
	if !strings.HasSuffix(files[1].Path, "main.ts") {
		t.Errorf("Expected main.ts second, got %s", files[1].Path)
	}
	if len(files[0].Contents) == 0 {
		t.Error("Expected file contents read")
	}
}

func TestPipelineRun(t *testing.T) {
	mfs := fixtureFS()
	project := loadFixture(t, mfs)

	var seen []compiler.Diagnostic
	pipeline := &stream.Pipeline{
		FS:           mfs,
		Engine:       engine.New(project, engine.Options{}),
		Project:      project,
		WriteOutputs: true,
		OnDiagnostic: func(d compiler.Diagnostic) { seen = append(seen, d) },
	}

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.ErrorCount != 0 {
		t.Errorf("Expected clean build, got %d errors: %v", res.ErrorCount, res.Diagnostics)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("Expected 2 outputs, got %d", len(res.Outputs))
	}
	if len(seen) != len(res.Diagnostics) {
		t.Errorf("Expected observer to see every diagnostic")
	}

	mainJS, err := mfs.ReadFile("proj/out/main.js")
	if err != nil {
		t.Fatalf("Expected main.js written: %v", err)
	}
	if !strings.Contains(string(mainJS), "./greeter.js") {
		t.Errorf("Expected emitted import specifier, got %q", mainJS)
	}

	greeterJS, err := mfs.ReadFile("proj/out/greeter.js")
	if err != nil {
		t.Fatalf("Expected greeter.js written: %v", err)
	}
	if strings.Contains(string(greeterJS), ": string") {
		t.Errorf("Expected annotations stripped, got %q", greeterJS)
	}
}

func TestPipelineSecondRunEmitsNothing(t *testing.T) {
	mfs := fixtureFS()
	project := loadFixture(t, mfs)

	pipeline := &stream.Pipeline{
		FS:           mfs,
		Engine:       engine.New(project, engine.Options{}),
		Project:      project,
		WriteOutputs: true,
	}

	first, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if len(first.Outputs) != 2 {
		t.Fatalf("Expected 2 outputs on first run, got %d", len(first.Outputs))
	}

	second, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(second.Outputs) != 0 {
		t.Errorf("Expected no outputs on unchanged second run, got %d", len(second.Outputs))
	}

	mfs.AddFile("proj/src/main.ts", "import { greet } from './greeter.js';\nconsole.log(greet('bye'));\n", 0644)
	third, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Third run failed: %v", err)
	}
	if len(third.Outputs) != 1 || !strings.HasSuffix(third.Outputs[0].Path, "main.js") {
		t.Errorf("Expected only main.js rebuilt, got %v", third.Outputs)
	}
}

func TestPipelineNoWrites(t *testing.T) {
	mfs := fixtureFS()
	project := loadFixture(t, mfs)

	pipeline := &stream.Pipeline{
		FS:      mfs,
		Engine:  engine.New(project, engine.Options{}),
		Project: project,
	}

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("Expected outputs collected, got %d", len(res.Outputs))
	}
	if mfs.Exists("proj/out/main.js") {
		t.Error("Expected no files written without WriteOutputs")
	}
}

func TestPipelineErrorCount(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("proj/tsconfig.json", `{}`, 0644)
	mfs.AddFile("proj/broken.ts", "const = ;\n", 0644)
	project := loadFixture(t, mfs)

	pipeline := &stream.Pipeline{
		FS:      mfs,
		Engine:  engine.New(project, engine.Options{}),
		Project: project,
	}

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ErrorCount == 0 {
		t.Fatal("Expected errors counted")
	}

	var sawSyntax bool
	for _, d := range res.Diagnostics {
		if d.Code == compiler.CodeSyntax && d.Severity == compiler.SeverityError {
			sawSyntax = true
		}
	}
	if !sawSyntax {
		t.Errorf("Expected a syntax diagnostic, got %v", res.Diagnostics)
	}
}

func TestPipelineDiskFixture(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "project/simple", "proj")
	project := loadFixture(t, mfs)

	pipeline := &stream.Pipeline{
		FS:           mfs,
		Engine:       engine.New(project, engine.Options{}),
		Project:      project,
		WriteOutputs: true,
	}

	res, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ErrorCount != 0 {
		t.Fatalf("Expected clean build, got %v", res.Diagnostics)
	}
	if !mfs.Exists("proj/out/greeter.js") || !mfs.Exists("proj/out/main.js") {
		t.Error("Expected outputs written under outDir")
	}
}

func TestPipelineRunBuffered(t *testing.T) {
	project := tsconfig.New("src")
	project.OutDir = "out"
	eng := engine.New(project, engine.Options{})

	if err := eng.File(engine.SourceFile{
		Path:     "src/main.ts",
		Contents: []byte("export const x: number = 1;\n"),
	}); err != nil {
		t.Fatal(err)
	}

	pipeline := &stream.Pipeline{FS: mapfs.New(), Engine: eng, Project: project}
	res, err := pipeline.RunBuffered(context.Background())
	if err != nil {
		t.Fatalf("RunBuffered failed: %v", err)
	}
	if len(res.Outputs) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(res.Outputs))
	}
}
