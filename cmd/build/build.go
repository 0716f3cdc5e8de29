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

// Package build provides the build command for tsb.
package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/tsb/buildinfo"
	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/engine"
	"bennypowers.dev/tsb/fs"
	"bennypowers.dev/tsb/internal/output"
	"bennypowers.dev/tsb/stream"
	"bennypowers.dev/tsb/tsconfig"
)

// Cmd is the build cobra command that compiles a project incrementally.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Compile the project",
	Long: `Compile the project's TypeScript sources to JavaScript.

Sources are discovered from the project's tsconfig.json. With
--build-info, snapshot state persists between invocations and unchanged
files are skipped on the next run.`,
	Example: `  # Compile the project in the current directory
  tsb build

  # Compile a specific project
  tsb build -p ./packages/core

  # Compile into a different output directory
  tsb build --out-dir dist

  # Keep incremental state between invocations
  tsb build --build-info .tsb.buildinfo`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("out-dir", "", "Output directory (overrides tsconfig outDir)")
	Cmd.Flags().String("build-info", "", "Persist incremental state to this file")
	Cmd.Flags().Bool("json", false, "Emit diagnostics as JSON lines")

	_ = viper.BindPFlag("out-dir", Cmd.Flags().Lookup("out-dir"))
	_ = viper.BindPFlag("build-info", Cmd.Flags().Lookup("build-info"))
	_ = viper.BindPFlag("json", Cmd.Flags().Lookup("json"))
}

// LoadProject resolves the --project flag to a tsconfig.Project. The
// flag may name the project directory or the config file itself.
func LoadProject(osfs fs.FileSystem) (*tsconfig.Project, error) {
	projectArg := viper.GetString("project")
	abs, err := filepath.Abs(projectArg)
	if err != nil {
		return nil, fmt.Errorf("invalid project path: %w", err)
	}
	configPath := abs
	if filepath.Ext(abs) != ".json" {
		configPath = filepath.Join(abs, "tsconfig.json")
	}
	return tsconfig.Load(osfs, configPath), nil
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	project, err := LoadProject(osfs)
	if err != nil {
		return err
	}
	if outDir := viper.GetString("out-dir"); outDir != "" {
		project.OutDir = outDir
	}

	jsonMode := viper.GetBool("json")
	eng := engine.New(project, engine.Options{
		Verbose:               viper.GetBool("verbose"),
		StructuredDiagnostics: jsonMode,
	})

	infoPath := viper.GetString("build-info")
	if infoPath != "" {
		snaps, err := buildinfo.Load(osfs, infoPath)
		if err != nil {
			return err
		}
		eng.SeedSnapshots(snaps)
	}

	pipeline := &stream.Pipeline{
		FS:           osfs,
		Engine:       eng,
		Project:      project,
		WriteOutputs: !project.NoEmit,
		OnDiagnostic: func(d compiler.Diagnostic) {
			output.WriteDiagnostic(os.Stderr, d, jsonMode)
		},
	}

	res, err := pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	if infoPath != "" {
		if err := buildinfo.Save(osfs, infoPath, eng.CommittedSnapshots()); err != nil {
			return err
		}
	}

	if res.ErrorCount > 0 {
		return fmt.Errorf("build finished with %d error(s)", res.ErrorCount)
	}
	return nil
}
