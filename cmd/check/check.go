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

// Package check provides the check command for tsb.
package check

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/tsb/cmd/build"
	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/engine"
	"bennypowers.dev/tsb/fs"
	"bennypowers.dev/tsb/internal/output"
	"bennypowers.dev/tsb/stream"
)

// Cmd is the check command: a build pass that reports diagnostics
// without writing anything to disk.
var Cmd = &cobra.Command{
	Use:   "check",
	Short: "Report diagnostics without emitting output",
	Long:  `Run a build pass over the project and report diagnostics. No output files are written.`,
	RunE:  run,
}

func init() {
	Cmd.Flags().Bool("json", false, "Emit diagnostics as JSON lines")

	_ = viper.BindPFlag("json", Cmd.Flags().Lookup("json"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	project, err := build.LoadProject(osfs)
	if err != nil {
		return err
	}
	project.NoEmit = true

	jsonMode := viper.GetBool("json")
	eng := engine.New(project, engine.Options{
		Verbose:               viper.GetBool("verbose"),
		StructuredDiagnostics: jsonMode,
	})

	pipeline := &stream.Pipeline{
		FS:      osfs,
		Engine:  eng,
		Project: project,
		OnDiagnostic: func(d compiler.Diagnostic) {
			output.WriteDiagnostic(os.Stderr, d, jsonMode)
		},
	}

	res, err := pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	if res.ErrorCount > 0 {
		return fmt.Errorf("found %d error(s)", res.ErrorCount)
	}
	if !jsonMode {
		fmt.Fprintln(cmd.OutOrStdout(), "no errors found")
	}
	return nil
}
