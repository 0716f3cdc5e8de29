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

// Package graph provides the graph command for tsb.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/tsb/cmd/build"
	"bennypowers.dev/tsb/engine"
	"bennypowers.dev/tsb/fs"
	"bennypowers.dev/tsb/stream"
)

// Cmd is the graph command: it analyzes the project and prints each
// unit's resolved imports.
var Cmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the project's dependency graph",
	Long: `Analyze the project and print each source file with the files it
imports, as resolved within the project.`,
	Example: `  # Text output
  tsb graph

  # Machine-readable output
  tsb graph --format json

  # Every file that transitively imports src/greeter.ts
  tsb graph --dependents-of src/greeter.ts`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	Cmd.Flags().String("dependents-of", "", "Print only the files that transitively import this file")
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}

	osfs := fs.NewOSFileSystem()

	project, err := build.LoadProject(osfs)
	if err != nil {
		return err
	}
	project.NoEmit = true

	eng := engine.New(project, engine.Options{Verbose: viper.GetBool("verbose")})
	pipeline := &stream.Pipeline{FS: osfs, Engine: eng, Project: project}
	if _, err := pipeline.Run(cmd.Context()); err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	target, err := cmd.Flags().GetString("dependents-of")
	if err != nil {
		return fmt.Errorf("error reading dependents-of flag: %w", err)
	}
	if target != "" {
		deps := eng.LanguageService().TransitiveDependentsOf(target)
		if format == "json" {
			out, err := json.MarshalIndent(deps, "", "  ")
			if err != nil {
				return fmt.Errorf("error marshaling dependents: %w", err)
			}
			fmt.Fprintln(w, string(out))
			return nil
		}
		for _, dep := range deps {
			fmt.Fprintln(w, dep)
		}
		return nil
	}

	snap := eng.LanguageService().Snapshot()

	if format == "json" {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling graph: %w", err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	for _, f := range snap.Files {
		fmt.Fprintln(w, f.Path)
		for _, imp := range f.Imports {
			fmt.Fprintf(w, "  %s\n", imp)
		}
	}
	return nil
}
