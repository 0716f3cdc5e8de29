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

// Package output provides shared output utilities for tsb: diagnostic
// formatting (human text or JSON lines) and output-file writing.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"bennypowers.dev/tsb/compiler"
	"bennypowers.dev/tsb/fs"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).Sprint("error")
	warningLabel = color.New(color.FgYellow).Sprint("warning")
	infoLabel    = color.New(color.FgCyan).Sprint("info")
)

// severityLabel returns the colored label for a severity.
func severityLabel(s compiler.Severity) string {
	switch s {
	case compiler.SeverityError:
		return errorLabel
	case compiler.SeverityWarning:
		return warningLabel
	}
	return infoLabel
}

// WriteDiagnostic formats one diagnostic to w. Structured mode prints a
// machine-readable JSON line; text mode prints file:line:col with a
// colored severity label.
func WriteDiagnostic(w io.Writer, d compiler.Diagnostic, structured bool) {
	if structured {
		line, err := json.Marshal(d)
		if err != nil {
			fmt.Fprintf(w, "{\"severity\":\"error\",\"message\":%q}\n", err.Error())
			return
		}
		fmt.Fprintln(w, string(line))
		return
	}

	label := severityLabel(d.Severity)
	switch {
	case d.File == "":
		fmt.Fprintf(w, "%s: %s\n", label, d.Message)
	case d.Line == 0:
		fmt.Fprintf(w, "%s: %s: %s\n", d.File, label, d.Message)
	default:
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", d.File, d.Line, d.Column, label, d.Message)
	}
}

// WriteOutputs writes emitted artifacts to disk, creating parent
// directories as needed.
func WriteOutputs(osfs fs.FileSystem, outputs []compiler.OutputFile) error {
	for _, out := range outputs {
		if err := osfs.MkdirAll(filepath.Dir(out.Path), 0755); err != nil {
			return fmt.Errorf("creating output directory for %s: %w", out.Path, err)
		}
		if err := osfs.WriteFile(out.Path, out.Contents, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out.Path, err)
		}
	}
	return nil
}
