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

import "fmt"

// Severity classifies a diagnostic.
type Severity uint8

const (
	// SeverityInfo is for informational and progress diagnostics.
	SeverityInfo Severity = iota
	// SeverityWarning is for advisory diagnostics that don't fail a build.
	SeverityWarning
	// SeverityError is for diagnostics that fail a build.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so structured output
// carries "error" rather than a bare number.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic codes. Codes are stable strings, not numbers; structured
// consumers match on them.
const (
	CodeSyntax       = "syntax"
	CodeUnresolved   = "unresolved-import"
	CodeUnsupported  = "unsupported-syntax"
	CodeServiceFault = "service-fault"
	CodeConfig       = "config"
	CodeProgress     = "progress"
)

// Diagnostic is an advisory record attached to a source unit. It never
// aborts a build pass on its own; error-severity diagnostics only
// affect the process exit code.
type Diagnostic struct {
	// File is the display path of the unit the diagnostic belongs to.
	// Empty for project-level diagnostics.
	File string `json:"file,omitempty"`

	// Line and Column are 1-based. Zero means "no location".
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`

	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// OutputFile is a single emitted artifact.
type OutputFile struct {
	// Path is where the artifact belongs on disk, already rewritten
	// under the project's outDir.
	Path string `json:"path"`

	Contents []byte `json:"contents"`
}
