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
package engine

import (
	"errors"
	"fmt"
)

// ErrBuildInProgress is returned by Build when a pass is already
// running on the same Engine. Passes are strictly serialized; the
// compiler service's program state is not safe for concurrent mutation.
var ErrBuildInProgress = errors.New("build pass already in progress")

// ConfigurationError reports that the project configuration could not
// be loaded. It is terminal for the build pass but not for the Engine:
// a new Engine over a corrected configuration will build normally.
type ConfigurationError struct {
	ConfigPath string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if e.ConfigPath == "" {
		return fmt.Sprintf("invalid project configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid project configuration %s: %v", e.ConfigPath, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InputRejectedError reports that a pushed source unit is in an
// unsupported representation. Fatal for that push only.
type InputRejectedError struct {
	Path   string
	Reason string
}

func (e *InputRejectedError) Error() string {
	return fmt.Sprintf("rejected input %s: %s", e.Path, e.Reason)
}

// ServiceFaultError reports that the compiler service failed while
// registering or querying a unit. Faults surface as diagnostics for the
// offending unit; remaining units still process.
type ServiceFaultError struct {
	Unit string
	Op   string
	Err  error
}

func (e *ServiceFaultError) Error() string {
	return fmt.Sprintf("compiler service fault during %s of %s: %v", e.Op, e.Unit, e.Err)
}

func (e *ServiceFaultError) Unwrap() error { return e.Err }
