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

import "bennypowers.dev/tsb/compiler"

// Oracle is the engine's view of the compiler service: incremental
// content registration, per-unit diagnostics and outputs, and
// dependency-graph queries. The default implementation wraps
// compiler.Service; tests substitute fakes.
//
// ReverseDependenciesOf returns direct reverse dependencies; the
// change-set resolver computes the transitive closure itself.
type Oracle interface {
	RegisterOrUpdate(path string, content []byte) error
	Remove(path string) error
	DiagnosticsFor(path string) ([]compiler.Diagnostic, error)
	EmitOutputsFor(path string) ([]compiler.OutputFile, error)
	ReverseDependenciesOf(path string) ([]string, error)
}

// serviceOracle is the thin pass-through over compiler.Service.
// compiler.Service already satisfies the contract method-for-method;
// the indirection exists so the engine never exposes the service's
// wider mutable surface to its own internals.
type serviceOracle struct {
	svc *compiler.Service
}

// NewServiceOracle wraps a compiler service as an Oracle.
func NewServiceOracle(svc *compiler.Service) Oracle {
	return &serviceOracle{svc: svc}
}

func (o *serviceOracle) RegisterOrUpdate(path string, content []byte) error {
	return o.svc.RegisterOrUpdate(path, content)
}

func (o *serviceOracle) Remove(path string) error {
	return o.svc.Remove(path)
}

func (o *serviceOracle) DiagnosticsFor(path string) ([]compiler.Diagnostic, error) {
	return o.svc.DiagnosticsFor(path)
}

func (o *serviceOracle) EmitOutputsFor(path string) ([]compiler.OutputFile, error) {
	return o.svc.EmitOutputsFor(path)
}

func (o *serviceOracle) ReverseDependenciesOf(path string) ([]string, error) {
	return o.svc.ReverseDependenciesOf(path)
}
