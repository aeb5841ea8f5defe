// Copyright 2025 The lpinstance Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scm models capacitated facility location with vehicle distance
// limits as a linear program.
//
// Customers with a fixed demand are served by open facilities. Every facility
// runs up to one vehicle per customer, and each vehicle slot is bounded by a
// maximum round-trip distance. The objective adds the facility opening costs,
// the per-unit allocation costs and a fixed cost per used vehicle.
//
// All decision variables are continuous in [0, 1]: the model is the linear
// relaxation of the combinatorial problem.
package scm

import (
	"fmt"

	lp "github.com/scmlp/lpinstance/linearsolver"
)

// Solver is the part of the linear solver the model builder programs against.
// *linearsolver.LinearSolver implements it.
type Solver interface {
	NewVar(lb, ub float64) lp.Variable
	AddLessOrEqual(lhs, rhs lp.LinearArgument) lp.Constraint
	AddGreaterOrEqual(lhs, rhs lp.LinearArgument) lp.Constraint
	AddEquality(lhs, rhs lp.LinearArgument) lp.Constraint
	Minimize(obj lp.LinearArgument)
	Solve() lp.ResultStatus
	ObjectiveValue() float64
	Value(la lp.LinearArgument) float64
}

// Model holds the decision variables created for a Problem.
//
// Variables live in flat slices: assign[f][v][c] is at (f*V+v)*C+c and
// used[f][v] at f*V+v.
type Model struct {
	p      *Problem
	solver Solver
	assign []lp.Variable
	open   []lp.Variable
	used   []lp.Variable
}

// BuildModel creates the variables, constraints and objective of `p` in `s`.
// The solver must be empty and is owned by the returned Model.
func BuildModel(p *Problem, s Solver) *Model {
	m := &Model{p: p, solver: s}
	m.addVariables()
	m.addCapacityConstraints()
	m.addCoverageConstraints()
	m.addDistanceConstraints()
	m.addLinkingConstraints()
	m.setObjective()
	return m
}

func (m *Model) assignIndex(f, v, c int) int {
	return (f*m.p.NumVehicles()+v)*m.p.NumCustomers() + c
}

func (m *Model) usedIndex(f, v int) int {
	return f*m.p.NumVehicles() + v
}

func nameConstraint(ct lp.Constraint, format string, a ...any) {
	ct.WithName(fmt.Sprintf(format, a...))
}

func (m *Model) addVariables() {
	nf, nv, nc := m.p.NumFacilities(), m.p.NumVehicles(), m.p.NumCustomers()
	m.assign = make([]lp.Variable, nf*nv*nc)
	m.open = make([]lp.Variable, nf)
	m.used = make([]lp.Variable, nf*nv)
	for f := 0; f < nf; f++ {
		for v := 0; v < nv; v++ {
			for c := 0; c < nc; c++ {
				m.assign[m.assignIndex(f, v, c)] = m.solver.NewVar(0, 1)
			}
			m.used[m.usedIndex(f, v)] = m.solver.NewVar(0, 1)
		}
		m.open[f] = m.solver.NewVar(0, 1)
	}
}

// addCapacityConstraints limits the demand served by each facility to its capacity.
func (m *Model) addCapacityConstraints() {
	nf, nv, nc := m.p.NumFacilities(), m.p.NumVehicles(), m.p.NumCustomers()
	for f := 0; f < nf; f++ {
		expr := lp.NewLinearExprWithCapacity(nv * nc)
		for v := 0; v < nv; v++ {
			for c := 0; c < nc; c++ {
				expr.AddTerm(m.assign[m.assignIndex(f, v, c)], m.p.Demand(c))
			}
		}
		ct := m.solver.AddLessOrEqual(expr, lp.NewConstant(m.p.Capacity(f)))
		nameConstraint(ct, "capacity_%d", f)
	}
}

// addCoverageConstraints requires the demand of every customer to be fully
// covered by the facilities and vehicles combined.
func (m *Model) addCoverageConstraints() {
	nf, nv, nc := m.p.NumFacilities(), m.p.NumVehicles(), m.p.NumCustomers()
	for c := 0; c < nc; c++ {
		expr := lp.NewLinearExprWithCapacity(nf * nv)
		for f := 0; f < nf; f++ {
			for v := 0; v < nv; v++ {
				expr.Add(m.assign[m.assignIndex(f, v, c)])
			}
		}
		ct := m.solver.AddGreaterOrEqual(expr, lp.NewConstant(1))
		nameConstraint(ct, "coverage_%d", c)
	}
}

// addDistanceConstraints bounds the distance driven by each vehicle slot
// index. The slot index is shared by all facilities: slot v of every
// facility counts against the same limit.
func (m *Model) addDistanceConstraints() {
	nf, nv, nc := m.p.NumFacilities(), m.p.NumVehicles(), m.p.NumCustomers()
	for v := 0; v < nv; v++ {
		expr := lp.NewLinearExprWithCapacity(nf * nc)
		for f := 0; f < nf; f++ {
			for c := 0; c < nc; c++ {
				expr.AddTerm(m.assign[m.assignIndex(f, v, c)], m.p.Distance(c, f))
			}
		}
		ct := m.solver.AddLessOrEqual(expr, lp.NewConstant(m.p.TruckDistLimit()))
		nameConstraint(ct, "distance_%d", v)
	}
}

// addLinkingConstraints keeps the open and used indicators at least as large
// as every assignment depending on them. There are 2*F*V*C of them, left
// unnamed.
func (m *Model) addLinkingConstraints() {
	nf, nv, nc := m.p.NumFacilities(), m.p.NumVehicles(), m.p.NumCustomers()
	for v := 0; v < nv; v++ {
		for f := 0; f < nf; f++ {
			used := m.used[m.usedIndex(f, v)]
			for c := 0; c < nc; c++ {
				a := m.assign[m.assignIndex(f, v, c)]
				m.solver.AddGreaterOrEqual(m.open[f], a)
				m.solver.AddGreaterOrEqual(used, a)
			}
		}
	}
}

func (m *Model) setObjective() {
	nf, nv, nc := m.p.NumFacilities(), m.p.NumVehicles(), m.p.NumCustomers()
	obj := lp.NewLinearExprWithCapacity(nf + len(m.assign) + len(m.used))
	for f := 0; f < nf; f++ {
		obj.AddTerm(m.open[f], m.p.OpeningCost(f))
	}
	for v := 0; v < nv; v++ {
		for f := 0; f < nf; f++ {
			for c := 0; c < nc; c++ {
				obj.AddTerm(m.assign[m.assignIndex(f, v, c)], m.p.AllocCost(c, f))
			}
		}
	}
	for v := 0; v < nv; v++ {
		for f := 0; f < nf; f++ {
			obj.AddTerm(m.used[m.usedIndex(f, v)], m.p.TruckUsageCost())
		}
	}
	m.solver.Minimize(obj)
}

// Problem returns the instance the model was built for.
func (m *Model) Problem() *Problem {
	return m.p
}

// Solver returns the solver holding the model.
func (m *Model) Solver() Solver {
	return m.solver
}

// Assign returns the fraction of customer c served by vehicle v of facility f.
func (m *Model) Assign(f, v, c int) lp.Variable {
	return m.assign[m.assignIndex(f, v, c)]
}

// FacilityOpen returns the open indicator of facility f.
func (m *Model) FacilityOpen(f int) lp.Variable {
	return m.open[f]
}

// VehicleUsed returns the used indicator of vehicle v of facility f.
func (m *Model) VehicleUsed(f, v int) lp.Variable {
	return m.used[m.usedIndex(f, v)]
}

// Assignment returns the solved value of Assign(f, v, c), or NaN before an
// optimal solve.
func (m *Model) Assignment(f, v, c int) float64 {
	return m.solver.Value(m.Assign(f, v, c))
}

// OpenLevel returns the solved value of FacilityOpen(f).
func (m *Model) OpenLevel(f int) float64 {
	return m.solver.Value(m.open[f])
}

// UsedLevel returns the solved value of VehicleUsed(f, v).
func (m *Model) UsedLevel(f, v int) float64 {
	return m.solver.Value(m.VehicleUsed(f, v))
}
