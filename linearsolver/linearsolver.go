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

// Package linearsolver builds continuous linear programs and solves them with
// the gonum simplex implementation.
//
// The `LinearSolver` struct holds the model: variables with bounds, ranged row
// constraints `lb <= a.x <= ub` and a linear objective. The `Variable` and
// `Constraint` structs are references into that model, and `LinearExpr`
// provides helper methods for building constraints and the objective from
// expressions with many variables and coefficients.
//
// Use it like this:
//
//	solver := linearsolver.New("diet")
//	x := solver.NewVar(0, 10)
//	y := solver.NewVar(0, 10)
//	solver.AddGreaterOrEqual(linearsolver.NewLinearExpr().AddTerm(x, 100).AddTerm(y, 250), linearsolver.NewConstant(500))
//	solver.Minimize(linearsolver.NewLinearExpr().AddTerm(x, 25).AddTerm(y, 15))
//	if solver.Solve() == linearsolver.Optimal {
//		fmt.Println(solver.ObjectiveValue())
//	}
//
// A LinearSolver is not safe for concurrent use.
package linearsolver

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

var (
	// ErrMixedModels holds the error when elements added to a model are different.
	ErrMixedModels = errors.New("elements are not part of the same model")
	// ErrInvalidBounds is returned when a variable or a constraint has empty or NaN bounds.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrDuplicateName is returned when a name is already used by another variable or constraint.
	ErrDuplicateName = errors.New("name already exists")
	// ErrNaN is returned when a coefficient or an offset is NaN.
	ErrNaN = errors.New("NaN coefficient")
	// ErrSolved is returned when the model is modified after Solve() was called.
	ErrSolved = errors.New("model modified after solve")
)

type varProto struct {
	lb, ub float64
	name   string
}

type constraintProto struct {
	lb, ub float64
	name   string
	vars   []VarIndex
	coeffs []float64
}

type objectiveProto struct {
	vars     []VarIndex
	coeffs   []float64
	offset   float64
	maximize bool
}

// LinearSolver holds a linear program and the result of its solve.
type LinearSolver struct {
	name      string
	vars      []varProto
	cons      []constraintProto
	obj       objectiveProto
	varNames  map[string]VarIndex
	consNames map[string]ConstrIndex
	// The first and only the first error is reported in Model and Solve.
	err error

	status    ResultStatus
	objective float64
	values    []float64
}

// New creates a new empty linear program with the given name.
func New(name string) *LinearSolver {
	return &LinearSolver{
		name:      name,
		varNames:  make(map[string]VarIndex),
		consNames: make(map[string]ConstrIndex),
	}
}

// Name returns the name given at creation.
func (ls *LinearSolver) Name() string {
	return ls.name
}

// NumVariables returns the number of variables in the model.
func (ls *LinearSolver) NumVariables() int {
	return len(ls.vars)
}

// NumConstraints returns the number of constraints in the model.
func (ls *LinearSolver) NumConstraints() int {
	return len(ls.cons)
}

// Err returns the first error recorded while building the model.
func (ls *LinearSolver) Err() error {
	return ls.err
}

// setErrorf records the first error and logs every one of them.
func (ls *LinearSolver) setErrorf(base error, format string, a ...any) {
	args := make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = base
	err := fmt.Errorf(format+": %w", args...)
	log.Errorf("%v; use `-log_backtrace_at` flag to get the error stack", err)
	if ls.err == nil {
		ls.err = err
	}
}

// checkMutable records ErrSolved if the model already reached a terminal state.
func (ls *LinearSolver) checkMutable(what string) bool {
	if ls.status.Terminal() {
		ls.setErrorf(ErrSolved, "cannot add %s", what)
		return false
	}
	return true
}

// checkExpr returns false and records an error if `e` references variables
// of another solver or contains NaN.
func (ls *LinearSolver) checkExpr(e *LinearExpr, what string) bool {
	if e.mixed || (e.ls != nil && e.ls != ls) {
		ls.setErrorf(ErrMixedModels, "invalid expression in %s", what)
		return false
	}
	if math.IsNaN(e.offset) {
		ls.setErrorf(ErrNaN, "invalid offset in %s", what)
		return false
	}
	for _, vc := range e.varCoeffs {
		if int(vc.ind) < 0 || int(vc.ind) >= len(ls.vars) {
			ls.setErrorf(ErrMixedModels, "unknown variable %v in %s", vc.ind, what)
			return false
		}
		if math.IsNaN(vc.coeff) {
			ls.setErrorf(ErrNaN, "invalid coefficient on variable %v in %s", vc.ind, what)
			return false
		}
	}
	return true
}

// NewVar creates a new continuous variable with bounds [lb, ub]. The lower
// bound must be finite; the upper bound may be +Inf.
func (ls *LinearSolver) NewVar(lb, ub float64) Variable {
	v := Variable{ind: VarIndex(len(ls.vars)), ls: ls}
	ls.checkMutable("variable")
	if math.IsNaN(lb) || math.IsNaN(ub) || math.IsInf(lb, 0) || math.IsInf(ub, -1) || lb > ub {
		ls.setErrorf(ErrInvalidBounds, "variable %v has bounds [%v, %v]", v.ind, lb, ub)
	}
	ls.vars = append(ls.vars, varProto{lb: lb, ub: ub})
	return v
}

// MakeVar creates and returns a new named variable.
//
// Make `name` an empty string if you would like a unique variable name to be
// generated. Otherwise an error is returned if the provided `name` already
// exists as a variable name.
func (ls *LinearSolver) MakeVar(lb, ub float64, name string) (Variable, error) {
	if name != "" {
		if _, ok := ls.varNames[name]; ok {
			return Variable{}, fmt.Errorf("variable with name %s: %w", name, ErrDuplicateName)
		}
	}
	v := ls.NewVar(lb, ub)
	if name != "" {
		ls.setVarName(v.ind, name)
	}
	return v, nil
}

func (ls *LinearSolver) setVarName(ind VarIndex, name string) {
	if other, ok := ls.varNames[name]; ok && other != ind {
		ls.setErrorf(ErrDuplicateName, "variable %v cannot be named %q", ind, name)
		return
	}
	if old := ls.vars[ind].name; old != "" {
		delete(ls.varNames, old)
	}
	ls.vars[ind].name = name
	if name != "" {
		ls.varNames[name] = ind
	}
}

// LookupVar returns the variable with the given name, and false if not found.
func (ls *LinearSolver) LookupVar(name string) (Variable, bool) {
	ind, ok := ls.varNames[name]
	if !ok {
		return Variable{}, false
	}
	return Variable{ind: ind, ls: ls}, true
}

// Constraint is a reference to a constraint in the model.
type Constraint struct {
	ind ConstrIndex
	ls  *LinearSolver
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// Name returns the name of the constraint. Unnamed constraints get a
// generated name based on their index.
func (c Constraint) Name() string {
	if n := c.ls.cons[c.ind].name; n != "" {
		return n
	}
	return fmt.Sprintf("c%d", c.ind)
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	ls := c.ls
	if other, ok := ls.consNames[s]; ok && other != c.ind {
		ls.setErrorf(ErrDuplicateName, "constraint %v cannot be named %q", c.ind, s)
		return c
	}
	if old := ls.cons[c.ind].name; old != "" {
		delete(ls.consNames, old)
	}
	ls.cons[c.ind].name = s
	if s != "" {
		ls.consNames[s] = c.ind
	}
	return c
}

// LB returns the lower bound of the constraint row.
func (c Constraint) LB() float64 {
	return c.ls.cons[c.ind].lb
}

// UB returns the upper bound of the constraint row.
func (c Constraint) UB() float64 {
	return c.ls.cons[c.ind].ub
}

// Activity returns the value of the row `a.x` in the last optimal solution,
// or NaN if there is none.
func (c Constraint) Activity() float64 {
	if c.ls.values == nil {
		return math.NaN()
	}
	return c.ls.activity(c.ind)
}

// LookupConstraint returns the constraint with the given name, and false if
// not found.
func (ls *LinearSolver) LookupConstraint(name string) (Constraint, bool) {
	ind, ok := ls.consNames[name]
	if !ok {
		return Constraint{}, false
	}
	return Constraint{ind: ind, ls: ls}, true
}

// AddLinearConstraint adds the constraint `lb <= expr <= ub`. Use -Inf or
// +Inf for a missing side.
func (ls *LinearSolver) AddLinearConstraint(expr LinearArgument, lb, ub float64) Constraint {
	c := Constraint{ind: ConstrIndex(len(ls.cons)), ls: ls}
	ls.checkMutable("constraint")
	le := NewLinearExpr().Add(expr)
	proto := constraintProto{lb: lb - le.offset, ub: ub - le.offset}
	if ls.checkExpr(le, fmt.Sprintf("constraint %v", c.ind)) {
		proto.vars = make([]VarIndex, len(le.varCoeffs))
		proto.coeffs = make([]float64, len(le.varCoeffs))
		for i, vc := range le.varCoeffs {
			proto.vars[i] = vc.ind
			proto.coeffs[i] = vc.coeff
		}
	}
	if math.IsNaN(proto.lb) || math.IsNaN(proto.ub) || proto.lb > proto.ub {
		ls.setErrorf(ErrInvalidBounds, "constraint %v has bounds [%v, %v]", c.ind, lb, ub)
	}
	ls.cons = append(ls.cons, proto)
	return c
}

// AddLessOrEqual adds the constraint `lhs <= rhs`.
func (ls *LinearSolver) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	return ls.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), math.Inf(-1), 0)
}

// AddGreaterOrEqual adds the constraint `lhs >= rhs`.
func (ls *LinearSolver) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	return ls.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 0, math.Inf(1))
}

// AddEquality adds the constraint `lhs == rhs`.
func (ls *LinearSolver) AddEquality(lhs, rhs LinearArgument) Constraint {
	return ls.AddLinearConstraint(NewLinearExpr().Add(lhs).AddTerm(rhs, -1), 0, 0)
}

func (ls *LinearSolver) setObjective(obj LinearArgument, maximize bool) {
	if !ls.checkMutable("objective") {
		return
	}
	o := NewLinearExpr().Add(obj)
	if !ls.checkExpr(o, "objective") {
		return
	}
	op := objectiveProto{
		vars:     make([]VarIndex, len(o.varCoeffs)),
		coeffs:   make([]float64, len(o.varCoeffs)),
		offset:   o.offset,
		maximize: maximize,
	}
	for i, vc := range o.varCoeffs {
		op.vars[i] = vc.ind
		op.coeffs[i] = vc.coeff
	}
	ls.obj = op
}

// Minimize sets a linear minimization objective, replacing any previous one.
func (ls *LinearSolver) Minimize(obj LinearArgument) {
	ls.setObjective(obj, false)
}

// Maximize sets a linear maximization objective, replacing any previous one.
func (ls *LinearSolver) Maximize(obj LinearArgument) {
	ls.setObjective(obj, true)
}

// Maximization returns whether the objective is maximized.
func (ls *LinearSolver) Maximization() bool {
	return ls.obj.maximize
}

// objectiveCoefficients returns the objective coefficient of every variable,
// summing duplicated terms.
func (ls *LinearSolver) objectiveCoefficients() []float64 {
	c := make([]float64, len(ls.vars))
	for i, ind := range ls.obj.vars {
		c[ind] += ls.obj.coeffs[i]
	}
	return c
}

// Status returns the status of the last solve, or NotSolved.
func (ls *LinearSolver) Status() ResultStatus {
	return ls.status
}

// Solve solves the model with DefaultParameters and returns a status.
func (ls *LinearSolver) Solve() ResultStatus {
	return ls.SolveWithParameters(DefaultParameters())
}

// SolveWithParameters is the same as Solve() except it takes a Parameters.
//
// Solving is done at most once: once a terminal status is reached, later
// calls return it without solving again.
func (ls *LinearSolver) SolveWithParameters(p Parameters) ResultStatus {
	if ls.status.Terminal() {
		return ls.status
	}
	if ls.err != nil {
		log.Errorf("linear solver %q: invalid model: %v", ls.name, ls.err)
		ls.status = ModelInvalid
		return ls.status
	}
	status, values := solveWithSimplex(ls, p)
	ls.status = status
	if status == Optimal {
		ls.values = values
		ls.objective = ls.obj.offset
		c := ls.objectiveCoefficients()
		for i, v := range values {
			ls.objective += c[i] * v
		}
	}
	return ls.status
}

// ObjectiveValue returns the objective value of the last optimal solution,
// or NaN if there is none.
func (ls *LinearSolver) ObjectiveValue() float64 {
	if ls.status != Optimal {
		return math.NaN()
	}
	return ls.objective
}

// Value returns the value of the linear argument in the last optimal
// solution, or NaN if there is none.
func (ls *LinearSolver) Value(la LinearArgument) float64 {
	if ls.values == nil {
		return math.NaN()
	}
	e := NewLinearExpr().Add(la)
	if e.mixed || (e.ls != nil && e.ls != ls) {
		return math.NaN()
	}
	return e.evaluate(ls.values)
}

func (ls *LinearSolver) activity(ind ConstrIndex) float64 {
	var a float64
	cons := &ls.cons[ind]
	for i, v := range cons.vars {
		a += cons.coeffs[i] * ls.values[v]
	}
	return a
}

// ConstraintActivities returns activities of all constraints, or nil if
// there is no optimal solution.
func (ls *LinearSolver) ConstraintActivities() []float64 {
	if ls.values == nil {
		return nil
	}
	acts := make([]float64, len(ls.cons))
	for i := range ls.cons {
		acts[i] = ls.activity(ConstrIndex(i))
	}
	return acts
}
