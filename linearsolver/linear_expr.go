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

package linearsolver

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
)

type (
	// VarIndex is the index of a variable in the model.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

// LinearArgument provides an interface for Variable and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
	// ls is the solver owning the variables of the expression. mixed is set
	// once variables from two different solvers have been added.
	ls    *LinearSolver
	mixed bool
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewLinearExprWithCapacity creates a new empty LinearExpr able to hold n
// terms without growing.
func NewLinearExprWithCapacity(n int) *LinearExpr {
	return &LinearExpr{varCoeffs: make([]varCoeff, 0, n)}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients to the LinearExpr
// and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

// NumTerms returns the number of (variable, coefficient) terms, duplicates included.
func (l *LinearExpr) NumTerms() int {
	return len(l.varCoeffs)
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c})
	}
	e.offset += l.offset * c
	e.mixed = e.mixed || l.mixed
	if l.ls != nil {
		e.setOwner(l.ls)
	}
}

func (l *LinearExpr) setOwner(ls *LinearSolver) {
	switch {
	case l.ls == nil:
		l.ls = ls
	case l.ls != ls:
		l.mixed = true
	}
}

// evaluate returns the value of the expression for the given variable values.
func (l *LinearExpr) evaluate(values []float64) float64 {
	result := l.offset
	for _, vc := range l.varCoeffs {
		result += values[vc.ind] * vc.coeff
	}
	return result
}

// Variable is a reference to a continuous variable in the model.
type Variable struct {
	ind VarIndex
	ls  *LinearSolver
}

// Index returns the index of the variable.
func (v Variable) Index() VarIndex {
	return v.ind
}

// Name returns the name of the variable. Unnamed variables get a generated
// name based on their index.
func (v Variable) Name() string {
	if n := v.ls.vars[v.ind].name; n != "" {
		return n
	}
	return fmt.Sprintf("x%d", v.ind)
}

// WithName sets the name of the variable.
func (v Variable) WithName(s string) Variable {
	v.ls.setVarName(v.ind, s)
	return v
}

// LB returns the lower bound of the variable.
func (v Variable) LB() float64 {
	return v.ls.vars[v.ind].lb
}

// UB returns the upper bound of the variable.
func (v Variable) UB() float64 {
	return v.ls.vars[v.ind].ub
}

// SolutionValue returns the value of the variable in the last optimal
// solution, or NaN if there is none.
func (v Variable) SolutionValue() float64 {
	if v.ls.values == nil {
		return math.NaN()
	}
	return v.ls.values[v.ind]
}

func (v Variable) addToLinearExpr(e *LinearExpr, c float64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: v.ind, coeff: c})
	e.setOwner(v.ls)
}
