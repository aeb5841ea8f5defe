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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-7)

func approxEq(x, y float64) bool {
	return math.Abs(x-y) < 1e-7
}

func TestLinearSolver_Minimize(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, math.Inf(1))
	y := solver.NewVar(0, math.Inf(1))

	solver.AddLessOrEqual(NewLinearExpr().AddTerm(x, -1).AddTerm(y, 2), NewConstant(4))
	solver.AddLessOrEqual(NewLinearExpr().AddTerm(x, 3).AddTerm(y, 1), NewConstant(9))
	solver.Minimize(NewLinearExpr().AddTerm(x, -1).AddTerm(y, -2))

	if got := solver.Solve(); got != Optimal {
		t.Fatalf("Solve() = %v, want %v", got, Optimal)
	}
	if got := solver.ObjectiveValue(); !approxEq(got, -8) {
		t.Errorf("ObjectiveValue() = %v, want -8", got)
	}
	got := []float64{x.SolutionValue(), y.SolutionValue()}
	if diff := cmp.Diff([]float64{2, 3}, got, approx); diff != "" {
		t.Errorf("SolutionValue() mismatch (-want +got):\n%s", diff)
	}
	acts := solver.ConstraintActivities()
	if diff := cmp.Diff([]float64{4, 9}, acts, approx); diff != "" {
		t.Errorf("ConstraintActivities() mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearSolver_Maximize(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, math.Inf(1))
	y := solver.NewVar(0, math.Inf(1))

	solver.AddLessOrEqual(NewLinearExpr().AddTerm(x, -1).AddTerm(y, 2), NewConstant(4))
	solver.AddLessOrEqual(NewLinearExpr().AddTerm(x, 3).AddTerm(y, 1), NewConstant(9))
	solver.Maximize(NewLinearExpr().AddSum(x, y, y).AddConstant(1))

	if got := solver.Solve(); got != Optimal {
		t.Fatalf("Solve() = %v, want %v", got, Optimal)
	}
	if !solver.Maximization() {
		t.Error("Maximization() = false, want true")
	}
	if got := solver.ObjectiveValue(); !approxEq(got, 9) {
		t.Errorf("ObjectiveValue() = %v, want 9", got)
	}
	if got := solver.Value(NewLinearExpr().AddTerm(x, 10).Add(y)); !approxEq(got, 23) {
		t.Errorf("Value(10x+y) = %v, want 23", got)
	}
}

func TestLinearSolver_ShiftedBounds(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(2, 5)
	y := solver.NewVar(1, 4)
	z := solver.NewVar(3, 7)

	solver.AddGreaterOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(8))
	solver.Minimize(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 2).Add(z))

	if got := solver.Solve(); got != Optimal {
		t.Fatalf("Solve() = %v, want %v", got, Optimal)
	}
	if got := solver.ObjectiveValue(); !approxEq(got, 14) {
		t.Errorf("ObjectiveValue() = %v, want 14", got)
	}
	got := []float64{x.SolutionValue(), y.SolutionValue(), z.SolutionValue()}
	if diff := cmp.Diff([]float64{5, 3, 3}, got, approx); diff != "" {
		t.Errorf("SolutionValue() mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearSolver_EqualityAndRange(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, math.Inf(1))
	y := solver.NewVar(0, math.Inf(1))

	solver.AddEquality(NewLinearExpr().AddSum(x, y), NewConstant(3))
	solver.AddLinearConstraint(NewLinearExpr().Add(x).AddTerm(y, -1), 1, 2)
	solver.Minimize(x)

	if got := solver.Solve(); got != Optimal {
		t.Fatalf("Solve() = %v, want %v", got, Optimal)
	}
	got := []float64{x.SolutionValue(), y.SolutionValue()}
	if diff := cmp.Diff([]float64{2, 1}, got, approx); diff != "" {
		t.Errorf("SolutionValue() mismatch (-want +got):\n%s", diff)
	}
}

func TestLinearSolver_Infeasible(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, 1)
	y := solver.NewVar(0, 1)
	solver.AddGreaterOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(3))
	solver.Minimize(x)

	if got := solver.Solve(); got != Infeasible {
		t.Fatalf("Solve() = %v, want %v", got, Infeasible)
	}
	if got := solver.ObjectiveValue(); !math.IsNaN(got) {
		t.Errorf("ObjectiveValue() = %v, want NaN", got)
	}
	if got := x.SolutionValue(); !math.IsNaN(got) {
		t.Errorf("SolutionValue() = %v, want NaN", got)
	}
	if got := solver.ConstraintActivities(); got != nil {
		t.Errorf("ConstraintActivities() = %v, want nil", got)
	}
}

func TestLinearSolver_EmptyConstraint(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, 1)
	solver.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 1).AddTerm(x, -1), NewConstant(1))

	if got := solver.Solve(); got != Infeasible {
		t.Errorf("Solve() = %v, want %v", got, Infeasible)
	}
}

func TestLinearSolver_Unbounded(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, math.Inf(1))
	solver.Maximize(x)

	if got := solver.Solve(); got != Unbounded {
		t.Errorf("Solve() = %v, want %v", got, Unbounded)
	}
}

func TestLinearSolver_EmptyModel(t *testing.T) {
	solver := New("lp")
	solver.Minimize(NewConstant(3))

	if got := solver.Solve(); got != Optimal {
		t.Fatalf("Solve() = %v, want %v", got, Optimal)
	}
	if got := solver.ObjectiveValue(); got != 3 {
		t.Errorf("ObjectiveValue() = %v, want 3", got)
	}
}

func TestLinearSolver_TooLarge(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, 1)
	y := solver.NewVar(0, 1)
	solver.AddGreaterOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(1))
	solver.Minimize(NewLinearExpr().AddSum(x, y))

	if got := solver.SolveWithParameters(Parameters{MaxDenseEntries: 4}); got != Abnormal {
		t.Errorf("SolveWithParameters() = %v, want %v", got, Abnormal)
	}
}

func TestLinearSolver_SolveOnce(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, 1)
	solver.Minimize(x)

	if got := solver.Solve(); got != Optimal {
		t.Fatalf("Solve() = %v, want %v", got, Optimal)
	}
	solver.AddGreaterOrEqual(x, NewConstant(2))
	if got := solver.Solve(); got != Optimal {
		t.Errorf("second Solve() = %v, want %v", got, Optimal)
	}
	if err := solver.Err(); !errors.Is(err, ErrSolved) {
		t.Errorf("Err() = %v, want %v", err, ErrSolved)
	}
	if got := solver.Status(); got != Optimal {
		t.Errorf("Status() = %v, want %v", got, Optimal)
	}
}

func TestLinearSolver_InvalidModel(t *testing.T) {
	tests := []struct {
		name  string
		build func(ls *LinearSolver)
		want  error
	}{
		{
			name:  "empty variable domain",
			build: func(ls *LinearSolver) { ls.NewVar(1, 0) },
			want:  ErrInvalidBounds,
		},
		{
			name:  "infinite lower bound",
			build: func(ls *LinearSolver) { ls.NewVar(math.Inf(-1), 0) },
			want:  ErrInvalidBounds,
		},
		{
			name: "empty constraint range",
			build: func(ls *LinearSolver) {
				x := ls.NewVar(0, 1)
				ls.AddLinearConstraint(x, 2, 1)
			},
			want: ErrInvalidBounds,
		},
		{
			name: "NaN coefficient",
			build: func(ls *LinearSolver) {
				x := ls.NewVar(0, 1)
				ls.AddLessOrEqual(NewLinearExpr().AddTerm(x, math.NaN()), NewConstant(1))
			},
			want: ErrNaN,
		},
		{
			name: "variable from another model",
			build: func(ls *LinearSolver) {
				other := New("other")
				x := other.NewVar(0, 1)
				ls.Minimize(x)
			},
			want: ErrMixedModels,
		},
		{
			name: "duplicate constraint name",
			build: func(ls *LinearSolver) {
				x := ls.NewVar(0, 1)
				ls.AddLessOrEqual(x, NewConstant(1)).WithName("c")
				ls.AddGreaterOrEqual(x, NewConstant(0)).WithName("c")
			},
			want: ErrDuplicateName,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			solver := New("lp")
			test.build(solver)
			if _, err := solver.Model(); !errors.Is(err, test.want) {
				t.Errorf("Model() err = %v, want %v", err, test.want)
			}
			if got := solver.Solve(); got != ModelInvalid {
				t.Errorf("Solve() = %v, want %v", got, ModelInvalid)
			}
		})
	}
}

func TestLinearSolver_Names(t *testing.T) {
	solver := New("lp")
	if solver.Name() != "lp" {
		t.Errorf("Name() = %q, want %q", solver.Name(), "lp")
	}
	x, err := solver.MakeVar(0, 2.5, "x")
	if err != nil {
		t.Fatalf("MakeVar(x) err = %v, want nil", err)
	}
	if _, err := solver.MakeVar(0, 2.5, "x"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("MakeVar(x) err = %v, want %v", err, ErrDuplicateName)
	}
	y := solver.NewVar(0, 1)
	if got, want := y.Name(), "x1"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}

	got, ok := solver.LookupVar("x")
	if !ok || got.Index() != x.Index() {
		t.Errorf("LookupVar(x) = (%v, %v), want (%v, true)", got.Index(), ok, x.Index())
	}
	if got.UB() != 2.5 || got.LB() != 0 {
		t.Errorf("bounds = [%v, %v], want [0, 2.5]", got.LB(), got.UB())
	}
	if _, ok := solver.LookupVar("y"); ok {
		t.Error("LookupVar(y) found, want not found")
	}

	ct := solver.AddLessOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(3)).WithName("sum")
	if got, ok := solver.LookupConstraint("sum"); !ok || got.Index() != ct.Index() {
		t.Errorf("LookupConstraint(sum) = (%v, %v), want (%v, true)", got.Index(), ok, ct.Index())
	}
	if ct.LB() != math.Inf(-1) || ct.UB() != 3 {
		t.Errorf("constraint bounds = [%v, %v], want [-inf, 3]", ct.LB(), ct.UB())
	}
	if solver.NumVariables() != 2 || solver.NumConstraints() != 1 {
		t.Errorf("NumVariables(), NumConstraints() = %v, %v, want 2, 1", solver.NumVariables(), solver.NumConstraints())
	}
	if err := solver.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestLinearExpr_Offset(t *testing.T) {
	solver := New("lp")
	x := solver.NewVar(0, 1)
	inner := NewLinearExpr().AddTerm(x, 2).AddConstant(3)
	e := NewLinearExpr().AddTerm(inner, -2).AddWeightedSum([]LinearArgument{x, NewConstant(1)}, []float64{1, 4})

	if got := e.Offset(); got != -2 {
		t.Errorf("Offset() = %v, want -2", got)
	}
	if got := e.NumTerms(); got != 2 {
		t.Errorf("NumTerms() = %v, want 2", got)
	}
	if got := e.evaluate([]float64{1}); got != -5 {
		t.Errorf("evaluate(x=1) = %v, want -5", got)
	}
}
