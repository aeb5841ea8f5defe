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
	"fmt"
	"math"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// DefaultTolerance is the pivoting tolerance handed to the simplex.
	DefaultTolerance = 1e-10
	// DefaultMaxDenseEntries caps rows*columns of the standard form matrix.
	// The dense simplex solves forms of this size in seconds; its running time
	// grows much faster than the matrix beyond it.
	DefaultMaxDenseEntries = 250_000
)

// ErrTooLarge is reported when the dense standard form exceeds MaxDenseEntries.
var ErrTooLarge = errors.New("model too large for the dense simplex")

// Parameters groups the settings of a solve.
type Parameters struct {
	// Tolerance is the numerical tolerance of the simplex. Zero means DefaultTolerance.
	Tolerance float64
	// MaxDenseEntries bounds the size of the dense standard form matrix.
	// Zero or negative means no limit.
	MaxDenseEntries int
}

// DefaultParameters returns the parameters used by Solve().
func DefaultParameters() Parameters {
	return Parameters{Tolerance: DefaultTolerance, MaxDenseEntries: DefaultMaxDenseEntries}
}

// sfRow is one row `a.y = rhs` of the standard form, slack column included.
type sfRow struct {
	cols   []int
	coeffs []float64
	rhs    float64
	// equality is set for rows without a slack column.
	equality bool
}

// standardForm is the model rewritten as `min c.y s.t. A.y = b, y >= 0`
// where y is x shifted by its lower bound, plus slack columns.
type standardForm struct {
	// col maps a model variable to its structural column, or -1 when the
	// variable appears nowhere and is fixed at its lower bound.
	col       []int
	numStruct int
	numSlack  int
	rows      []sfRow
	c         []float64
}

// sparseRow is a constraint aggregated over distinct variables.
type sparseRow struct {
	vars   []int
	coeffs []float64
	lo, hi float64
}

// buildStandardForm rewrites the model. It returns a non-Optimal status when
// the answer is known without running the simplex.
func buildStandardForm(ls *LinearSolver, tol float64) (*standardForm, ResultStatus) {
	n := len(ls.vars)
	obj := ls.objectiveCoefficients()
	if ls.obj.maximize {
		for i := range obj {
			obj[i] = -obj[i]
		}
	}

	used := make([]bool, n)
	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	rows := make([]sparseRow, 0, len(ls.cons))
	for ci := range ls.cons {
		cons := &ls.cons[ci]
		if math.IsInf(cons.lb, -1) && math.IsInf(cons.ub, 1) {
			continue
		}
		row := sparseRow{lo: cons.lb, hi: cons.ub}
		for i, v := range cons.vars {
			k := pos[v]
			if k < 0 {
				k = len(row.vars)
				pos[v] = k
				row.vars = append(row.vars, int(v))
				row.coeffs = append(row.coeffs, 0)
			}
			row.coeffs[k] += cons.coeffs[i]
		}
		kept := 0
		for k, v := range row.vars {
			pos[v] = -1
			a := row.coeffs[k]
			if a == 0 {
				continue
			}
			row.vars[kept], row.coeffs[kept] = v, a
			kept++
			shift := a * ls.vars[v].lb
			row.lo -= shift
			row.hi -= shift
			used[v] = true
		}
		row.vars, row.coeffs = row.vars[:kept], row.coeffs[:kept]
		if kept == 0 {
			if row.lo > tol || row.hi < -tol {
				log.V(1).Infof("linear solver %q: empty constraint %v with bounds [%v, %v] is violated", ls.name, ci, cons.lb, cons.ub)
				return nil, Infeasible
			}
			continue
		}
		rows = append(rows, row)
	}

	sf := &standardForm{col: make([]int, n)}
	for v := range ls.vars {
		if !used[v] && math.IsInf(ls.vars[v].ub, 1) {
			if obj[v] < 0 {
				return nil, Unbounded
			}
			sf.col[v] = -1
			continue
		}
		if !used[v] && obj[v] >= 0 {
			// Free of constraints and not worth increasing.
			sf.col[v] = -1
			continue
		}
		sf.col[v] = sf.numStruct
		sf.numStruct++
	}

	slack := sf.numStruct
	addRow := func(cols []int, coeffs []float64, rhs float64, slackCoeff float64) {
		if slackCoeff != 0 {
			cols = append(cols[:len(cols):len(cols)], slack)
			coeffs = append(coeffs[:len(coeffs):len(coeffs)], slackCoeff)
			slack++
		}
		sf.rows = append(sf.rows, sfRow{cols: cols, coeffs: coeffs, rhs: rhs, equality: slackCoeff == 0})
	}
	for _, row := range rows {
		cols := make([]int, len(row.vars))
		for i, v := range row.vars {
			cols[i] = sf.col[v]
		}
		loInf, hiInf := math.IsInf(row.lo, -1), math.IsInf(row.hi, 1)
		switch {
		case row.lo == row.hi:
			addRow(cols, row.coeffs, row.lo, 0)
		case loInf:
			addRow(cols, row.coeffs, row.hi, 1)
		case hiInf:
			addRow(cols, row.coeffs, row.lo, -1)
		default:
			addRow(cols, row.coeffs, row.hi, 1)
			addRow(cols, row.coeffs, row.lo, -1)
		}
	}
	implied := impliedUpperBounds(ls, rows, tol)
	for v, vp := range ls.vars {
		col := sf.col[v]
		if col < 0 || math.IsInf(vp.ub, 1) || implied[v] {
			continue
		}
		width := vp.ub - vp.lb
		if width == 0 {
			addRow([]int{col}, []float64{1}, 0, 0)
			continue
		}
		addRow([]int{col}, []float64{1}, width, 1)
	}
	sf.numSlack = slack - sf.numStruct
	if status := sf.dropDependentEqualities(tol); status != Optimal {
		log.V(1).Infof("linear solver %q: equality constraints are inconsistent", ls.name)
		return nil, status
	}

	sf.c = make([]float64, sf.numStruct+sf.numSlack)
	for v, col := range sf.col {
		if col >= 0 {
			sf.c[col] = obj[v]
		}
	}
	return sf, Optimal
}

// impliedUpperBounds marks the variables whose upper bound follows from one
// row and the bounds of other variables, so that no bound row is needed for
// them. Rows are in shifted space: every variable ranges over [0, ub-lb].
//
// For a row `sum a_k*y_k <= h`, a variable with a_j > 0 satisfies
// a_j*y_j <= h + sum(|a_k| * width_k) over the negative coefficients. The
// variables of that sum must keep their own bound: they are either implied
// by a row without negative coefficients, or pinned so that their bound row
// stays.
func impliedUpperBounds(ls *LinearSolver, rows []sparseRow, tol float64) []bool {
	n := len(ls.vars)
	width := make([]float64, n)
	for v, vp := range ls.vars {
		width[v] = vp.ub - vp.lb
	}
	implied := make([]bool, n)
	anchored := make([]bool, n)
	pinned := make([]bool, n)

	// scan applies `sign*a.y <= rhs`. When withDeps is false only rows
	// without negative coefficients are used.
	scan := func(row *sparseRow, sign, rhs float64, withDeps bool) {
		bound := rhs
		var deps []int
		for k, v := range row.vars {
			a := sign * row.coeffs[k]
			if a >= 0 {
				continue
			}
			if !withDeps || math.IsInf(width[v], 1) || (implied[v] && !anchored[v]) {
				return
			}
			bound -= a * width[v]
			deps = append(deps, v)
		}
		if withDeps && len(deps) == 0 {
			return
		}
		found := false
		for k, v := range row.vars {
			a := sign * row.coeffs[k]
			if a <= 0 || implied[v] || pinned[v] || width[v] == 0 || math.IsInf(width[v], 1) {
				continue
			}
			if bound/a <= width[v]+tol {
				implied[v] = true
				anchored[v] = !withDeps
				found = true
			}
		}
		if found {
			for _, v := range deps {
				if !anchored[v] {
					pinned[v] = true
				}
			}
		}
	}
	for _, withDeps := range []bool{false, true} {
		for i := range rows {
			row := &rows[i]
			if !math.IsInf(row.hi, 1) {
				scan(row, 1, row.hi, withDeps)
			}
			if !math.IsInf(row.lo, -1) {
				scan(row, -1, -row.lo, withDeps)
			}
		}
	}
	if log.V(1) {
		count := 0
		for _, ok := range implied {
			if ok {
				count++
			}
		}
		log.Infof("linear solver %q: %d upper bounds implied by constraints", ls.name, count)
	}
	return implied
}

// dropDependentEqualities removes the equality rows that are linear
// combinations of other equality rows, which would leave the engine with a
// singular basis. Inequality rows own a slack column each and cannot be
// dependent. It returns Infeasible when a dependent row contradicts the
// others.
func (sf *standardForm) dropDependentEqualities(tol float64) ResultStatus {
	var eq []int
	for i, row := range sf.rows {
		if row.equality {
			eq = append(eq, i)
		}
	}
	if len(eq) < 2 {
		return Optimal
	}
	ncols := sf.numStruct
	scale := 1.0
	m := make([][]float64, len(eq))
	for r, i := range eq {
		row := sf.rows[i]
		m[r] = make([]float64, ncols+1)
		for k, col := range row.cols {
			m[r][col] += row.coeffs[k]
			scale = max(scale, math.Abs(m[r][col]))
		}
		m[r][ncols] = row.rhs
		scale = max(scale, math.Abs(row.rhs))
	}
	eps := max(tol, 1e-9) * scale

	rank := 0
	for col := 0; col < ncols && rank < len(m); col++ {
		p := rank
		for r := rank + 1; r < len(m); r++ {
			if math.Abs(m[r][col]) > math.Abs(m[p][col]) {
				p = r
			}
		}
		if math.Abs(m[p][col]) <= eps {
			continue
		}
		m[rank], m[p] = m[p], m[rank]
		eq[rank], eq[p] = eq[p], eq[rank]
		for r := rank + 1; r < len(m); r++ {
			f := m[r][col] / m[rank][col]
			if f == 0 {
				continue
			}
			for k := col; k <= ncols; k++ {
				m[r][k] -= f * m[rank][k]
			}
		}
		rank++
	}
	if rank == len(m) {
		return Optimal
	}
	drop := make(map[int]bool, len(m)-rank)
	for r := rank; r < len(m); r++ {
		if math.Abs(m[r][ncols]) > eps {
			return Infeasible
		}
		drop[eq[r]] = true
	}
	kept := sf.rows[:0]
	for i, row := range sf.rows {
		if !drop[i] {
			kept = append(kept, row)
		}
	}
	sf.rows = kept
	return Optimal
}

// dense returns the matrix A and the vector b with b >= 0.
func (sf *standardForm) dense() (*mat.Dense, []float64) {
	m, ncols := len(sf.rows), sf.numStruct+sf.numSlack
	a := mat.NewDense(m, ncols, nil)
	b := make([]float64, m)
	for i, row := range sf.rows {
		sign := 1.0
		if row.rhs < 0 {
			sign = -1
		}
		b[i] = sign * row.rhs
		for k, col := range row.cols {
			a.Set(i, col, a.At(i, col)+sign*row.coeffs[k])
		}
	}
	return a, b
}

// runSimplex calls the engine and turns its panics into errors.
func runSimplex(c []float64, a mat.Matrix, b []float64, tol float64) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex panicked: %v", r)
		}
	}()
	_, x, err = lp.Simplex(c, a, b, tol, nil)
	return x, err
}

// solveWithSimplex solves the model held by `ls` and returns the status and,
// when optimal, the value of every model variable.
func solveWithSimplex(ls *LinearSolver, p Parameters) (ResultStatus, []float64) {
	tol := p.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	sf, status := buildStandardForm(ls, tol)
	if status != Optimal {
		return status, nil
	}

	values := make([]float64, len(ls.vars))
	for v, vp := range ls.vars {
		values[v] = vp.lb
	}
	m, ncols := len(sf.rows), sf.numStruct+sf.numSlack
	log.V(1).Infof("linear solver %q: standard form has %d rows and %d columns (%d structural)", ls.name, m, ncols, sf.numStruct)
	if m == 0 {
		// No column survived: every variable sits at its lower bound.
		return Optimal, values
	}
	if p.MaxDenseEntries > 0 && m*ncols > p.MaxDenseEntries {
		log.Errorf("linear solver %q: %v: %d x %d exceeds %d entries", ls.name, ErrTooLarge, m, ncols, p.MaxDenseEntries)
		return Abnormal, nil
	}

	a, b := sf.dense()
	x, err := runSimplex(sf.c, a, b, tol)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return Infeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return Unbounded, nil
	case err != nil:
		log.Errorf("linear solver %q: simplex failed: %v", ls.name, err)
		return Abnormal, nil
	}
	for v, col := range sf.col {
		if col >= 0 {
			values[v] += x[col]
		}
	}
	return Optimal, values
}
