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

package scm

import (
	"fmt"
	"math"
	"time"

	log "github.com/golang/glog"
	lp "github.com/scmlp/lpinstance/linearsolver"
)

// ObjectiveSource gives the objective value of a solved model.
type ObjectiveSource interface {
	ObjectiveValue() float64
}

// Result is the reported outcome of a solve.
type Result struct {
	// Status is the terminal solver status.
	Status lp.ResultStatus
	// Found is true only for an optimal solve.
	Found bool
	// Objective is the raw objective rounded up. Only set when Found.
	Objective float64
	// RawObjective is the objective as returned by the solver. Only set when Found.
	RawObjective float64
}

// Report turns a terminal status into a Result. An optimal objective is
// reported rounded up to the next integer.
func Report(status lp.ResultStatus, src ObjectiveSource) Result {
	if status != lp.Optimal {
		return Result{Status: status}
	}
	raw := src.ObjectiveValue()
	obj := math.Ceil(raw)
	if obj == 0 {
		// Ceil keeps the sign of small negative values.
		obj = 0
	}
	return Result{
		Status:       status,
		Found:        true,
		Objective:    obj,
		RawObjective: raw,
	}
}

func (r Result) String() string {
	if !r.Found {
		return "No Solution found!"
	}
	return fmt.Sprintf("Objective value: %s", formatObjective(r.Objective))
}

func formatObjective(v float64) string {
	if v == 0 {
		v = 0
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprint(v)
}

// Solution bundles a built model, its solver and the reported result.
type Solution struct {
	Model  *Model
	LP     *lp.LinearSolver
	Result Result
	// Elapsed is the wall time spent building and solving.
	Elapsed time.Duration
}

// Solve builds the model of `p` in a new solver with the given parameters,
// solves it and reports the result.
func Solve(p *Problem, params lp.Parameters) *Solution {
	start := time.Now()
	solver := lp.New("facility_location")
	m := BuildModel(p, solver)
	log.Infof("model built: %d variables, %d constraints in %v", solver.NumVariables(), solver.NumConstraints(), time.Since(start))

	status := solver.SolveWithParameters(params)
	elapsed := time.Since(start)
	res := Report(status, solver)
	switch status {
	case lp.Optimal:
		log.Infof("solve finished in %v: %v, objective %v", elapsed, status, res.RawObjective)
	case lp.Infeasible:
		log.Infof("solve finished in %v: %v", elapsed, status)
	default:
		log.Warningf("solve finished in %v: %v", elapsed, status)
	}
	return &Solution{Model: m, LP: solver, Result: res, Elapsed: elapsed}
}
