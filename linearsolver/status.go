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

// ResultStatus is the outcome of a solve.
type ResultStatus int

const (
	// NotSolved means Solve() has not been called yet.
	NotSolved ResultStatus = iota
	// Optimal means an optimal solution was found.
	Optimal
	// Infeasible means the engine proved that no solution exists.
	Infeasible
	// Unbounded means the objective can be improved without limit.
	Unbounded
	// Abnormal means the engine failed: numerical trouble, a rejected
	// model shape or an internal error.
	Abnormal
	// ModelInvalid means the model was built with invalid arguments.
	ModelInvalid
)

func (s ResultStatus) String() string {
	switch s {
	case NotSolved:
		return "NOT_SOLVED"
	case Optimal:
		return "OPTIMAL"
	case Infeasible:
		return "INFEASIBLE"
	case Unbounded:
		return "UNBOUNDED"
	case Abnormal:
		return "ABNORMAL"
	case ModelInvalid:
		return "MODEL_INVALID"
	}
	return "UNKNOWN"
}

// Terminal returns whether the status is the final state of a solve.
func (s ResultStatus) Terminal() bool {
	return s != NotSolved
}
