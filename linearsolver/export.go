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
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// boundValue encodes infinite bounds as the strings "inf" and "-inf" since
// JSON numbers cannot hold them.
func boundValue(f float64) *structpb.Value {
	switch {
	case math.IsInf(f, 1):
		return structpb.NewStringValue("inf")
	case math.IsInf(f, -1):
		return structpb.NewStringValue("-inf")
	}
	return structpb.NewNumberValue(f)
}

func numberList(fs []float64) *structpb.Value {
	vals := make([]*structpb.Value, len(fs))
	for i, f := range fs {
		vals[i] = structpb.NewNumberValue(f)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func structValue(fields map[string]*structpb.Value) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

// Model returns the model as a proto Struct laid out like an MPModelProto:
// `name`, `maximize`, `objective_offset`, a `variable` list and a
// `constraint` list.
//
// Model returns an error when invalid parameters have been used during model
// building.
func (ls *LinearSolver) Model() (*structpb.Struct, error) {
	if ls.err != nil {
		return nil, ls.err
	}
	obj := ls.objectiveCoefficients()
	vars := make([]*structpb.Value, len(ls.vars))
	for i, vp := range ls.vars {
		vars[i] = structValue(map[string]*structpb.Value{
			"name":                  structpb.NewStringValue(Variable{ind: VarIndex(i), ls: ls}.Name()),
			"lower_bound":           boundValue(vp.lb),
			"upper_bound":           boundValue(vp.ub),
			"objective_coefficient": structpb.NewNumberValue(obj[i]),
		})
	}
	cons := make([]*structpb.Value, len(ls.cons))
	for i, cp := range ls.cons {
		inds := make([]float64, len(cp.vars))
		for k, v := range cp.vars {
			inds[k] = float64(v)
		}
		cons[i] = structValue(map[string]*structpb.Value{
			"name":        structpb.NewStringValue(Constraint{ind: ConstrIndex(i), ls: ls}.Name()),
			"lower_bound": boundValue(cp.lb),
			"upper_bound": boundValue(cp.ub),
			"var_index":   numberList(inds),
			"coefficient": numberList(cp.coeffs),
		})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":             structpb.NewStringValue(ls.name),
		"maximize":         structpb.NewBoolValue(ls.obj.maximize),
		"objective_offset": structpb.NewNumberValue(ls.obj.offset),
		"variable":         structpb.NewListValue(&structpb.ListValue{Values: vars}),
		"constraint":       structpb.NewListValue(&structpb.ListValue{Values: cons}),
	}}, nil
}

// Solution returns the solution as a proto Struct laid out like an
// MPSolutionResponse: `status`, and when optimal `objective_value` and
// `variable_value`. Must be called after Solve() is called.
func (ls *LinearSolver) Solution() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"status": structpb.NewStringValue(ls.status.String()),
	}
	if ls.status == Optimal {
		fields["objective_value"] = structpb.NewNumberValue(ls.objective)
		fields["variable_value"] = numberList(ls.values)
	}
	return &structpb.Struct{Fields: fields}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// writeLpTerms writes `+ 2 x0 - x1` style terms.
func writeLpTerms(sb *strings.Builder, ls *LinearSolver, vars []VarIndex, coeffs []float64) {
	if len(vars) == 0 {
		sb.WriteString(" 0")
		return
	}
	for i, v := range vars {
		c := coeffs[i]
		sign := "+"
		if c < 0 {
			sign, c = "-", -c
		}
		if i == 0 && sign == "+" {
			sb.WriteString(" ")
		} else {
			fmt.Fprintf(sb, " %s ", sign)
		}
		if c != 1 {
			sb.WriteString(formatFloat(c))
			sb.WriteString(" ")
		}
		sb.WriteString(Variable{ind: v, ls: ls}.Name())
	}
}

// ExportModelAsLpFormat outputs the model as a string in CPLEX LP format.
// Ranged rows are written as two rows suffixed `_lb` and `_ub`, and the
// objective offset as a comment.
func (ls *LinearSolver) ExportModelAsLpFormat() (string, error) {
	if ls.err != nil {
		return "", ls.err
	}
	if len(ls.vars) == 0 {
		return "", errors.New("cannot export an empty model as LP format")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\\ Model: %s\n", ls.name)
	if ls.obj.offset != 0 {
		fmt.Fprintf(&sb, "\\ Objective offset: %s\n", formatFloat(ls.obj.offset))
	}
	if ls.obj.maximize {
		sb.WriteString("Maximize\n")
	} else {
		sb.WriteString("Minimize\n")
	}
	sb.WriteString(" obj:")
	writeLpTerms(&sb, ls, ls.obj.vars, ls.obj.coeffs)
	sb.WriteString("\nSubject To\n")
	for i, cp := range ls.cons {
		name := Constraint{ind: ConstrIndex(i), ls: ls}.Name()
		loInf, hiInf := math.IsInf(cp.lb, -1), math.IsInf(cp.ub, 1)
		writeRow := func(name, op string, rhs float64) {
			fmt.Fprintf(&sb, " %s:", name)
			writeLpTerms(&sb, ls, cp.vars, cp.coeffs)
			fmt.Fprintf(&sb, " %s %s\n", op, formatFloat(rhs))
		}
		switch {
		case loInf && hiInf:
		case cp.lb == cp.ub:
			writeRow(name, "=", cp.lb)
		case loInf:
			writeRow(name, "<=", cp.ub)
		case hiInf:
			writeRow(name, ">=", cp.lb)
		default:
			writeRow(name+"_lb", ">=", cp.lb)
			writeRow(name+"_ub", "<=", cp.ub)
		}
	}
	sb.WriteString("Bounds\n")
	for i, vp := range ls.vars {
		name := Variable{ind: VarIndex(i), ls: ls}.Name()
		switch {
		case vp.lb == vp.ub:
			fmt.Fprintf(&sb, " %s = %s\n", name, formatFloat(vp.lb))
		case math.IsInf(vp.ub, 1):
			fmt.Fprintf(&sb, " %s >= %s\n", name, formatFloat(vp.lb))
		default:
			fmt.Fprintf(&sb, " %s <= %s <= %s\n", formatFloat(vp.lb), name, formatFloat(vp.ub))
		}
	}
	sb.WriteString("End\n")
	return sb.String(), nil
}
