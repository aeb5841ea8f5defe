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
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const twoByTwo = `2 2
1 2
3 4
5 6
10 20
7 8
2.5 0.125
100 1e3
9 8
7 6
`

func TestParseProblem(t *testing.T) {
	p, err := ParseProblem(strings.NewReader(twoByTwo))
	if err != nil {
		t.Fatalf("ParseProblem() returned with unexpected error %v", err)
	}
	want := ProblemData{
		NumCustomers:   2,
		NumFacilities:  2,
		AllocCost:      []float64{1, 2, 3, 4},
		Demand:         []float64{5, 6},
		OpeningCost:    []float64{10, 20},
		Capacity:       []float64{7, 8},
		TruckDistLimit: 2.5,
		TruckUsageCost: 0.125,
		Distance:       []float64{100, 1000, 9, 8},
	}
	if diff := cmp.Diff(want, p.Data()); diff != "" {
		t.Errorf("ParseProblem() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got := p.NumVehicles(); got != 2 {
		t.Errorf("NumVehicles() = %v, want 2", got)
	}
	if got := p.AllocCost(1, 0); got != 3 {
		t.Errorf("AllocCost(1, 0) = %v, want 3", got)
	}
	if got := p.Distance(0, 1); got != 1000 {
		t.Errorf("Distance(0, 1) = %v, want 1000", got)
	}
	if got, want := p.TotalDemand(), 11.0; got != want {
		t.Errorf("TotalDemand() = %v, want %v", got, want)
	}
	if got, want := p.TotalCapacity(), 15.0; got != want {
		t.Errorf("TotalCapacity() = %v, want %v", got, want)
	}
}

func TestParseProblem_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   error
		wantField string
		wantIndex int
	}{
		{
			name:      "empty input",
			input:     "",
			wantErr:   ErrPrematureEnd,
			wantField: "numCustomers",
			wantIndex: -1,
		},
		{
			name:      "truncated allocation costs",
			input:     "2 2\n1 2 3",
			wantErr:   ErrPrematureEnd,
			wantField: "allocCost",
			wantIndex: 3,
		},
		{
			name:      "missing truck usage cost",
			input:     "1 1\n0\n10\n5\n10\n3",
			wantErr:   ErrPrematureEnd,
			wantField: "truckUsageCost",
			wantIndex: -1,
		},
		{
			name:      "truncated distances",
			input:     "1 2\n0 0\n10\n5 5\n10 10\n3 1\n4",
			wantErr:   ErrPrematureEnd,
			wantField: "distance",
			wantIndex: 1,
		},
		{
			name:      "negative demand",
			input:     "1 1\n0\n-10\n5\n10\n3 1\n4",
			wantErr:   ErrNegativeValue,
			wantField: "demand",
			wantIndex: 0,
		},
		{
			name:      "negative count",
			input:     "-1 1",
			wantErr:   ErrNegativeValue,
			wantField: "numCustomers",
			wantIndex: -1,
		},
		{
			name:      "NaN capacity",
			input:     "1 1\n0\n10\n5\nNaN\n3 1\n4",
			wantErr:   ErrNonFinite,
			wantField: "capacity",
			wantIndex: 0,
		},
		{
			name:      "fractional count",
			input:     "1.5 1",
			wantErr:   strconv.ErrSyntax,
			wantField: "numCustomers",
			wantIndex: -1,
		},
		{
			name:      "malformed float",
			input:     "1 1\n0\nten",
			wantErr:   strconv.ErrSyntax,
			wantField: "demand",
			wantIndex: 0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := ParseProblem(strings.NewReader(test.input))
			if p != nil {
				t.Errorf("ParseProblem() = %v, want nil", p)
			}
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("ParseProblem() err = %v, want %v", err, test.wantErr)
			}
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("ParseProblem() err = %T, want *DataError", err)
			}
			if de.Field != test.wantField || de.Index != test.wantIndex {
				t.Errorf("DataError at %s[%d], want %s[%d]", de.Field, de.Index, test.wantField, test.wantIndex)
			}
		})
	}
}

func TestNewProblem_Shape(t *testing.T) {
	_, err := NewProblem(ProblemData{
		NumCustomers:  1,
		NumFacilities: 2,
		AllocCost:     []float64{1},
	})
	if !errors.Is(err, ErrShape) {
		t.Errorf("NewProblem() err = %v, want %v", err, ErrShape)
	}
}

func TestNewProblem_Copies(t *testing.T) {
	demand := []float64{3}
	p, err := NewProblem(ProblemData{
		NumCustomers:  1,
		NumFacilities: 1,
		AllocCost:     []float64{1},
		Demand:        demand,
		OpeningCost:   []float64{1},
		Capacity:      []float64{5},
		Distance:      []float64{1},
	})
	if err != nil {
		t.Fatalf("NewProblem() returned with unexpected error %v", err)
	}
	demand[0] = 100
	if got := p.Demand(0); got != 3 {
		t.Errorf("Demand(0) = %v after caller mutation, want 3", got)
	}
}

func TestReadProblem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.txt")
	if err := os.WriteFile(path, []byte(twoByTwo), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := ReadProblem(path)
	if err != nil {
		t.Fatalf("ReadProblem(%q) returned with unexpected error %v", path, err)
	}
	if p.NumCustomers() != 2 || p.NumFacilities() != 2 {
		t.Errorf("ReadProblem() sizes = (%d, %d), want (2, 2)", p.NumCustomers(), p.NumFacilities())
	}

	truncated := filepath.Join(t.TempDir(), "truncated.txt")
	if err := os.WriteFile(truncated, []byte("3 3\n1 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ReadProblem(truncated)
	var de *DataError
	if !errors.As(err, &de) || de.Path != truncated {
		t.Errorf("ReadProblem(%q) err = %v, want DataError with path", truncated, err)
	}
}

func TestReadProblem_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	_, err := ReadProblem(path)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadProblem(%q) err = %v, want %v", path, err, fs.ErrNotExist)
	}
	var de *DataError
	if !errors.As(err, &de) || de.Path != path {
		t.Errorf("ReadProblem(%q) err = %v, want DataError with path", path, err)
	}
}

func TestProblem_RoundTrip(t *testing.T) {
	want := ProblemData{
		NumCustomers:   3,
		NumFacilities:  2,
		AllocCost:      []float64{0.1, 0.2, 1e-300, 123456.789, 1.0 / 3, 0},
		Demand:         []float64{0.3, 17, 2.0 / 7},
		OpeningCost:    []float64{1e15, 0.7},
		Capacity:       []float64{9.999999999999998, 40},
		TruckDistLimit: 12.5,
		TruckUsageCost: 5e-324,
		Distance:       []float64{1, 2, 3, 4, 5, 6.02214076e23},
	}
	p, err := NewProblem(want)
	if err != nil {
		t.Fatalf("NewProblem() returned with unexpected error %v", err)
	}
	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() returned with unexpected error %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo() = %d bytes, wrote %d", n, buf.Len())
	}
	got, err := ParseProblem(&buf)
	if err != nil {
		t.Fatalf("ParseProblem() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(want, got.Data()); diff != "" {
		t.Errorf("round trip returned with unexpected diff (-want+got):\n%s", diff)
	}
}
