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
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

var (
	// ErrPrematureEnd is returned when the input ends before every value was read.
	ErrPrematureEnd = errors.New("premature end of data")
	// ErrNegativeValue is returned for negative counts, costs, demands, capacities or distances.
	ErrNegativeValue = errors.New("negative value")
	// ErrNonFinite is returned for NaN or infinite values.
	ErrNonFinite = errors.New("non-finite value")
	// ErrShape is returned when a slice passed to NewProblem has the wrong length.
	ErrShape = errors.New("wrong number of values")
)

// DataError reports an unreadable or malformed problem instance.
type DataError struct {
	// Path is the input file, empty when parsing from a reader.
	Path string
	// Field names the value being read, e.g. "demand".
	Field string
	// Index is the flat position inside Field, or -1 for scalars.
	Index int
	Err   error
}

func (e *DataError) Error() string {
	loc := e.Field
	if e.Index >= 0 {
		loc = fmt.Sprintf("%s[%d]", e.Field, e.Index)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: reading %s: %v", e.Path, loc, e.Err)
	}
	return fmt.Sprintf("reading %s: %v", loc, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// Problem is an immutable facility location instance with C customers, F
// facilities and V = C vehicle slots per facility.
//
// Matrices indexed by (customer, facility) are stored row-major.
type Problem struct {
	numCustomers   int
	numFacilities  int
	allocCost      []float64
	demand         []float64
	openingCost    []float64
	capacity       []float64
	truckDistLimit float64
	truckUsageCost float64
	distance       []float64
}

// ProblemData carries the raw values of an instance for NewProblem.
type ProblemData struct {
	NumCustomers  int
	NumFacilities int
	// AllocCost[c*NumFacilities+f] is paid per unit of customer c served by facility f.
	AllocCost   []float64
	Demand      []float64
	OpeningCost []float64
	Capacity    []float64
	// TruckDistLimit bounds the total round-trip distance driven by a vehicle slot.
	TruckDistLimit float64
	// TruckUsageCost is the fixed cost of using a vehicle.
	TruckUsageCost float64
	// Distance[c*NumFacilities+f] is the round-trip distance between customer c and facility f.
	Distance []float64
}

// NewProblem validates the data and returns a Problem holding copies of the slices.
func NewProblem(d ProblemData) (*Problem, error) {
	if d.NumCustomers < 0 {
		return nil, &DataError{Field: "numCustomers", Index: -1, Err: ErrNegativeValue}
	}
	if d.NumFacilities < 0 {
		return nil, &DataError{Field: "numFacilities", Index: -1, Err: ErrNegativeValue}
	}
	cf := d.NumCustomers * d.NumFacilities
	vectors := []struct {
		field  string
		vals   []float64
		n      int
		scalar bool
	}{
		{"allocCost", d.AllocCost, cf, false},
		{"demand", d.Demand, d.NumCustomers, false},
		{"openingCost", d.OpeningCost, d.NumFacilities, false},
		{"capacity", d.Capacity, d.NumFacilities, false},
		{"truckDistLimit", []float64{d.TruckDistLimit}, 1, true},
		{"truckUsageCost", []float64{d.TruckUsageCost}, 1, true},
		{"distance", d.Distance, cf, false},
	}
	for _, v := range vectors {
		if len(v.vals) != v.n {
			return nil, &DataError{Field: v.field, Index: -1, Err: fmt.Errorf("%w: got %d, want %d", ErrShape, len(v.vals), v.n)}
		}
		for i, x := range v.vals {
			if err := checkValue(x); err != nil {
				if v.scalar {
					i = -1
				}
				return nil, &DataError{Field: v.field, Index: i, Err: err}
			}
		}
	}
	return &Problem{
		numCustomers:   d.NumCustomers,
		numFacilities:  d.NumFacilities,
		allocCost:      append([]float64(nil), d.AllocCost...),
		demand:         append([]float64(nil), d.Demand...),
		openingCost:    append([]float64(nil), d.OpeningCost...),
		capacity:       append([]float64(nil), d.Capacity...),
		truckDistLimit: d.TruckDistLimit,
		truckUsageCost: d.TruckUsageCost,
		distance:       append([]float64(nil), d.Distance...),
	}, nil
}

func checkValue(x float64) error {
	switch {
	case math.IsNaN(x) || math.IsInf(x, 0):
		return ErrNonFinite
	case x < 0:
		return ErrNegativeValue
	}
	return nil
}

// tokenReader reads the whitespace separated token stream of an instance.
type tokenReader struct {
	sc *bufio.Scanner
}

func (r *tokenReader) next() (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", ErrPrematureEnd
}

func (r *tokenReader) readInt(field string) (int, error) {
	tok, err := r.next()
	if err != nil {
		return 0, &DataError{Field: field, Index: -1, Err: err}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &DataError{Field: field, Index: -1, Err: err}
	}
	if n < 0 {
		return 0, &DataError{Field: field, Index: -1, Err: ErrNegativeValue}
	}
	return n, nil
}

func (r *tokenReader) readFloats(field string, n int, scalar bool) ([]float64, error) {
	// Grown while reading so that a bogus count fails on the missing tokens
	// instead of allocating up front.
	vals := make([]float64, 0, min(n, 1<<16))
	for i := 0; i < n; i++ {
		idx := i
		if scalar {
			idx = -1
		}
		tok, err := r.next()
		if err != nil {
			return nil, &DataError{Field: field, Index: idx, Err: err}
		}
		x, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &DataError{Field: field, Index: idx, Err: err}
		}
		vals = append(vals, x)
	}
	return vals, nil
}

// ParseProblem reads an instance from the token stream:
//
//	numCustomers numFacilities
//	allocCost[c][f]   (C*F values, row-major)
//	demand[c]         (C values)
//	openingCost[f]    (F values)
//	capacity[f]       (F values)
//	truckDistLimit truckUsageCost
//	distance[c][f]    (C*F values, row-major)
//
// Tokens are separated by any whitespace. Anything after the last distance
// is ignored. Every failure is a *DataError.
func ParseProblem(r io.Reader) (*Problem, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	tr := &tokenReader{sc: sc}

	var d ProblemData
	var err error
	if d.NumCustomers, err = tr.readInt("numCustomers"); err != nil {
		return nil, err
	}
	if d.NumFacilities, err = tr.readInt("numFacilities"); err != nil {
		return nil, err
	}
	cf := d.NumCustomers * d.NumFacilities
	if d.AllocCost, err = tr.readFloats("allocCost", cf, false); err != nil {
		return nil, err
	}
	if d.Demand, err = tr.readFloats("demand", d.NumCustomers, false); err != nil {
		return nil, err
	}
	if d.OpeningCost, err = tr.readFloats("openingCost", d.NumFacilities, false); err != nil {
		return nil, err
	}
	if d.Capacity, err = tr.readFloats("capacity", d.NumFacilities, false); err != nil {
		return nil, err
	}
	truck, err := tr.readFloats("truckDistLimit", 1, true)
	if err != nil {
		return nil, err
	}
	d.TruckDistLimit = truck[0]
	if truck, err = tr.readFloats("truckUsageCost", 1, true); err != nil {
		return nil, err
	}
	d.TruckUsageCost = truck[0]
	if d.Distance, err = tr.readFloats("distance", cf, false); err != nil {
		return nil, err
	}
	return NewProblem(d)
}

// ReadProblem opens and parses the instance file at path.
func ReadProblem(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Path: path, Field: "file", Index: -1, Err: err}
	}
	defer f.Close()
	p, err := ParseProblem(f)
	if err != nil {
		var de *DataError
		if errors.As(err, &de) {
			de.Path = path
		}
		return nil, err
	}
	return p, nil
}

// WriteTo writes the instance in the format read by ParseProblem. Values use
// the shortest representation that parses back to the same float64.
func (p *Problem) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(s string) {
		m, _ := bw.WriteString(s)
		n += int64(m)
	}
	writeRow := func(vals []float64) {
		for i, x := range vals {
			if i > 0 {
				write(" ")
			}
			write(strconv.FormatFloat(x, 'g', -1, 64))
		}
		write("\n")
	}
	write(fmt.Sprintf("%d %d\n", p.numCustomers, p.numFacilities))
	for c := 0; c < p.numCustomers; c++ {
		writeRow(p.allocCost[c*p.numFacilities : (c+1)*p.numFacilities])
	}
	writeRow(p.demand)
	writeRow(p.openingCost)
	writeRow(p.capacity)
	writeRow([]float64{p.truckDistLimit, p.truckUsageCost})
	for c := 0; c < p.numCustomers; c++ {
		writeRow(p.distance[c*p.numFacilities : (c+1)*p.numFacilities])
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// Data returns a copy of the raw values of the instance.
func (p *Problem) Data() ProblemData {
	return ProblemData{
		NumCustomers:   p.numCustomers,
		NumFacilities:  p.numFacilities,
		AllocCost:      append([]float64(nil), p.allocCost...),
		Demand:         append([]float64(nil), p.demand...),
		OpeningCost:    append([]float64(nil), p.openingCost...),
		Capacity:       append([]float64(nil), p.capacity...),
		TruckDistLimit: p.truckDistLimit,
		TruckUsageCost: p.truckUsageCost,
		Distance:       append([]float64(nil), p.distance...),
	}
}

// NumCustomers returns C.
func (p *Problem) NumCustomers() int { return p.numCustomers }

// NumFacilities returns F.
func (p *Problem) NumFacilities() int { return p.numFacilities }

// NumVehicles returns the number of vehicle slots per facility. In the worst
// case every customer is visited by its own vehicle, so it equals C.
func (p *Problem) NumVehicles() int { return p.numCustomers }

// Demand returns the demand of customer c.
func (p *Problem) Demand(c int) float64 { return p.demand[c] }

// OpeningCost returns the opening cost of facility f.
func (p *Problem) OpeningCost(f int) float64 { return p.openingCost[f] }

// Capacity returns the capacity of facility f.
func (p *Problem) Capacity(f int) float64 { return p.capacity[f] }

// AllocCost returns the cost per unit of customer c served by facility f.
func (p *Problem) AllocCost(c, f int) float64 { return p.allocCost[c*p.numFacilities+f] }

// Distance returns the round-trip distance between customer c and facility f.
func (p *Problem) Distance(c, f int) float64 { return p.distance[c*p.numFacilities+f] }

// TruckDistLimit returns the distance limit of a vehicle slot.
func (p *Problem) TruckDistLimit() float64 { return p.truckDistLimit }

// TruckUsageCost returns the fixed cost of using a vehicle.
func (p *Problem) TruckUsageCost() float64 { return p.truckUsageCost }

// TotalDemand returns the sum of all customer demands.
func (p *Problem) TotalDemand() float64 {
	var s float64
	for _, d := range p.demand {
		s += d
	}
	return s
}

// TotalCapacity returns the sum of all facility capacities.
func (p *Problem) TotalCapacity() float64 {
	var s float64
	for _, c := range p.capacity {
		s += c
	}
	return s
}
