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

// Package config loads the optional YAML settings of the lpinstance command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	lp "github.com/scmlp/lpinstance/linearsolver"
)

// Solver holds the linear solver parameters.
type Solver struct {
	// Tolerance is the pivoting and feasibility tolerance of the simplex.
	Tolerance float64 `yaml:"tolerance,omitempty"`
	// MaxDenseEntries bounds rows*columns of the standard form. 0 disables the check.
	MaxDenseEntries int `yaml:"maxDenseEntries,omitempty"`
}

// Output holds the optional export paths. Empty paths are not written.
type Output struct {
	Model    string `yaml:"model,omitempty"`
	Solution string `yaml:"solution,omitempty"`
	LP       string `yaml:"lp,omitempty"`
	Metrics  string `yaml:"metrics,omitempty"`
}

// Config is the file layout:
//
//	solver:
//	  tolerance: 1e-10
//	  maxDenseEntries: 250000
//	output:
//	  model: model.json
//	  solution: solution.json
//	  lp: model.lp
//	  metrics: lpinstance.prom
type Config struct {
	Solver Solver `yaml:"solver"`
	Output Output `yaml:"output"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	p := lp.DefaultParameters()
	return Config{
		Solver: Solver{
			Tolerance:       p.Tolerance,
			MaxDenseEntries: p.MaxDenseEntries,
		},
	}
}

// Load reads the file at path on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data on top of Default and validates the result.
// Empty data yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks for invalid configuration values.
func (c Config) Validate() error {
	if math.IsNaN(c.Solver.Tolerance) || c.Solver.Tolerance <= 0 || c.Solver.Tolerance >= 1 {
		return fmt.Errorf("solver.tolerance must be in (0, 1), got %g", c.Solver.Tolerance)
	}
	if c.Solver.MaxDenseEntries < 0 {
		return fmt.Errorf("solver.maxDenseEntries must be >= 0, got %d", c.Solver.MaxDenseEntries)
	}
	return nil
}

// Parameters returns the solver parameters of the configuration.
func (c Config) Parameters() lp.Parameters {
	return lp.Parameters{
		Tolerance:       c.Solver.Tolerance,
		MaxDenseEntries: c.Solver.MaxDenseEntries,
	}
}
