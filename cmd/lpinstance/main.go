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

// The lpinstance command solves the linear relaxation of a capacitated
// facility location instance with vehicle distance limits and prints the
// objective rounded up.
//
// Usage:
//
//	lpinstance [flags] <input-file>
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/golang/glog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/scmlp/lpinstance/internal/config"
	"github.com/scmlp/lpinstance/internal/metrics"
	lp "github.com/scmlp/lpinstance/linearsolver"
	"github.com/scmlp/lpinstance/scm"
)

type flags struct {
	config          *string
	tolerance       *float64
	maxDenseEntries *int
	modelOut        *string
	solutionOut     *string
	lpOut           *string
	metricsOut      *string
}

func registerFlags(fs *flag.FlagSet) *flags {
	return &flags{
		config:          fs.String("config", "", "YAML file with solver and output settings. Flags set on the command line take precedence."),
		tolerance:       fs.Float64("tolerance", lp.DefaultTolerance, "Numerical tolerance of the simplex."),
		maxDenseEntries: fs.Int("max_dense_entries", lp.DefaultMaxDenseEntries, "Largest rows*columns of the dense standard form, 0 for no limit."),
		modelOut:        fs.String("model_out", "", "If set, write the model as JSON to this file."),
		solutionOut:     fs.String("solution_out", "", "If set, write the solution as JSON to this file."),
		lpOut:           fs.String("lp_out", "", "If set, write the model in LP format to this file."),
		metricsOut:      fs.String("metrics_out", "", "If set, write solve metrics in the Prometheus text format to this file."),
	}
}

// loadConfig reads the -config file, if any, and applies the flags that were
// explicitly set on top of it.
func loadConfig(fs *flag.FlagSet, fl *flags) (config.Config, error) {
	cfg := config.Default()
	if *fl.config != "" {
		var err error
		if cfg, err = config.Load(*fl.config); err != nil {
			return config.Config{}, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tolerance":
			cfg.Solver.Tolerance = *fl.tolerance
		case "max_dense_entries":
			cfg.Solver.MaxDenseEntries = *fl.maxDenseEntries
		case "model_out":
			cfg.Output.Model = *fl.modelOut
		case "solution_out":
			cfg.Output.Solution = *fl.solutionOut
		case "lp_out":
			cfg.Output.LP = *fl.lpOut
		case "metrics_out":
			cfg.Output.Metrics = *fl.metricsOut
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

var jsonOptions = protojson.MarshalOptions{Multiline: true, Indent: "  "}

func writeJSON(path string, m proto.Message) error {
	data, err := jsonOptions.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeOutputs(sol *scm.Solution, out config.Output) error {
	if out.Model != "" {
		m, err := sol.LP.Model()
		if err != nil {
			return fmt.Errorf("failed to export the model: %w", err)
		}
		if err := writeJSON(out.Model, m); err != nil {
			return fmt.Errorf("failed to write the model: %w", err)
		}
		log.Infof("model written to %s", out.Model)
	}
	if out.Solution != "" {
		if err := writeJSON(out.Solution, sol.LP.Solution()); err != nil {
			return fmt.Errorf("failed to write the solution: %w", err)
		}
		log.Infof("solution written to %s", out.Solution)
	}
	if out.LP != "" {
		s, err := sol.LP.ExportModelAsLpFormat()
		if err != nil {
			return fmt.Errorf("failed to export the model as LP: %w", err)
		}
		if err := os.WriteFile(out.LP, []byte(s), 0o644); err != nil {
			return fmt.Errorf("failed to write the LP model: %w", err)
		}
		log.Infof("LP model written to %s", out.LP)
	}
	if out.Metrics != "" {
		metrics.Register()
		metrics.Record(sol)
		if err := metrics.WriteTextfile(out.Metrics); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		log.Infof("metrics written to %s", out.Metrics)
	}
	return nil
}

// lpinstance reads the instance at path, prints its sizes and the solve
// result to w, and writes the configured outputs.
func lpinstance(path string, cfg config.Config, w io.Writer) error {
	p, err := scm.ReadProblem(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "numCustomers: %d\n", p.NumCustomers())
	fmt.Fprintf(w, "numFacilities: %d\n", p.NumFacilities())
	fmt.Fprintf(w, "numVehicle: %d\n", p.NumVehicles())

	sol := scm.Solve(p, cfg.Parameters())
	fmt.Fprintln(w, sol.Result)
	return writeOutputs(sol, cfg.Output)
}

func main() {
	fl := registerFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <input-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	defer log.Flush()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	cfg, err := loadConfig(flag.CommandLine, fl)
	if err != nil {
		log.Exitf("invalid configuration: %v", err)
	}
	if err := lpinstance(flag.Arg(0), cfg, os.Stdout); err != nil {
		log.Exitf("lpinstance returned with error: %v", err)
	}
}
