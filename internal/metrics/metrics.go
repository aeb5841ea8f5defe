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

// Package metrics exposes solve statistics of the lpinstance command in the
// Prometheus text format, for collection by the node exporter textfile
// collector.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scmlp/lpinstance/scm"
)

var (
	// Registry is the dedicated Prometheus registry of the command.
	Registry = prometheus.NewRegistry()
	// Solves counts finished solves by result status.
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "lpinstance_solves_total", Help: "Finished solves by result status."},
		[]string{"status"},
	)
	// SolveDuration records the time spent building and solving a model.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "lpinstance_solve_duration_seconds", Help: "Model build and solve time in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 4, 10)},
	)
	// ModelVariables is the number of variables of the last model.
	ModelVariables = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lpinstance_model_variables", Help: "Variables of the last solved model."},
	)
	// ModelConstraints is the number of constraints of the last model.
	ModelConstraints = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lpinstance_model_constraints", Help: "Constraints of the last solved model."},
	)
	// ObjectiveValue is the reported objective of the last optimal solve.
	ObjectiveValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "lpinstance_objective_value", Help: "Reported objective of the last optimal solve."},
	)
)

var regOnce sync.Once

// Register adds the collectors to Registry. It is safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(ModelVariables)
		Registry.MustRegister(ModelConstraints)
		Registry.MustRegister(ObjectiveValue)
	})
}

// Record updates the collectors with the outcome of a solve. The objective
// gauge keeps its previous value when no solution was found.
func Record(sol *scm.Solution) {
	Solves.WithLabelValues(sol.Result.Status.String()).Inc()
	SolveDuration.Observe(sol.Elapsed.Seconds())
	ModelVariables.Set(float64(sol.LP.NumVariables()))
	ModelConstraints.Set(float64(sol.LP.NumConstraints()))
	if sol.Result.Found {
		ObjectiveValue.Set(sol.Result.Objective)
	}
}

// WriteTextfile writes the registered metrics to path. The file is replaced
// atomically.
func WriteTextfile(path string) error {
	Register()
	return prometheus.WriteToTextfile(path, Registry)
}
