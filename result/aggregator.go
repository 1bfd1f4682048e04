/*
DESCRIPTION
  aggregator.go implements four result aggregators: SolverResult
  (scalars), TimerResult (wall/tick timers), SolveValuesResult
  (per-parameter and per-residual vectors), and ErrorMetricsResult
  (marker-name -> (frame, error) list). Every aggregator carries a
  Count field so Divide can compute a mean when several sub-solves
  (e.g. one solve per animated frame) contribute to one CommandResult.

AUTHORS
  The mmsolver Authors.
*/

// Package result implements the per-iteration and per-subsolve
// aggregators the solve driver accumulates into before producing a
// CommandResult, plus an optional convergence plot for diagnostics.
package result

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SolverResult aggregates scalar solver outcomes (success flags,
// iteration and evaluation counts) across one or more sub-solves.
type SolverResult struct {
	Count           int
	Success         bool
	IterationNum    int
	FunctionEvalNum int
	JacobianEvalNum int
	UserInterrupted bool
}

// Add folds another SolverResult in, summing counters and carrying the
// logical AND of Success (any failing sub-solve fails the whole).
func (r *SolverResult) Add(other SolverResult) {
	if r.Count == 0 {
		r.Success = other.Success
	} else {
		r.Success = r.Success && other.Success
	}
	r.Count += other.Count
	r.IterationNum += other.IterationNum
	r.FunctionEvalNum += other.FunctionEvalNum
	r.JacobianEvalNum += other.JacobianEvalNum
	r.UserInterrupted = r.UserInterrupted || other.UserInterrupted
}

// Divide scales the summed counters to a per-sub-solve mean; a no-op
// on a zero Count.
func (r *SolverResult) Divide() {
	if r.Count == 0 {
		return
	}
	n := float64(r.Count)
	r.IterationNum = int(float64(r.IterationNum) / n)
	r.FunctionEvalNum = int(float64(r.FunctionEvalNum) / n)
	r.JacobianEvalNum = int(float64(r.JacobianEvalNum) / n)
}

// TimerResult aggregates wall-clock and tick-count timers, keyed by
// name (e.g. "timer_solve", "ticks_jacobian"), summed across
// sub-solves.
type TimerResult struct {
	Count  int
	Timers map[string]float64
	Ticks  map[string]int64
}

// NewTimerResult returns an empty TimerResult ready for Add.
func NewTimerResult() *TimerResult {
	return &TimerResult{Timers: make(map[string]float64), Ticks: make(map[string]int64)}
}

func (r *TimerResult) Add(other *TimerResult) {
	r.Count += other.Count
	for k, v := range other.Timers {
		r.Timers[k] += v
	}
	for k, v := range other.Ticks {
		r.Ticks[k] += v
	}
}

// Divide scales every accumulated timer/tick to a per-sub-solve mean.
func (r *TimerResult) Divide() {
	if r.Count == 0 {
		return
	}
	n := float64(r.Count)
	for k := range r.Timers {
		r.Timers[k] /= n
	}
	for k := range r.Ticks {
		r.Ticks[k] = int64(float64(r.Ticks[k]) / n)
	}
}

// SolveValuesResult aggregates per-parameter and per-residual vectors
// across sub-solves of equal length, averaging element-wise.
type SolveValuesResult struct {
	Count     int
	Params    []float64
	Residuals []float64
}

// Add folds another SolveValuesResult of the same shape in by summing
// element-wise; the first Add establishes the vector lengths.
func (r *SolveValuesResult) Add(other SolveValuesResult) {
	if r.Count == 0 {
		r.Params = append([]float64(nil), other.Params...)
		r.Residuals = append([]float64(nil), other.Residuals...)
		r.Count = other.Count
		return
	}
	for i := range r.Params {
		r.Params[i] += other.Params[i]
	}
	for i := range r.Residuals {
		r.Residuals[i] += other.Residuals[i]
	}
	r.Count += other.Count
}

// Divide scales both vectors to a per-sub-solve mean.
func (r *SolveValuesResult) Divide() {
	if r.Count == 0 {
		return
	}
	n := float64(r.Count)
	for i := range r.Params {
		r.Params[i] /= n
	}
	for i := range r.Residuals {
		r.Residuals[i] /= n
	}
}

// FrameError is one (frame, error) observation for a single marker.
type FrameError struct {
	Frame int
	Error float64
}

// ErrorMetricsResult aggregates per-marker-per-frame deviations as a
// multi-map of marker name to its list of (frame, error) observations.
type ErrorMetricsResult struct {
	Count    int
	ByMarker map[string][]FrameError
}

// NewErrorMetricsResult returns an empty ErrorMetricsResult.
func NewErrorMetricsResult() *ErrorMetricsResult {
	return &ErrorMetricsResult{ByMarker: make(map[string][]FrameError)}
}

// Record appends one observation for marker name.
func (r *ErrorMetricsResult) Record(name string, frame int, errVal float64) {
	r.ByMarker[name] = append(r.ByMarker[name], FrameError{Frame: frame, Error: errVal})
	r.Count++
}

// Add folds another ErrorMetricsResult's observations in, per marker.
func (r *ErrorMetricsResult) Add(other *ErrorMetricsResult) {
	for name, entries := range other.ByMarker {
		r.ByMarker[name] = append(r.ByMarker[name], entries...)
	}
	r.Count += other.Count
}

// Divide is a no-op: ErrorMetricsResult retains every observation
// rather than averaging them away, since the deviation print-stats
// mode reports the full per-frame series, not a mean.
func (r *ErrorMetricsResult) Divide() {}

// MinAvgMax computes the minimum, mean and maximum error recorded for
// marker name. NaN and Inf entries (a marker a solve never managed to
// project, or a numerical failure mid-solve) are excluded before the
// gonum calls, since neither floats.Min/Max nor stat.Mean skip
// non-finite values on their own.
func (r *ErrorMetricsResult) MinAvgMax(name string) (min, avg, max float64, n int) {
	entries := r.ByMarker[name]
	finite := make([]float64, 0, len(entries))
	for _, e := range entries {
		if math.IsNaN(e.Error) || math.IsInf(e.Error, 0) {
			continue
		}
		finite = append(finite, e.Error)
	}
	n = len(finite)
	if n == 0 {
		return 0, 0, 0, 0
	}
	return floats.Min(finite), stat.Mean(finite, nil), floats.Max(finite), n
}
