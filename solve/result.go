/*
DESCRIPTION
  result.go defines CommandResult, the record solve() returns: every
  field of the append-only, string-tagged result record, expressed as
  Go struct fields rather than a string-keyed map so callers get
  compile-time field access; Fields() still exposes the string-tagged
  view for hosts that want to log or serialise it generically.

AUTHORS
  The mmsolver Authors.
*/

package solve

import (
	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/result"
)

// CommandResult is the outcome of one solve() call.
type CommandResult struct {
	Success      bool
	ReasonNum    int
	ReasonString string

	ErrorFinal        float64
	ErrorFinalAverage float64
	ErrorFinalMaximum float64
	ErrorFinalMinimum float64

	IterationNum         int
	IterationFunctionNum int
	IterationJacobianNum int
	UserInterrupted      bool

	Timers *result.TimerResult

	SolveParameterList []float64
	SolveErrorList     []float64

	ErrorPerFrame          map[frame.Number]float64
	ErrorPerMarkerPerFrame *result.ErrorMetricsResult
	MarkerAffectsAttribute *affects.Cube

	MarkersUsed      []int
	MarkersUnused    []int
	AttributesUsed   []int
	AttributesUnused []int
	ValidFrames      []frame.Number
	InvalidFrames    []frame.Number

	NumberOfParameters   int
	NumberOfErrors       int
	NumberOfMarkerErrors int
}

// Fields returns the string-tagged view of r, using the same literal
// field names as the original record format, for hosts that log or
// serialise CommandResult generically instead of through Go struct
// fields.
func (r *CommandResult) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"success":                r.Success,
		"reason_num":             r.ReasonNum,
		"reason_string":          r.ReasonString,
		"error_final":            r.ErrorFinal,
		"error_final_average":    r.ErrorFinalAverage,
		"error_final_maximum":    r.ErrorFinalMaximum,
		"error_final_minimum":    r.ErrorFinalMinimum,
		"iteration_num":          r.IterationNum,
		"iteration_function_num": r.IterationFunctionNum,
		"iteration_jacobian_num": r.IterationJacobianNum,
		"user_interrupted":       r.UserInterrupted,
		"solve_parameter_list":   r.SolveParameterList,
		"solve_error_list":       r.SolveErrorList,
		"error_per_frame":        r.ErrorPerFrame,
		"markers_used":           r.MarkersUsed,
		"markers_unused":         r.MarkersUnused,
		"attributes_used":        r.AttributesUsed,
		"attributes_unused":      r.AttributesUnused,
		"valid_frames":           r.ValidFrames,
		"invalid_frames":         r.InvalidFrames,
		"numberOfParameters":     r.NumberOfParameters,
		"numberOfErrors":         r.NumberOfErrors,
		"numberOfMarkerErrors":   r.NumberOfMarkerErrors,
	}
	if r.Timers != nil {
		for k, v := range r.Timers.Timers {
			f["timer_"+k] = v
		}
		for k, v := range r.Timers.Ticks {
			f["ticks_"+k] = v
		}
	}
	return f
}

// reasonCode enumerates the ReasonNum values CommandResult reports.
type reasonCode int

const (
	reasonOK reasonCode = iota
	reasonInvalidInput
	reasonInsufficientData
	reasonNumericalFailure
	reasonCancelled
	reasonKernelFailure
	reasonAcceptanceRejection
)
