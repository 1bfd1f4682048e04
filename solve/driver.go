/*
DESCRIPTION
  driver.go implements the solve-invocation contract: the
  preflight/affects/count/validate/pack/solve/accept-reject state
  machine, including the all-frames-at-once and per-frame
  FrameSolveMode strategies and the result-aggregator merge used for
  the latter.

AUTHORS
  The mmsolver Authors.
*/

// Package solve implements the top-level solve() operation: it wires
// together attr, affects, scenegraph, residual and kernel into a
// preflight/pack/solve/accept-reject state machine, and reports a
// CommandResult.
package solve

import (
	"math"

	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/kernel"
	"github.com/mmsolver/mmsolver/lensmodel"
	"github.com/mmsolver/mmsolver/logging"
	"github.com/mmsolver/mmsolver/result"
	"github.com/mmsolver/mmsolver/residual"
	"github.com/mmsolver/mmsolver/scenegraph"
)

// Inputs gathers the host handles passed to solve(): cameras/bundles
// are reached through Graph; MarkerIndices selects which of
// Graph.Markers participate; Attrs defines parameter order.
type Inputs struct {
	Graph         *scenegraph.Graph
	MarkerIndices []int
	Attrs         []*attr.Attribute
	Block         *attr.Block
	Frames        *frame.List

	LensArena *lensmodel.Arena
	LensChain []lensmodel.Index // parallel to MarkerIndices; lensmodel.None if unwired.

	ChannelStore     affects.ChannelStore // consulted only by ModeNodeName.
	StrategyOverride affects.Strategy     // non-nil bypasses opts.SceneGraphMode.

	// Cancel is polled cooperatively during evaluation.
	Cancel func() bool
}

// Solve runs the full preflight/pack/solve/accept-reject state
// machine and reports a CommandResult. It never panics on recoverable
// input problems; those are captured into the returned result instead
// of propagating as a Go panic.
func Solve(in *Inputs, opts Options, printStats PrintStats, logger logging.Logger) *CommandResult {
	if err := opts.Validate(); err != nil {
		return &CommandResult{Success: false, ReasonNum: int(reasonInvalidInput), ReasonString: err.Error()}
	}

	enabledMarkers := make([]int, 0, len(in.MarkerIndices))
	for _, gmi := range in.MarkerIndices {
		if in.Graph.Markers[gmi].Enable {
			enabledMarkers = append(enabledMarkers, gmi)
		}
	}
	if len(enabledMarkers) == 0 || len(in.Attrs) == 0 || in.Frames.NumEnabled() == 0 {
		return &CommandResult{Success: false, ReasonNum: int(reasonInvalidInput), ReasonString: "solve: zero enabled markers, attributes or frames"}
	}

	strategy := in.StrategyOverride
	if strategy == nil {
		strategy = affects.NewStrategy(opts.SceneGraphMode, in.ChannelStore)
	}
	cube, err := strategy.Compute(in.Graph, enabledMarkers, in.Attrs, in.Frames)
	if err != nil {
		return &CommandResult{Success: false, ReasonNum: int(reasonInvalidInput), ReasonString: err.Error()}
	}

	finalMarkers, finalAttrs, finalFrames := enabledMarkers, in.Attrs, in.Frames
	usedMarkers, usedAttrs, usedFrames := cube.UsedMarkers(), cube.UsedAttrs(), cube.UsedFrames()
	markersUsed, markersUnused := splitByUse(enabledMarkers, usedMarkers)
	attrsUsed, attrsUnused := splitAttrsByUse(in.Attrs, usedAttrs)
	validFrames, invalidFrames := splitFramesByUse(in.Frames, usedFrames)

	filtered := false
	if opts.RemoveUnusedMarkers {
		finalMarkers = markersUsed
		filtered = true
	}
	if opts.RemoveUnusedAttributes {
		finalAttrs = filterAttrs(in.Attrs, usedAttrs)
		filtered = true
	}
	if opts.RemoveUnusedFrames {
		nums := make([]frame.Number, 0, len(validFrames))
		nums = append(nums, validFrames...)
		if nl, err := frame.NewList(nums); err == nil {
			finalFrames = nl
			filtered = true
		}
	}
	if filtered {
		cube, err = strategy.Compute(in.Graph, finalMarkers, finalAttrs, finalFrames)
		if err != nil {
			return &CommandResult{Success: false, ReasonNum: int(reasonInvalidInput), ReasonString: err.Error()}
		}
	}
	if opts.SceneGraphMode == affects.ModeNodeName {
		affects.WriteBack(in.ChannelStore, finalMarkers, finalAttrs, finalFrames, cube)
	}

	lensChainByGraphIdx := make(map[int]lensmodel.Index, len(in.MarkerIndices))
	for i, gmi := range in.MarkerIndices {
		if i < len(in.LensChain) {
			lensChainByGraphIdx[gmi] = in.LensChain[i]
		}
	}
	lensChainSlot := make([]lensmodel.Index, len(finalMarkers))
	for i, gmi := range finalMarkers {
		lensChainSlot[i] = lensChainByGraphIdx[gmi]
	}

	base := &CommandResult{
		MarkersUsed: markersUsed, MarkersUnused: markersUnused,
		AttributesUsed: attrsUsed, AttributesUnused: attrsUnused,
		ValidFrames: validFrames, InvalidFrames: invalidFrames,
		MarkerAffectsAttribute: cube,
	}

	if printStats.DoNotSolve() {
		base.Success = true
		base.ReasonString = "print-stats only; solve not invoked"
		return base
	}

	if opts.FrameSolveMode == FrameSolvePerFrame {
		return solvePerFrame(in, opts, logger, finalMarkers, finalAttrs, finalFrames, lensChainSlot, base)
	}
	sr := runOnce(in, opts, logger, finalMarkers, finalAttrs, finalFrames, lensChainSlot, cube)
	return mergeInto(base, sr)
}

// subResult is one sub-solve's outcome: either the single all-frames
// solve, or one frame of a per-frame solve.
type subResult struct {
	success                                bool
	reasonString                           string
	userInterrupted                        bool
	iterationNum, funcEvalNum, jacEvalNum   int
	errorMin, errorAvg, errorMax            float64
	numberOfParameters, numberOfErrors      int
	numberOfMarkerErrors                    int
	errorPerFrame                           map[frame.Number]float64
	errorPerMarkerPerFrame                  *result.ErrorMetricsResult
	solveParameterList                      []float64
	solveErrorList                          []float64
}

func runOnce(in *Inputs, opts Options, logger logging.Logger, markers []int, attrs []*attr.Attribute, frames *frame.List, lensChainSlot []lensmodel.Index, cube *affects.Cube) subResult {
	packer := attr.NewPacker(in.Block, attrs, frames, opts.SolverSupportsParameterBounds)
	if opts.AutoParamScale {
		if err := packer.ApplyAutoParamScale(); err != nil {
			return subResult{reasonString: err.Error()}
		}
	}

	eo := scenegraph.EvaluationObjects{MarkerIndices: markers, Frames: frames}
	scene, err := scenegraph.BakeSceneGraph(in.Graph, eo)
	if err != nil {
		return subResult{reasonString: err.Error()}
	}

	rawWeight := make([]float64, len(markers))
	for i, gmi := range markers {
		rawWeight[i] = in.Graph.Markers[gmi].Weight
	}
	lossType := residual.LossTrivial
	lossScale := opts.RobustLossScale
	if opts.SolverSupportsRobustLoss {
		lossType = opts.RobustLossType
	}
	evaluator := residual.NewEvaluator(scene, in.Block, in.LensArena, lensChainSlot, rawWeight, opts.ImageWidth, lossType, lossScale)
	evaluator.Cancel = in.Cancel

	numPairs := evaluator.NumMarkerPairs()
	pairMarker := make([]int, numPairs)
	pairFrame := make([]int, numPairs)
	nf := frames.Len()
	for mi := 0; mi < scene.NumMarkers(); mi++ {
		for fi := 0; fi < nf; fi++ {
			i := mi*nf + fi
			pairMarker[i], pairFrame[i] = mi, fi
		}
	}

	paramToFrame := affects.BuildParameterToFrameMatrix(packer, nf)
	errorToParam := affects.BuildErrorToParamMatrix(cube, packer, paramToFrame, pairMarker, pairFrame)

	numberOfParameters := packer.NumParameters()
	numberOfMarkerErrors := 2 * numPairs
	numberOfErrors := numberOfMarkerErrors

	if numberOfParameters == 0 || numberOfErrors == 0 || numberOfParameters > numberOfErrors {
		return subResult{
			reasonString:         "solve: numberOfParameters exceeds numberOfErrors, or either is zero",
			numberOfParameters:   numberOfParameters,
			numberOfErrors:       numberOfErrors,
			numberOfMarkerErrors: numberOfMarkerErrors,
		}
	}

	allFramesEnable := make([]bool, nf)
	for i := range allFramesEnable {
		allFramesEnable[i] = true
	}

	residualFn := func(params []float64, frameEnable, skip []bool) ([]float64, error) {
		if err := packer.Unpack(params); err != nil {
			return nil, err
		}
		errs := make([]float64, evaluator.NumResiduals())
		dist := make([]float64, numPairs)
		if err := evaluator.Evaluate(frameEnable, skip, nil, errs, dist); err != nil {
			return nil, err
		}
		return errs, nil
	}

	var initialAvg float64
	haveInitialAvg := false
	params0, err := packer.Pack()
	if err != nil {
		return subResult{reasonString: err.Error(), numberOfParameters: numberOfParameters, numberOfErrors: numberOfErrors, numberOfMarkerErrors: numberOfMarkerErrors}
	}
	if opts.AcceptOnlyBetter {
		errs := make([]float64, evaluator.NumResiduals())
		dist := make([]float64, numPairs)
		if err := evaluator.Evaluate(allFramesEnable, nil, nil, errs, dist); err == nil {
			_, initialAvg, _ = residual.AggregateDistance(dist)
			haveInitialAvg = true
		}
	}

	k := selectKernel(opts, packer, paramToFrame, errorToParam, residualFn)
	kopts := kernel.Options{
		MaxIterations:      opts.IterMax,
		Tau:                opts.Tau,
		FunctionTolerance:  opts.FunctionTolerance,
		ParameterTolerance: opts.ParameterTolerance,
		GradientTolerance:  opts.GradientTolerance,
		Delta:              opts.Delta,
	}
	solvedParams, kres := k.Solve(params0, kopts, evaluator.NumResiduals(), wireEval(residualFn, allFramesEnable, logger))

	if err := packer.Unpack(solvedParams); err != nil {
		packer.Unpack(params0)
		return subResult{reasonString: err.Error(), numberOfParameters: numberOfParameters, numberOfErrors: numberOfErrors, numberOfMarkerErrors: numberOfMarkerErrors}
	}

	errs := make([]float64, evaluator.NumResiduals())
	dist := make([]float64, numPairs)
	_ = evaluator.Evaluate(allFramesEnable, nil, nil, errs, dist)
	errMin, errAvg, errMax := residual.AggregateDistance(dist)

	success := kres.Success
	userInterrupted := kres.Reason == kernel.ReasonCancelled
	switch {
	case userInterrupted:
		packer.Unpack(params0)
		success = false
		errMin, errAvg, errMax = 0, 0, 0
	case haveInitialAvg && opts.AcceptOnlyBetter && errAvg > initialAvg:
		// Accept-only-better rejection: restore initial parameters;
		// success stays true, but the reported average equals the
		// initial average.
		packer.Unpack(params0)
		evaluator.Evaluate(allFramesEnable, nil, nil, errs, dist)
		errMin, errAvg, errMax = residual.AggregateDistance(dist)
	}

	metrics := result.NewErrorMetricsResult()
	perFrame := make(map[frame.Number]float64, nf)
	for fi := 0; fi < nf; fi++ {
		var sum float64
		var n int
		for mi := 0; mi < scene.NumMarkers(); mi++ {
			i := mi*nf + fi
			d := dist[i]
			if math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			name := in.Graph.Markers[markers[mi]].Name
			metrics.Record(name, int(frames.At(fi)), d)
			sum += d
			n++
		}
		if n > 0 {
			perFrame[frames.At(fi)] = sum / float64(n)
		}
	}

	return subResult{
		success:                success,
		reasonString:           kres.ReasonString,
		userInterrupted:        userInterrupted,
		iterationNum:           kres.Iterations,
		funcEvalNum:            kres.FuncEvals,
		jacEvalNum:             kres.JacEvals,
		errorMin:               errMin,
		errorAvg:               errAvg,
		errorMax:               errMax,
		numberOfParameters:     numberOfParameters,
		numberOfErrors:         numberOfErrors,
		numberOfMarkerErrors:   numberOfMarkerErrors,
		errorPerFrame:          perFrame,
		errorPerMarkerPerFrame: metrics,
		solveParameterList:     solvedParams,
		solveErrorList:         errs,
	}
}

func solvePerFrame(in *Inputs, opts Options, logger logging.Logger, markers []int, attrs []*attr.Attribute, frames *frame.List, lensChainSlot []lensmodel.Index, base *CommandResult) *CommandResult {
	strategy := in.StrategyOverride
	if strategy == nil {
		strategy = affects.NewStrategy(opts.SceneGraphMode, in.ChannelStore)
	}
	enabled := frames.EnabledFrames()
	subs := make([]subResult, 0, len(enabled))
	for _, f := range enabled {
		sub := frame.Single(f)
		cube, err := strategy.Compute(in.Graph, markers, attrs, sub)
		if err != nil {
			subs = append(subs, subResult{reasonString: err.Error()})
			continue
		}
		subs = append(subs, runOnce(in, opts, logger, markers, attrs, sub, lensChainSlot, cube))
	}
	return mergeInto(base, mergeSubResults(subs))
}

func mergeSubResults(subs []subResult) subResult {
	if len(subs) == 0 {
		return subResult{reasonString: "solve: per-frame mode had no enabled frames"}
	}
	out := subResult{
		success:                true,
		errorPerFrame:          make(map[frame.Number]float64),
		errorPerMarkerPerFrame: result.NewErrorMetricsResult(),
	}
	var sumAvg float64
	out.errorMin, out.errorMax = math.Inf(1), math.Inf(-1)
	for _, s := range subs {
		out.success = out.success && s.success
		out.userInterrupted = out.userInterrupted || s.userInterrupted
		out.iterationNum += s.iterationNum
		out.funcEvalNum += s.funcEvalNum
		out.jacEvalNum += s.jacEvalNum
		out.numberOfParameters += s.numberOfParameters
		out.numberOfErrors += s.numberOfErrors
		out.numberOfMarkerErrors += s.numberOfMarkerErrors
		sumAvg += s.errorAvg
		if s.errorMin < out.errorMin {
			out.errorMin = s.errorMin
		}
		if s.errorMax > out.errorMax {
			out.errorMax = s.errorMax
		}
		for f, v := range s.errorPerFrame {
			out.errorPerFrame[f] = v
		}
		if s.errorPerMarkerPerFrame != nil {
			out.errorPerMarkerPerFrame.Add(s.errorPerMarkerPerFrame)
		}
		out.solveParameterList = append(out.solveParameterList, s.solveParameterList...)
		out.solveErrorList = append(out.solveErrorList, s.solveErrorList...)
	}
	out.errorAvg = sumAvg / float64(len(subs))
	out.reasonString = "per-frame solve complete"
	return out
}

func mergeInto(base *CommandResult, s subResult) *CommandResult {
	base.Success = s.success
	base.ReasonString = s.reasonString
	base.UserInterrupted = s.userInterrupted
	base.IterationNum = s.iterationNum
	base.IterationFunctionNum = s.funcEvalNum
	base.IterationJacobianNum = s.jacEvalNum
	base.ErrorFinalMinimum = s.errorMin
	base.ErrorFinalAverage = s.errorAvg
	base.ErrorFinalMaximum = s.errorMax
	base.ErrorFinal = s.errorAvg
	base.NumberOfParameters = s.numberOfParameters
	base.NumberOfErrors = s.numberOfErrors
	base.NumberOfMarkerErrors = s.numberOfMarkerErrors
	base.ErrorPerFrame = s.errorPerFrame
	base.ErrorPerMarkerPerFrame = s.errorPerMarkerPerFrame
	base.SolveParameterList = s.solveParameterList
	base.SolveErrorList = s.solveErrorList
	if s.userInterrupted {
		base.ReasonNum = int(reasonCancelled)
	} else if !s.success {
		base.ReasonNum = int(reasonKernelFailure)
	} else {
		base.ReasonNum = int(reasonOK)
	}
	return base
}

func splitByUse(indices []int, used []bool) (usedOut, unusedOut []int) {
	for i, idx := range indices {
		if i < len(used) && used[i] {
			usedOut = append(usedOut, idx)
		} else {
			unusedOut = append(unusedOut, idx)
		}
	}
	return
}

func splitAttrsByUse(attrs []*attr.Attribute, used []bool) (usedOut, unusedOut []int) {
	for i, a := range attrs {
		if i < len(used) && used[i] {
			usedOut = append(usedOut, int(a.Id))
		} else {
			unusedOut = append(unusedOut, int(a.Id))
		}
	}
	return
}

func filterAttrs(attrs []*attr.Attribute, used []bool) []*attr.Attribute {
	out := make([]*attr.Attribute, 0, len(attrs))
	for i, a := range attrs {
		if i < len(used) && used[i] {
			out = append(out, a)
		}
	}
	return out
}

func splitFramesByUse(frames *frame.List, used []bool) (validOut, invalidOut []frame.Number) {
	for i := 0; i < frames.Len(); i++ {
		n := frames.At(i)
		if i < len(used) && used[i] {
			validOut = append(validOut, n)
		} else {
			invalidOut = append(invalidOut, n)
		}
	}
	return
}
