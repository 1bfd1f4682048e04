/*
DESCRIPTION
  flatscene.go bakes a Graph into FlatScene: a denormalised,
  cache-friendly view laid out so that consecutive frames for a given
  marker are adjacent in memory, used as the fast evaluation backend
  for the residual evaluator.

AUTHORS
  The mmsolver Authors.
*/

package scenegraph

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
)

// EvaluationObjects selects which markers and frames bake_scene_graph
// should emit plans for.
type EvaluationObjects struct {
	MarkerIndices []int // indices into Graph.Markers
	Frames        *frame.List
}

// FlatScene is the baked, dense evaluation plan: for every (marker,
// frame) pair it knows which camera/bundle/transform chain to
// evaluate, and holds two parallel point arrays (reprojected and
// observed).
type FlatScene struct {
	graph         *Graph
	markerIndices []int // flat slot -> Graph.Markers index
	frames        []frame.Number

	points  []Vec2 // reprojected (x, y), index(mi, fi)
	markers []Vec2 // observed (x, y), index(mi, fi)
}

// BakeSceneGraph walks g once and builds the dense per-frame
// evaluation plan Evaluate fills in on each call.
func BakeSceneGraph(g *Graph, eo EvaluationObjects) (*FlatScene, error) {
	if eo.Frames == nil {
		return nil, errors.New("scenegraph: BakeSceneGraph requires a non-nil frame list")
	}
	frames := eo.Frames.EnabledFrames()
	fs := &FlatScene{
		graph:         g,
		markerIndices: append([]int(nil), eo.MarkerIndices...),
		frames:        frames,
	}
	n := len(fs.markerIndices) * len(fs.frames)
	fs.points = make([]Vec2, n)
	fs.markers = make([]Vec2, n)
	return fs, nil
}

// NumMarkers returns the number of markers in the baked plan.
func (fs *FlatScene) NumMarkers() int { return len(fs.markerIndices) }

// NumFrames returns the number of frames in the baked plan.
func (fs *FlatScene) NumFrames() int { return len(fs.frames) }

// Frame returns the frame number at position fi.
func (fs *FlatScene) Frame(fi int) frame.Number { return fs.frames[fi] }

// MarkerIndex returns the Graph.Markers index for flat slot mi.
func (fs *FlatScene) MarkerIndex(mi int) int { return fs.markerIndices[mi] }

func (fs *FlatScene) slot(mi, fi int) int { return mi*len(fs.frames) + fi }

// Point returns the baked reprojected point for (marker slot mi,
// frame slot fi).
func (fs *FlatScene) Point(mi, fi int) Vec2 { return fs.points[fs.slot(mi, fi)] }

// MarkerObserved returns the baked, film-fit-scaled observed point
// for (marker slot mi, frame slot fi).
func (fs *FlatScene) MarkerObserved(mi, fi int) Vec2 { return fs.markers[fs.slot(mi, fi)] }

// Evaluate re-projects every (marker, frame) pair in the baked plan
// using the current values in block, and re-reads (and film-fit
// scales) the corresponding marker observations.
func (fs *FlatScene) Evaluate(block *attr.Block) error {
	for mi, gmi := range fs.markerIndices {
		mk := fs.graph.Markers[gmi]
		cam := fs.graph.Cameras[mk.CameraIndex]
		sx, sy := cam.FilmFitScale()
		for fi, f := range fs.frames {
			world, err := fs.graph.BundleWorldPosition(mk.BundleIndex, block, f)
			if err != nil {
				return err
			}
			camWorld, err := fs.graph.CameraWorldMatrix(mk.CameraIndex, block, f)
			if err != nil {
				return err
			}
			proj, err := cam.ProjectionMatrix(block)
			if err != nil {
				return err
			}
			x, y, _ := Project(world, camWorld, proj, cam.Near)
			fs.points[fs.slot(mi, fi)] = Vec2{x, y}

			obs, ok := mk.Position(f)
			if ok {
				// Inverse film-fit scale: the projection matrix already
				// bakes the forward film-fit scale, so the observed
				// position needs the same factor divided back out.
				obs = Vec2{obs.X / sx, obs.Y / sy}
			} else {
				// No recorded observation for this marker at this frame.
				// NaN marks the slot so residual.Evaluator skips it
				// instead of treating it as an observation at (0, 0).
				obs = Vec2{math.NaN(), math.NaN()}
			}
			fs.markers[fs.slot(mi, fi)] = obs
		}
	}
	return nil
}
