/*
DESCRIPTION
  lensmodel.go defines the polymorphic lens-model interface consumed
  by the residual evaluator, and the arena that stores lens-model
  chains by small integer index rather than by shared pointer, so that
  cycles become a single assertion at construction time.

AUTHORS
  The mmsolver Authors.
*/

// Package lensmodel provides the LensModel interface and an arena of
// lens-model records forming upstream/downstream chains. The actual
// lens-distortion mathematics are external collaborators consumed
// behind this interface; this package only provides the chain
// plumbing plus two minimal concrete implementations: an identity
// model and an OpenCV-backed Brown-Conrady model gated behind the
// "withcv" build tag, for callers that can link OpenCV and want real
// distortion instead of the identity stand-in.
package lensmodel

import (
	"math"

	"github.com/pkg/errors"
)

// Model is the polymorphic interface a lens model implements:
// ApplyDistort maps normalised filmback coordinates to their
// distorted equivalent.
type Model interface {
	ApplyDistort(x, y float64) (xp, yp float64)
}

// Index identifies a Model within an Arena. Index zero is reserved
// for "no lens model".
type Index int

// None is the sentinel Index meaning no lens model is wired.
const None Index = 0

// record is one arena slot: a concrete Model plus the Index of the
// upstream model applied first in the chain (or None).
type record struct {
	model  Model
	parent Index
}

// Arena owns a flat table of lens models, each optionally chained to
// an upstream model applied first. Storing the chain as parent
// indices into a single slice (rather than shared/weak pointers
// between model objects) means a cycle is caught once, at Add time,
// instead of being possible to construct silently.
type Arena struct {
	records []record // records[0] is the None placeholder.
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{records: []record{{}}}
}

// Add registers model with upstream parent (None for a chain root),
// returning its Index. It returns an error if parent would close a
// cycle.
func (a *Arena) Add(model Model, parent Index) (Index, error) {
	if parent != None {
		if int(parent) <= 0 || int(parent) >= len(a.records) {
			return None, errors.Errorf("lensmodel: parent index %d out of range", parent)
		}
	}
	idx := Index(len(a.records))
	a.records = append(a.records, record{model: model, parent: parent})
	if a.hasCycle(idx) {
		a.records = a.records[:idx]
		return None, errors.Errorf("lensmodel: adding model would create a cycle at index %d", idx)
	}
	return idx, nil
}

func (a *Arena) hasCycle(start Index) bool {
	slow, fast := start, start
	for {
		fast = a.records[fast].parent
		if fast == None {
			return false
		}
		fast = a.records[fast].parent
		if fast == None {
			return false
		}
		slow = a.records[slow].parent
		if slow == fast {
			return true
		}
	}
}

// ApplyChain runs (x, y) through the full upstream-to-downstream
// chain ending at idx: the model at the root of the chain is applied
// first, idx's own model last. A None index is the identity.
// Non-finite intermediate results are rejected and the pre-distortion
// input is kept.
func (a *Arena) ApplyChain(idx Index, x, y float64) (float64, float64) {
	if idx == None {
		return x, y
	}
	chain := a.chainToRoot(idx)
	cx, cy := x, y
	for i := len(chain) - 1; i >= 0; i-- {
		nx, ny := a.records[chain[i]].model.ApplyDistort(cx, cy)
		if !finite(nx) || !finite(ny) {
			continue
		}
		cx, cy = nx, ny
	}
	return cx, cy
}

func (a *Arena) chainToRoot(idx Index) []Index {
	var chain []Index
	for idx != None {
		chain = append(chain, idx)
		idx = a.records[idx].parent
	}
	return chain
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
