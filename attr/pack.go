/*
DESCRIPTION
  pack.go implements the box-constraint transform between the
  external value a host edits and the internal value the LM kernel
  sees (Numerical Recipes "box constraints"), plus the Packer that
  builds the parameter vector the kernel iterates over.

AUTHORS
  The mmsolver Authors.
*/

package attr

import (
	"math"

	"github.com/mmsolver/mmsolver/frame"
)

// ExternalToInternal maps a bounded external value to its
// unconstrained internal representation, inverting InternalToExternal
// once at solve start to seed v_int.
func ExternalToInternal(vExt, xmin, xmax, offset, scale float64) float64 {
	switch {
	case !math.IsInf(xmin, -1) && !math.IsInf(xmax, 1):
		// both bounds finite: v_ext = xmin + (xmax-xmin)/2 * (sin(v_int)+1)
		mid := (xmax - xmin) / 2
		x := (vExt-xmin)/mid - 1
		x = clamp(x, -1, 1)
		return math.Asin(x)
	case !math.IsInf(xmin, -1):
		// only lower bound: v_ext = xmin - 1 + sqrt(v_int^2 + 1)
		t := vExt - xmin + 1
		return math.Sqrt(math.Max(t*t-1, 0))
	case !math.IsInf(xmax, 1):
		// only upper bound: v_ext = xmax + 1 - sqrt(v_int^2 + 1)
		t := xmax + 1 - vExt
		return math.Sqrt(math.Max(t*t-1, 0))
	default:
		// no bounds: v_ext = v_int/scale - offset
		return (vExt + offset) * scale
	}
}

// InternalToExternal maps an unconstrained internal value to the
// bounded external value, picking one of four cases depending on
// which of xmin/xmax are finite.
func InternalToExternal(vInt, xmin, xmax, offset, scale float64) float64 {
	switch {
	case !math.IsInf(xmin, -1) && !math.IsInf(xmax, 1):
		return xmin + (xmax-xmin)/2*(math.Sin(vInt)+1)
	case !math.IsInf(xmin, -1):
		return xmin - 1 + math.Sqrt(vInt*vInt+1)
	case !math.IsInf(xmax, 1):
		return xmax + 1 - math.Sqrt(vInt*vInt+1)
	default:
		return vInt/scale - offset
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Pair identifies one scalar unknown: (attr index, frame index).
// FrameIndex -1 means the parameter is static.
type Pair struct {
	AttrIndex  int
	FrameIndex int
}

// Packer converts between a Block's values and the solver's flat
// parameter vector, in the stable order attrs is given. It holds no
// solver state of its own beyond that ordering; it is safe to reuse
// across solves as long as the attribute list and frame list it was
// built from don't change.
type Packer struct {
	block        *Block
	attrs        []*Attribute
	frames       *frame.List
	honorBounds  bool
	paramToAttr  []Pair // index -> (attr index into attrs, frame index or -1)
	numParams    int
}

// NewPacker builds a Packer for the given ordered attribute list and
// frame list. honorBounds controls whether the box-constraint
// transform is applied; offset/scale pre-conditioning is always
// applied regardless.
func NewPacker(block *Block, attrs []*Attribute, frames *frame.List, honorBounds bool) *Packer {
	p := &Packer{block: block, attrs: attrs, frames: frames, honorBounds: honorBounds}
	p.build()
	return p
}

func (p *Packer) build() {
	p.paramToAttr = p.paramToAttr[:0]
	for ai, a := range p.attrs {
		if a.Animated {
			for fi := 0; fi < p.frames.Len(); fi++ {
				if !p.frames.EnabledAt(fi) {
					continue
				}
				f := p.frames.At(fi)
				if !a.InRange(f) {
					continue
				}
				p.paramToAttr = append(p.paramToAttr, Pair{AttrIndex: ai, FrameIndex: fi})
			}
		} else {
			p.paramToAttr = append(p.paramToAttr, Pair{AttrIndex: ai, FrameIndex: -1})
		}
	}
	p.numParams = len(p.paramToAttr)
}

// NumParameters returns the length of the flat parameter vector.
func (p *Packer) NumParameters() int { return p.numParams }

// ParamToAttr returns the (attr, frame) pair for parameter index j.
func (p *Packer) ParamToAttr(j int) Pair { return p.paramToAttr[j] }

// attrFrame resolves a Pair to the concrete frame number, or 0 for a
// static parameter (Block ignores the frame of a static attribute).
func (p *Packer) attrFrame(pair Pair) frame.Number {
	if pair.FrameIndex < 0 {
		return 0
	}
	return p.frames.At(pair.FrameIndex)
}

// boundsFor returns the bounds to use for parameter j, applying the
// honorBounds switch: when bounds are not honoured the packer still
// applies offset/scale conditioning but treats the value as
// unbounded for the transform.
func (p *Packer) boundsFor(j int) (min, max float64) {
	a := p.attrs[p.paramToAttr[j].AttrIndex]
	if !p.honorBounds {
		return math.Inf(-1), math.Inf(1)
	}
	return a.Min, a.Max
}

// Pack reads the Block and returns the internal parameter vector.
func (p *Packer) Pack() ([]float64, error) {
	out := make([]float64, p.numParams)
	for j, pair := range p.paramToAttr {
		a := p.attrs[pair.AttrIndex]
		vExt, err := p.block.Get(a.Id, p.attrFrame(pair))
		if err != nil {
			return nil, err
		}
		min, max := p.boundsFor(j)
		out[j] = ExternalToInternal(vExt, min, max, a.Offset, a.Scale)
	}
	return out, nil
}

// Unpack writes an internal parameter vector back into the Block.
func (p *Packer) Unpack(params []float64) error {
	for j, pair := range p.paramToAttr {
		a := p.attrs[pair.AttrIndex]
		min, max := p.boundsFor(j)
		vExt := InternalToExternal(params[j], min, max, a.Offset, a.Scale)
		if err := p.block.Set(a.Id, p.attrFrame(pair), vExt); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAutoParamScale derives Offset/Scale for every unbounded
// parameter from its current external value, read once from the first
// frame (or the static value) that parameter packs, so the
// unconstrained internal representation the bounded cases never touch
// (see ExternalToInternal's default branch) starts near zero with
// roughly unit magnitude instead of the identity Offset=0/Scale=1.
// Bounded parameters go through the sin/sqrt transform instead, which
// ignores Offset/Scale entirely, so they are left untouched. Mutates
// the underlying Attribute values in place; call before Pack.
func (p *Packer) ApplyAutoParamScale() error {
	done := make(map[int]bool, len(p.attrs))
	for _, pair := range p.paramToAttr {
		if done[pair.AttrIndex] {
			continue
		}
		done[pair.AttrIndex] = true
		a := p.attrs[pair.AttrIndex]
		if !a.Unbounded() {
			continue
		}
		v, err := p.block.Get(a.Id, p.attrFrame(pair))
		if err != nil {
			return err
		}
		scale := 1.0
		if mag := math.Abs(v); mag > 1e-6 {
			scale = 1 / mag
		}
		a.Offset = -v
		a.Scale = scale
	}
	return nil
}

// Delta computes a finite-difference step h for parameter j, given a
// base attribute_delta, flipping its sign if value+h would escape the
// external bounds.
func (p *Packer) Delta(params []float64, j int, attrDelta float64) float64 {
	a := p.attrs[p.paramToAttr[j].AttrIndex]
	if !p.honorBounds || a.Unbounded() {
		return attrDelta
	}
	min, max := p.boundsFor(j)
	vExt := InternalToExternal(params[j], min, max, a.Offset, a.Scale)
	h := attrDelta
	if vExt+h > max || vExt+h < min {
		h = -h
	}
	return h
}
