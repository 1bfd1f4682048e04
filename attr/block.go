/*
DESCRIPTION
  block.go implements Block, the flat, frame-indexed store of
  attribute values the residual evaluator reads and the solve driver
  writes back to the host.

AUTHORS
  The mmsolver Authors.
*/

package attr

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mmsolver/mmsolver/frame"
)

// Block is a mapping from Id to either a single static value or a
// dense per-frame vector indexed by the attribute's stored frame
// range. It owns the Attribute metadata table too, since the two are
// always constructed and torn down together for the lifetime of a
// solve.
type Block struct {
	attrs  map[Id]*Attribute
	static map[Id]float64
	anim   map[Id][]float64 // indexed by f - start
}

// NewBlock returns an empty Block.
func NewBlock() *Block {
	return &Block{
		attrs:  make(map[Id]*Attribute),
		static: make(map[Id]float64),
		anim:   make(map[Id][]float64),
	}
}

// Add registers a attribute in the block and seeds its storage with
// the given initial value (every frame, for animated attributes).
func (b *Block) Add(a *Attribute, initial float64) error {
	if _, exists := b.attrs[a.Id]; exists {
		return errors.Errorf("attr block: duplicate attribute id %d", a.Id)
	}
	b.attrs[a.Id] = a
	if a.Animated {
		start, end := a.Range()
		n := int(end-start) + 1
		if n <= 0 {
			return errors.Errorf("attr %s: empty frame range", a.Name)
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = initial
		}
		b.anim[a.Id] = vals
	} else {
		b.static[a.Id] = initial
	}
	return nil
}

// Attribute returns the metadata for id, or nil if unknown.
func (b *Block) Attribute(id Id) *Attribute { return b.attrs[id] }

// Ids returns every registered attribute id, sorted ascending by Id
// (not in the order Add was called in).
func (b *Block) Ids() []Id {
	// Sorting avoids relying on map iteration order (which Go
	// deliberately randomises).
	out := make([]Id, 0, len(b.attrs))
	for _, id := range b.order() {
		out = append(out, id)
	}
	return out
}

// order reconstructs insertion order from the attrs map. Since Go
// maps don't preserve insertion order, Block instead relies on the
// caller (the scene graph / solve driver) to always enumerate
// attributes from its own ordered attribute list, never from
// Block.Ids(); Ids() here sorts by Id purely so iteration is at least
// deterministic for tests and diagnostics.
func (b *Block) order() []Id {
	ids := make([]Id, 0, len(b.attrs))
	for id := range b.attrs {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// Get returns the value of attribute id at frame f. For a static
// attribute f is ignored.
func (b *Block) Get(id Id, f frame.Number) (float64, error) {
	a, ok := b.attrs[id]
	if !ok {
		return 0, errors.Errorf("attr block: unknown attribute id %d", id)
	}
	if !a.Animated {
		return b.static[id], nil
	}
	start, end := a.Range()
	if f < start || f > end {
		return 0, errors.Errorf("attr %s: frame %d outside stored range [%d, %d]", a.Name, f, start, end)
	}
	return b.anim[id][int(f-start)], nil
}

// Set stores the value of attribute id at frame f. For a static
// attribute f is ignored.
func (b *Block) Set(id Id, f frame.Number, v float64) error {
	a, ok := b.attrs[id]
	if !ok {
		return errors.Errorf("attr block: unknown attribute id %d", id)
	}
	if !a.Animated {
		b.static[id] = v
		return nil
	}
	start, end := a.Range()
	if f < start || f > end {
		return errors.Errorf("attr %s: frame %d outside stored range [%d, %d]", a.Name, f, start, end)
	}
	b.anim[id][int(f-start)] = v
	return nil
}

// Snapshot returns a deep copy of the stored values for id, keyed by
// frame for animated attributes (nil for static attributes). Used by
// the solve driver to save/restore state for accept-only-better and
// cancellation rollback.
func (b *Block) Snapshot(id Id) (static float64, anim []float64) {
	if vals, ok := b.anim[id]; ok {
		cp := make([]float64, len(vals))
		copy(cp, vals)
		return 0, cp
	}
	return b.static[id], nil
}

// Restore writes a Snapshot result back into the block.
func (b *Block) Restore(id Id, static float64, anim []float64) {
	if anim != nil {
		cp := make([]float64, len(anim))
		copy(cp, anim)
		b.anim[id] = cp
		return
	}
	b.static[id] = static
}

// AllFinite reports whether every stored value for id is a finite
// real number.
func (b *Block) AllFinite(id Id) bool {
	if vals, ok := b.anim[id]; ok {
		for _, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	}
	v, ok := b.static[id]
	if !ok {
		return true
	}
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
