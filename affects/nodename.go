/*
DESCRIPTION
  nodename.go implements the node-name GraphMode: a cached lookup of a
  keyframed integer channel the host stores on the marker node,
  recording whether an attribute affects that marker on each frame.

AUTHORS
  The mmsolver Authors.
*/

package affects

import (
	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/scenegraph"
)

// ChannelStore models the host's per-(marker, attribute) keyframed
// integer channel: 0 = unknown (treat as true), 1 = affects, -1 =
// does not affect. The channel is named deterministically from the
// attribute's long name plus its stable identifier by the host; this
// package only needs to read and write the resulting values, not the
// naming scheme itself.
type ChannelStore interface {
	Get(markerId, attrId int, f frame.Number) (value int8, has bool)
	Set(markerId, attrId int, f frame.Number, value int8)
}

// MemoryChannelStore is an in-memory ChannelStore, standing in for
// the host's persisted channel in tests and in hosts with no
// keyframed-channel storage of their own.
type MemoryChannelStore struct {
	values map[channelKey]int8
}

type channelKey struct {
	markerId, attrId int
	f                frame.Number
}

// NewMemoryChannelStore returns an empty MemoryChannelStore.
func NewMemoryChannelStore() *MemoryChannelStore {
	return &MemoryChannelStore{values: make(map[channelKey]int8)}
}

func (s *MemoryChannelStore) Get(markerId, attrId int, f frame.Number) (int8, bool) {
	v, ok := s.values[channelKey{markerId, attrId, f}]
	return v, ok
}

func (s *MemoryChannelStore) Set(markerId, attrId int, f frame.Number, v int8) {
	s.values[channelKey{markerId, attrId, f}] = v
}

// nodeNameStrategy reproduces the cube from a cached ChannelStore
// without re-walking the DAG.
type nodeNameStrategy struct {
	store ChannelStore
}

func (s nodeNameStrategy) Compute(g *scenegraph.Graph, markerIndices []int, attrs []*attr.Attribute, frames *frame.List) (*Cube, error) {
	nf := frames.Len()
	cube := NewCube(len(markerIndices), len(attrs), nf)
	for m, gmi := range markerIndices {
		for a, at := range attrs {
			for fi := 0; fi < nf; fi++ {
				f := frames.At(fi)
				affects := true // missing information defaults to true.
				if s.store != nil {
					if v, has := s.store.Get(gmi, int(at.Id), f); has {
						affects = v >= 0
					}
				}
				cube.Set(m, a, fi, affects)
			}
		}
	}
	return cube, nil
}

// WriteBack persists cube into store so a later solve using
// ModeNodeName can reproduce it without re-walking the DAG.
func WriteBack(store ChannelStore, markerIndices []int, attrs []*attr.Attribute, frames *frame.List, cube *Cube) {
	if store == nil {
		return
	}
	for m, gmi := range markerIndices {
		for a, at := range attrs {
			for fi := 0; fi < frames.Len(); fi++ {
				f := frames.At(fi)
				v := int8(-1)
				if cube.Get(m, a, fi) {
					v = 1
				}
				store.Set(gmi, int(at.Id), f, v)
			}
		}
	}
}
