/*
DESCRIPTION
  camera.go implements the pinhole camera model: filmback geometry,
  film-fit scaling, and the world-to-normalised-filmback projection
  used by the residual evaluator.

AUTHORS
  The mmsolver Authors.
*/

package scenegraph

import (
	"math"

	"github.com/mmsolver/mmsolver/attr"
)

// FilmFit is the policy by which a filmback aspect is mapped to a
// render aspect.
type FilmFit uint8

// Recognised film-fit policies.
const (
	FilmFitFill FilmFit = iota
	FilmFitHorizontal
	FilmFitVertical
	FilmFitOverscan
)

// Camera holds pinhole parameters plus the index of its world
// transform node in a Graph.
type Camera struct {
	Id   int
	Name string

	TransformIndex int

	// FocalLengthAttr, when not attr.NoId, makes focal length a solved
	// unknown; otherwise FocalLengthStatic is used directly.
	FocalLengthAttr   attr.Id
	FocalLengthStatic float64 // mm

	FilmbackWidth  float64 // mm
	FilmbackHeight float64 // mm
	FilmbackOffsetX float64 // mm
	FilmbackOffsetY float64 // mm

	FilmFit FilmFit

	Near, Far float64

	CameraScale float64

	RenderWidth, RenderHeight int // pixels
}

// focalLength returns the camera's current focal length, resolving
// the attribute if one is wired.
func (c *Camera) focalLength(block *attr.Block) (float64, error) {
	if c.FocalLengthAttr == attr.NoId {
		return c.FocalLengthStatic, nil
	}
	return block.Get(c.FocalLengthAttr, 0)
}

// filmAspect and imageAspect feed FilmFitScale's per-policy factors.
func (c *Camera) filmAspect() float64 {
	if c.FilmbackHeight == 0 {
		return 1
	}
	return c.FilmbackWidth / c.FilmbackHeight
}

func (c *Camera) imageAspect() float64 {
	if c.RenderHeight == 0 {
		return 1
	}
	return float64(c.RenderWidth) / float64(c.RenderHeight)
}

// FilmFitScale returns the (scaleX, scaleY) factors applied to marker
// observed positions to undo the forward film-fit scale already baked
// into the projection matrix.
func (c *Camera) FilmFitScale() (sx, sy float64) {
	filmAspect := c.filmAspect()
	imageAspect := c.imageAspect()
	switch c.FilmFit {
	case FilmFitHorizontal:
		if filmAspect > imageAspect {
			return 1, imageAspect / filmAspect
		}
		return 1, 1
	case FilmFitVertical:
		if filmAspect > imageAspect {
			return 1, 1
		}
		return filmAspect / imageAspect, 1
	case FilmFitOverscan:
		if filmAspect > imageAspect {
			return filmAspect / imageAspect, 1
		}
		return 1, 1
	case FilmFitFill:
		fallthrough
	default:
		return 1, 1
	}
}

// ProjectionMatrix returns the camera's perspective projection matrix
// (camera space -> normalised filmback space, [-0.5, 0.5]^2 before
// film-fit scaling), given the resolved focal length.
func (c *Camera) ProjectionMatrix(block *attr.Block) (Mat4, error) {
	fl, err := c.focalLength(block)
	if err != nil {
		return Mat4{}, err
	}
	// Convert focal length (mm) and filmback width (mm) into a
	// horizontal field-of-view scale in normalised filmback units.
	// A point at depth z in camera space projects to
	// x' = (fl/z) * (x / filmbackWidth), scaled by camera scale and
	// offset by the filmback offset (normalised by filmback size).
	fbw := c.FilmbackWidth
	fbh := c.FilmbackHeight
	if fbw == 0 {
		fbw = 1
	}
	if fbh == 0 {
		fbh = 1
	}
	scale := c.CameraScale
	if scale == 0 {
		scale = 1
	}
	// Encode as a 4x4 so MulPoint's perspective divide (by z) does the
	// 1/z projection for us; x/y rows carry the fl/filmback scale and,
	// in the z column, the filmback offset (so it is left unscaled by
	// the divide); the w row carries z so that dividing by w performs
	// the 1/z.
	m := Mat4{
		fl / fbw * scale, 0, c.FilmbackOffsetX / fbw, 0,
		0, fl / fbh * scale, c.FilmbackOffsetY / fbh, 0,
		0, 0, 1, 0,
		0, 0, 1, 0,
	}
	return m, nil
}

// Project transforms a world-space point through the camera's
// inverse world matrix and projection matrix, returning its
// normalised filmback coordinates (before film-fit scaling) and
// whether the point lies in front of the camera (z > near).
func Project(worldPoint Vec3, cameraWorld Mat4, proj Mat4, near float64) (x, y float64, inFront bool) {
	inv, ok := cameraWorld.Invert()
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	camSpace := inv.MulPoint(worldPoint)
	// The camera looks down +Z in its local space; depth in front of
	// the camera is camSpace.Z.
	depth := camSpace.Z
	p := proj.MulPoint(Vec3{camSpace.X, camSpace.Y, depth})
	return p.X, p.Y, depth > near
}
