package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// trigSnap is how close a sine or cosine must be to 0 or ±1 to be treated
	// as exact. math.Cos(math.Pi/2) is 6e-17, not 0.
	trigSnap = 1e-12

	// sizeSlack is subtracted before rounding bounding sizes up so that float
	// noise on an integral size never adds a pixel.
	sizeSlack = 1e-9
)

// NormalizeAngle maps any finite angle in degrees into [0, 360).
//
// Repeated ±90° steps from the UI accumulate to values like 450 or -270;
// normalizing first keeps the quarter-turn cases exact.
func NormalizeAngle(degrees float64) float64 {
	a := math.Mod(degrees, 360)
	if a < 0 {
		a += 360
	}
	// -1e-20 + 360 rounds to 360
	if a >= 360 {
		a -= 360
	}
	return a
}

func snapUnit(v float64) float64 {
	switch {
	case math.Abs(v) < trigSnap:
		return 0
	case math.Abs(v-1) < trigSnap:
		return 1
	case math.Abs(v+1) < trigSnap:
		return -1
	}
	return v
}

// sincos returns the snapped sine and cosine of an angle in degrees.
func sincos(degrees float64) (sin, cos float64) {
	sin, cos = math.Sincos(degrees * math.Pi / 180)
	return snapUnit(sin), snapUnit(cos)
}

// RotatedSize returns the dimensions of the canvas that Rotate allocates for
// a w×h source: the minimal axis-aligned box containing the rotated source,
// each side rounded up to a whole pixel.
//
//	width  = ceil(|cos θ|·w + |sin θ|·h)
//	height = ceil(|sin θ|·w + |cos θ|·h)
//
// Crop rectangles passed to Crop after Rotate must be expressed in this
// canvas's coordinate space, with (0,0) at its top-left corner.
func RotatedSize(w, h int, degrees float64) (int, int) {
	sin, cos := sincos(NormalizeAngle(degrees))
	sin, cos = math.Abs(sin), math.Abs(cos)
	fw, fh := float64(w), float64(h)
	bw := int(math.Ceil(cos*fw + sin*fh - sizeSlack))
	bh := int(math.Ceil(sin*fw + cos*fh - sizeSlack))
	return bw, bh
}

// Rotate returns a new raster holding src rotated about its center by the
// given angle in degrees. Positive angles turn clockwise on screen (y axis
// pointing down), the direction of the UI's rotate-right control.
//
// The canvas is RotatedSize(w, h, degrees) and starts fully transparent. The
// source is drawn by moving the origin to the canvas center, rotating the
// frame, and placing the source's own center at the origin; sampled pixels
// use bilinear interpolation. Canvas pixels that do not map inside the
// source stay transparent (zero NRGBA).
//
// Exact quarter turns are lossless pixel permutations, so an angle of 0
// returns a pixel-identical copy.
//
// Rotate fails with ErrInvalidImage for an empty source and ErrInvalidAngle
// for NaN or infinite angles. src is never modified.
func Rotate(src image.Image, degrees float64) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "cannot rotate a %dx%d raster", b.Dx(), b.Dy())
	}
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, errors.Wrapf(ErrInvalidAngle, "rotation angle %v", degrees)
	}

	angle := NormalizeAngle(degrees)

	// imaging turns counter-clockwise
	switch angle {
	case 0:
		return imaging.Clone(src), nil
	case 90:
		return imaging.Rotate270(src), nil
	case 180:
		return imaging.Rotate180(src), nil
	case 270:
		return imaging.Rotate90(src), nil
	}

	w, h := RotatedSize(b.Dx(), b.Dy(), angle)
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))

	sin, cos := sincos(angle)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	// translate(w/2, h/2) · rotate(θ) · translate(-cx, -cy)
	s2d := f64.Aff3{
		cos, -sin, float64(w)/2 - (cos*cx - sin*cy),
		sin, cos, float64(h)/2 - (sin*cx + cos*cy),
	}
	draw.BiLinear.Transform(canvas, s2d, src, b, draw.Src, nil)

	return imaging.Clone(canvas), nil
}
