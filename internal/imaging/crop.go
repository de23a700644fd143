package imaging

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// maxCropOffset bounds crop offsets so rounding to int is always defined.
const maxCropOffset = 1 << 30

// MaxPixels is the largest raster area the package allocates, for a decoded
// source and for a crop alike.
const MaxPixels = 1 << 26

// CropRect is an axis-aligned region to extract, in the pixel space of the
// raster being cropped: (0,0) is that raster's top-left pixel, X grows right
// and Y grows down.
//
// After Rotate the raster is the rotated canvas, so X and Y are offsets into
// a RotatedSize(w, h, angle) canvas, not into the unrotated source.
type CropRect struct {
	// X and Y may be fractional when they come from an interactive selection.
	// They are rounded half away from zero before extraction.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Width and Height are the exact output dimensions and must be positive.
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r CropRect) String() string {
	return fmt.Sprintf("(%g,%g %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Validate reports ErrInvalidCropRect for non-positive dimensions, an area
// above MaxPixels, or non-finite offsets.
func (r CropRect) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return errors.Wrapf(ErrInvalidCropRect, "crop size %dx%d must be positive", r.Width, r.Height)
	}
	if r.Width > MaxPixels/r.Height {
		return errors.Wrapf(ErrInvalidCropRect, "crop size %dx%d exceeds %d pixels", r.Width, r.Height, MaxPixels)
	}
	for _, v := range []float64{r.X, r.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxCropOffset {
			return errors.Wrapf(ErrInvalidCropRect, "crop offset %s out of range", r)
		}
	}
	return nil
}

// Rectangle resolves r to integer pixel bounds. r must be valid.
func (r CropRect) Rectangle() image.Rectangle {
	x := int(math.Round(r.X))
	y := int(math.Round(r.Y))
	return image.Rect(x, y, x+r.Width, y+r.Height)
}

// ParseCropRect parses "x,y,width,height".
func ParseCropRect(s string) (CropRect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return CropRect{}, errors.Wrapf(ErrInvalidCropRect, "crop %q: want x,y,width,height", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return CropRect{}, errors.Wrapf(ErrInvalidCropRect, "crop %q: %v", s, err)
		}
		vals[i] = v
	}
	if vals[2] != math.Trunc(vals[2]) || vals[3] != math.Trunc(vals[3]) {
		return CropRect{}, errors.Wrapf(ErrInvalidCropRect, "crop %q: width and height must be whole pixels", s)
	}
	rect := CropRect{X: vals[0], Y: vals[1], Width: int(vals[2]), Height: int(vals[3])}
	if err := rect.Validate(); err != nil {
		return CropRect{}, err
	}
	return rect, nil
}

// Crop extracts rect from src into a new raster of exactly
// rect.Width × rect.Height.
//
// Each output pixel (dx, dy) is the src pixel (x+dx, y+dy), measured from
// src's top-left corner. Pixels are copied, never interpolated. Any part of
// rect that falls outside src stays fully transparent, the same background
// Rotate leaves outside the rotated content; Crop never reads out of bounds
// and never fails because of it.
//
// Crop fails with ErrInvalidCropRect for an invalid rect and ErrInvalidImage
// for an empty src. src is never modified.
func Crop(src image.Image, rect CropRect) (*image.NRGBA, error) {
	if err := rect.Validate(); err != nil {
		return nil, err
	}
	if src.Bounds().Empty() {
		return nil, errors.Wrap(ErrInvalidImage, "cannot crop an empty raster")
	}

	pix := rooted(src)
	area := rect.Rectangle()
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Width, rect.Height))

	overlap := area.Intersect(pix.Rect)
	if overlap.Empty() {
		return dst, nil
	}

	rowBytes := overlap.Dx() * 4
	dx0 := overlap.Min.X - area.Min.X
	parallel.Line(overlap.Dy(), func(start, end int) {
		for i := start; i < end; i++ {
			sy := overlap.Min.Y + i
			si := pix.PixOffset(overlap.Min.X, sy)
			di := dst.PixOffset(dx0, sy-area.Min.Y)
			copy(dst.Pix[di:di+rowBytes], pix.Pix[si:si+rowBytes])
		}
	})

	return dst, nil
}

// rooted returns src as an NRGBA whose bounds start at (0,0), copying only
// when src is some other type or a sub-image.
func rooted(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(src)
}
