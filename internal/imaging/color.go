package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// DefaultBackground is the fill used when a transparent raster is encoded to
// a format without alpha. Opaque black is what a browser canvas produces when
// it exports transparent pixels as JPEG.
var DefaultBackground = color.NRGBA{A: 255}

// ParseBackground parses a "#RRGGBB" or "#RGB" color (the leading '#' is
// optional). An empty string gives DefaultBackground. The result is always
// opaque.
func ParseBackground(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultBackground, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	// colorful.Hex accepts short reads like "#12345"
	if len(s) != 4 && len(s) != 7 {
		return color.NRGBA{}, errors.Wrapf(ErrEncoding, "background %q: want #RGB or #RRGGBB", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, errors.Wrapf(ErrEncoding, "background %q: %v", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBAColor represents a non-premultiplied RGBA color with 8-bit components.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// HSLColor represents a color in HSL color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex  string    `json:"hex"` // "#RRGGBB", alpha excluded
	RGB  RGBColor  `json:"rgb"`
	RGBA RGBAColor `json:"rgba"`
	HSL  HSLColor  `json:"hsl"`
}

// SampleColor returns the color of the pixel at (x, y), measured from the
// top-left corner of img. This is the same coordinate space Crop uses, so
// sampling a rotated raster at a crop rect's offset shows the first pixel
// the crop will contain.
//
// Transparent pixels report their stored (non-premultiplied) channels with
// A = 0.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	b := img.Bounds()
	px, py := b.Min.X+x, b.Min.Y+y
	if !image.Pt(px, py).In(b) {
		return nil, errors.Errorf("coordinates (%d,%d) outside %dx%d image", x, y, b.Dx(), b.Dy())
	}

	c := color.NRGBAModel.Convert(img.At(px, py)).(color.NRGBA)
	rgb := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := rgb.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return &ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGB:  RGBColor{R: c.R, G: c.G, B: c.B},
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL:  HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
	}, nil
}
