package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Format is an output image format.
type Format string

// Supported output formats.
const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// DefaultQuality matches the JPEG quality browsers use for canvas.toBlob.
const DefaultQuality = 92

var formats = map[Format]struct {
	codec imaging.Format
	mime  string
	alpha bool
}{
	FormatJPEG: {imaging.JPEG, "image/jpeg", false},
	FormatPNG:  {imaging.PNG, "image/png", true},
	FormatGIF:  {imaging.GIF, "image/gif", true},
	FormatBMP:  {imaging.BMP, "image/bmp", true},
	FormatTIFF: {imaging.TIFF, "image/tiff", true},
}

// ParseFormat accepts a format name, a file extension, or a MIME type,
// case-insensitively. "jpg", ".jpeg", "image/jpeg" and "image/jpg" all give
// FormatJPEG. An empty string gives FormatJPEG.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "image/")
	name = strings.TrimPrefix(name, ".")
	switch name {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	}
	f := Format(name)
	if _, ok := formats[f]; !ok {
		return "", errors.Wrapf(ErrEncoding, "unsupported format %q", s)
	}
	return f, nil
}

// MimeType returns the MIME type of f, or "" for an unknown format.
func (f Format) MimeType() string {
	return formats[f].mime
}

// SupportsAlpha reports whether f can store transparency. Rasters encoded to
// formats without alpha are flattened onto a background color first.
func (f Format) SupportsAlpha() bool {
	return formats[f].alpha
}

// Options control encoding of the final raster.
type Options struct {
	// Format defaults to JPEG.
	Format Format

	// Quality is the JPEG quality, 1-100. Zero means DefaultQuality.
	Quality int

	// Background fills transparent areas for formats without alpha. Nil
	// means DefaultBackground. Its alpha is ignored.
	Background color.Color

	// Size, when positive, bounds the output to Size×Size pixels, scaling
	// down with Lanczos while keeping the aspect ratio. Used by ProcessRaster.
	Size int
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = FormatJPEG
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Background == nil {
		o.Background = DefaultBackground
	}
	return o
}

// EncodedImage is the serialized output of the pipeline.
type EncodedImage struct {
	Data   []byte
	Format Format
	Width  int
	Height int
}

// MimeType returns the MIME type of the encoded data.
func (e *EncodedImage) MimeType() string {
	return e.Format.MimeType()
}

// Base64 returns the data in standard base64.
func (e *EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// DataURI returns the data as a "data:<mime>;base64," URI, the form the
// upload UI stores.
func (e *EncodedImage) DataURI() string {
	return "data:" + e.MimeType() + ";base64," + e.Base64()
}

// Encode serializes img. Formats without alpha are flattened onto
// opts.Background first; others keep transparency as stored.
//
// Encode fails with ErrEncoding for an unknown format, a quality outside
// 1-100, an empty raster, or an encoder failure. It is never retried.
func Encode(img image.Image, opts Options) (*EncodedImage, error) {
	opts = opts.withDefaults()

	f, ok := formats[opts.Format]
	if !ok {
		return nil, errors.Wrapf(ErrEncoding, "unsupported format %q", opts.Format)
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, errors.Wrapf(ErrEncoding, "quality %d outside 1-100", opts.Quality)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.Wrap(ErrEncoding, "cannot encode an empty raster")
	}

	if !f.alpha {
		img = Flatten(img, opts.Background)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f.codec, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, errors.Wrapf(ErrEncoding, "encode %s: %v", opts.Format, err)
	}

	return &EncodedImage{
		Data:   buf.Bytes(),
		Format: opts.Format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// Flatten composites img over an opaque bg and returns the result.
func Flatten(img image.Image, bg color.Color) *image.NRGBA {
	fill := color.NRGBAModel.Convert(bg).(color.NRGBA)
	fill.A = 255
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), fill)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
