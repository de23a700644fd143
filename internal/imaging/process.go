package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// ProcessImage decodes source, rotates it by angle degrees, crops rect out
// of the rotated canvas, and encodes the result.
//
// rect is in the rotated canvas's pixel space; see RotatedSize. The returned
// error wraps ErrInvalidImage, ErrInvalidAngle, ErrInvalidCropRect or
// ErrEncoding. On error no output is returned.
func ProcessImage(source []byte, angle float64, rect CropRect, opts Options) (*EncodedImage, error) {
	src, _, err := Decode(source)
	if err != nil {
		return nil, err
	}
	return ProcessRaster(src, angle, rect, opts)
}

// ProcessRaster is ProcessImage for an already decoded source. src is not
// modified, so a cached raster can be processed any number of times.
func ProcessRaster(src image.Image, angle float64, rect CropRect, opts Options) (*EncodedImage, error) {
	// Cheap checks first so a bad request never pays for a rotation.
	if err := rect.Validate(); err != nil {
		return nil, err
	}

	rotated, err := Rotate(src, angle)
	if err != nil {
		return nil, err
	}

	cropped, err := Crop(rotated, rect)
	if err != nil {
		return nil, err
	}

	var out image.Image = cropped
	if opts.Size > 0 {
		out = imaging.Fit(cropped, opts.Size, opts.Size, imaging.Lanczos)
	}

	return Encode(out, opts)
}
