package imaging

import (
	"github.com/pkg/errors"
)

// Error kinds returned by the pipeline. Callers test for them with errors.Is;
// every error returned from this package wraps exactly one of them.
var (
	// ErrInvalidImage reports a malformed or undecodable source, or a raster
	// with a non-positive width or height.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidCropRect reports a crop rectangle with a non-positive width or
	// height, or a non-finite offset.
	ErrInvalidCropRect = errors.New("invalid crop rect")

	// ErrEncoding reports a serialization failure, including unsupported
	// output formats and out-of-range quality settings.
	ErrEncoding = errors.New("encoding error")

	// ErrInvalidAngle reports a NaN or infinite rotation angle.
	ErrInvalidAngle = errors.New("invalid rotation angle")
)

// Kind names used when an error crosses a process boundary.
const (
	KindInvalidImage    = "invalid_image"
	KindInvalidCropRect = "invalid_crop_rect"
	KindEncoding        = "encoding_error"
	KindInvalidAngle    = "invalid_angle"
)

// ErrorKind maps err to one of the Kind constants, or "" when err does not
// come from the pipeline.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidImage):
		return KindInvalidImage
	case errors.Is(err, ErrInvalidCropRect):
		return KindInvalidCropRect
	case errors.Is(err, ErrEncoding):
		return KindEncoding
	case errors.Is(err, ErrInvalidAngle):
		return KindInvalidAngle
	default:
		return ""
	}
}
