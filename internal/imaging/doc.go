// Package imaging implements the rotate-and-crop pipeline that turns an
// uploaded picture into the final cropped image.
//
// A request runs four pure stages, each returning a new value:
//
//	Decode  bytes           -> *image.NRGBA
//	Rotate  raster, degrees -> *image.NRGBA (canvas grown to fit)
//	Crop    raster, rect    -> *image.NRGBA (exactly rect.Width × rect.Height)
//	Encode  raster, options -> *EncodedImage
//
// ProcessImage and ProcessRaster compose them.
//
// # Coordinate System
//
// All coordinates are 0-based pixels from the top-left corner of the raster
// they refer to, X increasing rightward and Y downward. A CropRect used after
// Rotate refers to the rotated canvas, whose size is RotatedSize(w, h, angle)
// and whose center coincides with the source's center. A rect computed
// against any other canvas size crops the wrong pixels without error, which
// is why RotatedSize is exported for callers.
//
// # Angles
//
// Angles are degrees, positive clockwise on screen. They are normalized
// modulo 360 before use, so 450, 90 and -270 are the same rotation. Exact
// quarter turns are lossless.
//
// # Background
//
// Canvas area outside the rotated source, and crop area outside the rotated
// canvas, is transparent (zero NRGBA). Encoding to a format without alpha
// (JPEG) flattens onto Options.Background, opaque black by default.
//
// # Errors
//
// Every error wraps one of ErrInvalidImage, ErrInvalidAngle,
// ErrInvalidCropRect or ErrEncoding; ErrorKind names them for transport.
// Failures are terminal for the request and no partial output is returned.
//
// # Thread Safety
//
// The stages hold no shared state and never modify their inputs, so they may
// run concurrently, including on the same source raster. ImageCache is safe
// for concurrent use.
package imaging
