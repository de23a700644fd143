package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNG(t *testing.T, enc *EncodedImage) *image.NRGBA {
	t.Helper()
	require.Equal(t, FormatPNG, enc.Format)
	img, err := png.Decode(bytes.NewReader(enc.Data))
	require.NoError(t, err)
	n, ok := img.(*image.NRGBA)
	if !ok {
		// opaque output comes back as RGBA; compare on NRGBA
		n = image.NewNRGBA(img.Bounds())
		for y := 0; y < img.Bounds().Dy(); y++ {
			for x := 0; x < img.Bounds().Dx(); x++ {
				n.Set(x, y, img.At(x, y))
			}
		}
	}
	return n
}

func TestProcess_QuarterTurnScenario(t *testing.T) {
	// 400x300 opaque source turned 90 degrees gives a 300x400 canvas; a
	// 200x200 crop at (50,100) lies inside it.
	src := createGradientImage(400, 300, 1)

	w, h := RotatedSize(400, 300, 90)
	require.Equal(t, 300, w)
	require.Equal(t, 400, h)

	rotated, err := Rotate(src, 90)
	require.NoError(t, err)

	rect := CropRect{X: 50, Y: 100, Width: 200, Height: 200}
	enc, err := ProcessRaster(src, 90, rect, Options{Format: FormatPNG})
	require.NoError(t, err)
	assert.Equal(t, 200, enc.Width)
	assert.Equal(t, 200, enc.Height)

	out := decodePNG(t, enc)
	require.Equal(t, image.Pt(200, 200), out.Rect.Size())
	assert.Equal(t, rotated.NRGBAAt(50, 100), out.NRGBAAt(0, 0))
	assert.Equal(t, rotated.NRGBAAt(249, 299), out.NRGBAAt(199, 199))
}

func TestProcess_FortyFiveScenario(t *testing.T) {
	src := createPatternImage(100, 100)

	rotated, err := Rotate(src, 45)
	require.NoError(t, err)
	w, h := rotated.Rect.Dx(), rotated.Rect.Dy()
	assert.InDelta(t, 142, w, 1)
	assert.InDelta(t, 142, h, 1)

	cropped, err := Crop(rotated, CropRect{Width: w, Height: h})
	require.NoError(t, err)
	assert.Equal(t, rotated.Pix, cropped.Pix, "full-canvas crop equals the rotated raster")

	enc, err := ProcessRaster(src, 45, CropRect{Width: w, Height: h}, Options{Format: FormatPNG})
	require.NoError(t, err)
	assert.Equal(t, rotated.Pix, decodePNG(t, enc).Pix)
}

func TestProcessImage_FromBytes(t *testing.T) {
	data := encodePNG(t, createPatternImage(400, 300))

	enc, err := ProcessImage(data, 90, CropRect{X: 50, Y: 100, Width: 200, Height: 200}, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, enc.Format)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(enc.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestProcess_Size(t *testing.T) {
	src := createPatternImage(400, 300)

	enc, err := ProcessRaster(src, 0, CropRect{Width: 200, Height: 200}, Options{Format: FormatPNG, Size: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, enc.Width)
	assert.Equal(t, 64, enc.Height)

	// never scales up
	enc, err = ProcessRaster(src, 0, CropRect{Width: 32, Height: 32}, Options{Format: FormatPNG, Size: 64})
	require.NoError(t, err)
	assert.Equal(t, 32, enc.Width)
}

func TestProcess_Errors(t *testing.T) {
	valid := encodePNG(t, createPatternImage(20, 20))

	tests := []struct {
		name   string
		source []byte
		angle  float64
		rect   CropRect
		opts   Options
		want   error
	}{
		{"zero crop width", valid, 0, CropRect{Width: 0, Height: 10}, Options{}, ErrInvalidCropRect},
		{"undecodable source", []byte("garbage"), 0, CropRect{Width: 10, Height: 10}, Options{}, ErrInvalidImage},
		{"empty source", nil, 0, CropRect{Width: 10, Height: 10}, Options{}, ErrInvalidImage},
		{"bad format", valid, 0, CropRect{Width: 10, Height: 10}, Options{Format: "webp"}, ErrEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := ProcessImage(tt.source, tt.angle, tt.rect, tt.opts)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, enc)
		})
	}
}

func TestProcessRaster_ZeroWidthSource(t *testing.T) {
	_, err := ProcessRaster(image.NewNRGBA(image.Rect(0, 0, 0, 10)), 0, CropRect{Width: 5, Height: 5}, Options{})
	require.ErrorIs(t, err, ErrInvalidImage)
}

// The crop rect must be in the rotated canvas's space. These tests pin that
// contract down, since a rect computed against another canvas size crops
// the wrong pixels without any error.

func TestCoordinateAlignment_RotatedSpaceMapsBackToSource(t *testing.T) {
	const w, h = 400, 300
	src := createGradientImage(w, h, 1)

	rotated, err := Rotate(src, 90)
	require.NoError(t, err)
	cropped, err := Crop(rotated, CropRect{X: 50, Y: 100, Width: 200, Height: 200})
	require.NoError(t, err)

	// clockwise quarter turn: rotated (rx, ry) is source (ry, h-1-rx)
	for _, p := range []image.Point{{0, 0}, {199, 0}, {0, 199}, {123, 45}} {
		rx, ry := 50+p.X, 100+p.Y
		assert.Equal(t, src.NRGBAAt(ry, h-1-rx), cropped.NRGBAAt(p.X, p.Y), "output %v", p)
	}
}

func TestCoordinateAlignment_CenteredCropKeepsCenter(t *testing.T) {
	// A centered crop computed from RotatedSize keeps the source's center
	// pixel at the crop's center for any angle.
	src := createInMemoryImage(101, 61, color.NRGBA{0, 0, 255, 255})
	src.SetNRGBA(50, 30, color.NRGBA{255, 0, 0, 255})
	for _, p := range []image.Point{{49, 30}, {51, 30}, {50, 29}, {50, 31}} {
		src.SetNRGBA(p.X, p.Y, color.NRGBA{255, 0, 0, 255})
	}

	for _, angle := range []float64{0, 90, 180, 270, 30, -60} {
		w, h := RotatedSize(101, 61, angle)
		const size = 21
		rect := CropRect{
			X:      float64(w)/2 - size/2.0,
			Y:      float64(h)/2 - size/2.0,
			Width:  size,
			Height: size,
		}

		rotated, err := Rotate(src, angle)
		require.NoError(t, err)
		cropped, err := Crop(rotated, rect)
		require.NoError(t, err)

		got := cropped.NRGBAAt(size/2, size/2)
		assert.Greater(t, got.R, uint8(200), "angle %v: center should be the red marker, got %v", angle, got)
	}
}

func TestCoordinateAlignment_UnrotatedSpaceIsWrong(t *testing.T) {
	// Centering the same crop with the unrotated dimensions lands elsewhere.
	src := createGradientImage(400, 300, 1)
	rotated, err := Rotate(src, 90)
	require.NoError(t, err)

	aligned, err := Crop(rotated, CropRect{X: (300 - 200) / 2, Y: (400 - 200) / 2, Width: 200, Height: 200})
	require.NoError(t, err)
	misaligned, err := Crop(rotated, CropRect{X: (400 - 200) / 2, Y: (300 - 200) / 2, Width: 200, Height: 200})
	require.NoError(t, err)

	assert.NotEqual(t, aligned.Pix, misaligned.Pix)
	assert.Equal(t, src.NRGBAAt(100, 249), aligned.NRGBAAt(0, 0))
}

func TestProcess_ConcurrentCallsAgree(t *testing.T) {
	src := createGradientImage(120, 90, 2)
	rect := CropRect{X: 10, Y: 10, Width: 80, Height: 80}

	want, err := ProcessRaster(src, 33, rect, Options{Format: FormatPNG})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*EncodedImage, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ProcessRaster(src, 33, rect, Options{Format: FormatPNG})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want.Data, results[i].Data, "result %d", i)
	}
}
