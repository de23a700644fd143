package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createFramedImage creates a transparent image with an opaque red square in
// the middle half, the shape of a rotated-then-cropped avatar.
func createFramedImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := size / 4; y < 3*size/4; y++ {
		for x := size / 4; x < 3*size/4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 0, 0, 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJPEG, false},
		{"jpeg", FormatJPEG, false},
		{"JPG", FormatJPEG, false},
		{".jpeg", FormatJPEG, false},
		{"image/jpeg", FormatJPEG, false},
		{"image/jpg", FormatJPEG, false},
		{"png", FormatPNG, false},
		{"image/png", FormatPNG, false},
		{"gif", FormatGIF, false},
		{"bmp", FormatBMP, false},
		{"tif", FormatTIFF, false},
		{".TIFF", FormatTIFF, false},
		{"webp", "", true},
		{"image/svg+xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Properties(t *testing.T) {
	assert.Equal(t, "image/jpeg", FormatJPEG.MimeType())
	assert.Equal(t, "image/png", FormatPNG.MimeType())
	assert.False(t, FormatJPEG.SupportsAlpha())
	assert.True(t, FormatPNG.SupportsAlpha())
	assert.Equal(t, "", Format("webp").MimeType())
}

func TestEncode_DefaultsToJPEG(t *testing.T) {
	enc, err := Encode(createPatternImage(40, 30), Options{})
	require.NoError(t, err)

	assert.Equal(t, FormatJPEG, enc.Format)
	assert.Equal(t, "image/jpeg", enc.MimeType())
	assert.Equal(t, 40, enc.Width)
	assert.Equal(t, 30, enc.Height)

	img, err := jpeg.Decode(bytes.NewReader(enc.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 30), img.Bounds().Size())
}

func TestEncode_JPEGFlattensOnBackground(t *testing.T) {
	src := createFramedImage(40)

	tests := []struct {
		name       string
		background color.Color
		want       color.NRGBA
	}{
		{"default is black", nil, color.NRGBA{0, 0, 0, 255}},
		{"white", color.White, color.NRGBA{255, 255, 255, 255}},
		{"alpha ignored", color.NRGBA{0, 0, 255, 10}, color.NRGBA{0, 0, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(src, Options{Format: FormatJPEG, Quality: 100, Background: tt.background})
			require.NoError(t, err)

			img, err := jpeg.Decode(bytes.NewReader(enc.Data))
			require.NoError(t, err)

			corner := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA)
			assertNearColor(t, tt.want, corner, 12)

			center := color.NRGBAModel.Convert(img.At(20, 20)).(color.NRGBA)
			assertNearColor(t, color.NRGBA{255, 0, 0, 255}, center, 12)
		})
	}
}

func TestEncode_PNGKeepsAlpha(t *testing.T) {
	src := createFramedImage(40)

	enc, err := Encode(src, Options{Format: FormatPNG, Background: color.White})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(enc.Data))
	require.NoError(t, err)

	_, _, _, a := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0), a, "corner stays transparent")
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, color.NRGBAModel.Convert(img.At(20, 20)))
}

func TestEncode_AllFormatsDecode(t *testing.T) {
	src := createPatternImage(24, 16)

	for _, f := range []Format{FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF} {
		t.Run(string(f), func(t *testing.T) {
			enc, err := Encode(src, Options{Format: f})
			require.NoError(t, err)

			img, format, err := image.Decode(bytes.NewReader(enc.Data))
			require.NoError(t, err)
			assert.Equal(t, string(f), format)
			assert.Equal(t, image.Pt(24, 16), img.Bounds().Size())
		})
	}
}

func TestEncode_QualityAffectsSize(t *testing.T) {
	src := createGradientImage(64, 64, 7)

	low, err := Encode(src, Options{Quality: 10})
	require.NoError(t, err)
	high, err := Encode(src, Options{Quality: 100})
	require.NoError(t, err)

	assert.Less(t, len(low.Data), len(high.Data))
}

func TestEncode_Errors(t *testing.T) {
	src := createPatternImage(10, 10)

	tests := []struct {
		name string
		img  image.Image
		opts Options
	}{
		{"unknown format", src, Options{Format: "webp"}},
		{"quality too high", src, Options{Quality: 101}},
		{"negative quality", src, Options{Quality: -5}},
		{"empty raster", image.NewNRGBA(image.Rectangle{}), Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encode(tt.img, tt.opts)
			require.ErrorIs(t, err, ErrEncoding)
			assert.Nil(t, enc)
		})
	}
}

func TestEncodedImage_DataURI(t *testing.T) {
	enc, err := Encode(createPatternImage(8, 8), Options{Format: FormatPNG})
	require.NoError(t, err)

	uri := enc.DataURI()
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri[:30])
	assert.Equal(t, enc.Base64(), strings.TrimPrefix(uri, "data:image/png;base64,"))
}

func TestFlatten(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	src.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 0})

	got := Flatten(src, color.NRGBA{0, 0, 255, 255})
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, got.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, got.NRGBAAt(1, 0))
}

func assertNearColor(t *testing.T, want, got color.NRGBA, tolerance float64) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, tolerance, "R: want %v got %v", want, got)
	assert.InDelta(t, want.G, got.G, tolerance, "G: want %v got %v", want, got)
	assert.InDelta(t, want.B, got.B, tolerance, "B: want %v got %v", want, got)
	assert.InDelta(t, want.A, got.A, tolerance, "A: want %v got %v", want, got)
}
