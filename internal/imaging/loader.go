package imaging

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/disintegration/imaging"
	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// Decode decodes image bytes into a fresh NRGBA raster rooted at (0,0) and
// returns it with the registered format name ("jpeg", "png", ...).
//
// EXIF orientation is applied, matching how browsers draw an uploaded photo,
// so crop coordinates picked on screen line up with the decoded pixels.
//
// Decode fails with ErrInvalidImage for empty, undecodable, or zero-sized
// data, and for a header declaring more than MaxPixels, which is checked
// before any pixels are decoded.
func Decode(data []byte) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", errors.Wrap(ErrInvalidImage, "no image data")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidImage, "decode config: %v", err)
	}
	if cfg.Width > 0 && cfg.Height > MaxPixels/cfg.Width {
		return nil, "", errors.Wrapf(ErrInvalidImage, "%s is %dx%d, limit is %d pixels", format, cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidImage, "decode %s: %v", format, err)
	}

	raster := imaging.Clone(img)
	if raster.Rect.Empty() {
		return nil, "", errors.Wrapf(ErrInvalidImage, "decoded %s has no pixels", format)
	}
	return raster, format, nil
}

// Source is a decoded source image together with what was known about its
// encoded form.
//
// Image is shared by every holder of the Source and must be treated as
// read-only; the pipeline never writes to its inputs.
type Source struct {
	Image     *image.NRGBA
	Format    string
	SizeBytes int64
}

// ImageCache keeps decoded sources so that repeated edits of the same upload
// (a new angle, a new crop) skip decoding.
//
// Sources loaded from disk are keyed by path and reloaded when the file's
// size or modification time changes; inline data is keyed by the xxhash of
// its bytes. Entries expire after the TTL given to NewImageCache.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	store *cache.Cache
}

// NewImageCache returns an empty cache whose entries live for ttl. A ttl of
// zero or less keeps entries until evicted.
func NewImageCache(ttl time.Duration) *ImageCache {
	if ttl <= 0 {
		return &ImageCache{store: cache.New(cache.NoExpiration, 0)}
	}
	return &ImageCache{store: cache.New(ttl, 2*ttl)}
}

func pathKey(path string) string {
	return "path:" + path
}

// fileEntry is a path entry together with the file state it was read from.
type fileEntry struct {
	src     *Source
	size    int64
	modTime time.Time
}

func dataKey(data []byte) string {
	return "xxh:" + strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Load returns the decoded image at path, reading and decoding it on a miss.
//
// The cache uses the exact path string, so a relative and an absolute path to
// the same file are separate entries. A hit is only used while the file's
// size and modification time match those seen when it was read.
func (c *ImageCache) Load(path string) (*Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidImage, "stat %s: %v", path, err)
	}
	if v, ok := c.store.Get(pathKey(path)); ok {
		e := v.(*fileEntry)
		if e.size == fi.Size() && e.modTime.Equal(fi.ModTime()) {
			return e.src, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidImage, "read %s: %v", path, err)
	}

	src, err := decodeSource(data)
	if err != nil {
		c.store.Delete(pathKey(path))
		return nil, err
	}
	c.store.SetDefault(pathKey(path), &fileEntry{src: src, size: fi.Size(), modTime: fi.ModTime()})
	return src, nil
}

// Decode returns the decoded form of data, decoding it on a miss.
func (c *ImageCache) Decode(data []byte) (*Source, error) {
	key := dataKey(data)
	if v, ok := c.store.Get(key); ok {
		return v.(*Source), nil
	}

	src, err := decodeSource(data)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(key, src)
	return src, nil
}

func decodeSource(data []byte) (*Source, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &Source{Image: img, Format: format, SizeBytes: int64(len(data))}, nil
}

// Evict removes the entry loaded from path, if any.
func (c *ImageCache) Evict(path string) {
	c.store.Delete(pathKey(path))
}

// EvictData removes the entry decoded from data, if any.
func (c *ImageCache) EvictData(data []byte) {
	c.store.Delete(dataKey(data))
}

// Clear removes all entries.
func (c *ImageCache) Clear() {
	c.store.Flush()
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *ImageCache) Len() int {
	return c.store.ItemCount()
}

// ImageInfo describes a decoded source.
type ImageInfo struct {
	// Width and Height are in pixels, after EXIF orientation.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoder that read the data: "png", "jpeg", "gif",
	// "bmp" or "tiff".
	Format string `json:"format"`

	// HasAlpha is true when any pixel is not fully opaque.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the length of the encoded source.
	SizeBytes int64 `json:"size_bytes"`
}

// Info returns metadata about src.
func (src *Source) Info() *ImageInfo {
	b := src.Image.Bounds()
	return &ImageInfo{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    src.Format,
		HasAlpha:  !src.Image.Opaque(),
		SizeBytes: src.SizeBytes,
	}
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Dimensions returns the width and height of src.
func (src *Source) Dimensions() *DimensionsResult {
	b := src.Image.Bounds()
	return &DimensionsResult{Width: b.Dx(), Height: b.Dy()}
}
