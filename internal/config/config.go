package config

import (
	"image/color"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ironsheep/image-crop-mcp/internal/imaging"
)

// EnvPrefix is prepended to every key when read from the environment, so
// "log_level" is read from IMAGE_CROP_LOG_LEVEL.
const EnvPrefix = "IMAGE_CROP"

// Configuration keys.
const (
	KeyLogLevel       = "log_level"
	KeyMaxUploadBytes = "max_upload_bytes"
	KeyAllowedTypes   = "allowed_types"
	KeyOutputFormat   = "output_format"
	KeyJPEGQuality    = "jpeg_quality"
	KeyBackground     = "background"
	KeyCacheTTL       = "cache_ttl"
	KeyMetricsAddr    = "metrics_addr"
)

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel logrus.Level

	// MaxUploadBytes is the largest inline or on-disk source accepted.
	MaxUploadBytes int64

	// AllowedTypes is the MIME whitelist for sources, lower-cased.
	AllowedTypes []string

	OutputFormat imaging.Format
	JPEGQuality  int
	Background   color.NRGBA

	// CacheTTL is how long a decoded source is kept. Zero keeps it until
	// the process exits.
	CacheTTL time.Duration

	// MetricsAddr, when set, is the listen address for /metrics.
	MetricsAddr string
}

// New returns a viper instance with defaults set and environment lookup
// enabled. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMaxUploadBytes, 5*1024*1024)
	v.SetDefault(KeyAllowedTypes, "image/jpeg,image/png")
	v.SetDefault(KeyOutputFormat, string(imaging.FormatJPEG))
	v.SetDefault(KeyJPEGQuality, imaging.DefaultQuality)
	v.SetDefault(KeyBackground, "#000000")
	v.SetDefault(KeyCacheTTL, "10m")
	v.SetDefault(KeyMetricsAddr, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	level, err := logrus.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, errors.Wrap(err, KeyLogLevel)
	}

	maxBytes := v.GetInt64(KeyMaxUploadBytes)
	if maxBytes <= 0 {
		return nil, errors.Errorf("%s must be positive, got %q", KeyMaxUploadBytes, v.GetString(KeyMaxUploadBytes))
	}

	types := splitList(v.GetString(KeyAllowedTypes))
	if len(types) == 0 {
		return nil, errors.Errorf("%s must name at least one MIME type", KeyAllowedTypes)
	}

	format, err := imaging.ParseFormat(v.GetString(KeyOutputFormat))
	if err != nil {
		return nil, errors.Wrap(err, KeyOutputFormat)
	}

	quality := v.GetInt(KeyJPEGQuality)
	if quality < 1 || quality > 100 {
		return nil, errors.Errorf("%s must be 1-100, got %q", KeyJPEGQuality, v.GetString(KeyJPEGQuality))
	}

	bg, err := imaging.ParseBackground(v.GetString(KeyBackground))
	if err != nil {
		return nil, errors.Wrap(err, KeyBackground)
	}

	ttl := v.GetDuration(KeyCacheTTL)
	if ttl < 0 {
		return nil, errors.Errorf("%s must not be negative, got %s", KeyCacheTTL, ttl)
	}

	return &Config{
		LogLevel:       level,
		MaxUploadBytes: maxBytes,
		AllowedTypes:   types,
		OutputFormat:   format,
		JPEGQuality:    quality,
		Background:     bg,
		CacheTTL:       ttl,
		MetricsAddr:    strings.TrimSpace(v.GetString(KeyMetricsAddr)),
	}, nil
}

// Default returns the configuration with every key at its default, ignoring
// the environment.
func Default() *Config {
	return &Config{
		LogLevel:       logrus.InfoLevel,
		MaxUploadBytes: 5 * 1024 * 1024,
		AllowedTypes:   []string{"image/jpeg", "image/png"},
		OutputFormat:   imaging.FormatJPEG,
		JPEGQuality:    imaging.DefaultQuality,
		Background:     imaging.DefaultBackground,
		CacheTTL:       10 * time.Minute,
	}
}

// Allowed reports whether mime is in the whitelist. Parameters such as
// "; charset=binary" are ignored.
func (c *Config) Allowed(mime string) bool {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, t := range c.AllowedTypes {
		if t == mime {
			return true
		}
	}
	return false
}

// EncodeOptions returns the configured encoder defaults.
func (c *Config) EncodeOptions() imaging.Options {
	return imaging.Options{
		Format:     c.OutputFormat,
		Quality:    c.JPEGQuality,
		Background: c.Background,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
