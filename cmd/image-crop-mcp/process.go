package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ironsheep/image-crop-mcp/internal/config"
	"github.com/ironsheep/image-crop-mcp/internal/imaging"
)

// errUsage marks command-line mistakes, as opposed to pipeline failures.
var errUsage = errors.New("usage")

// runProcess implements the process subcommand: read one image, rotate it,
// crop a rectangle given in the rotated canvas's coordinates, and write the
// encoded result. The output file is only written once encoding succeeded.
//
// An --out of "-" writes the encoded bytes to stdout.
func runProcess(args []string, stdout io.Writer, log *logrus.Logger) error {
	fs := pflag.NewFlagSet("process", pflag.ContinueOnError)
	fs.SetOutput(log.Out)
	in := fs.String("in", "", "source image `path`")
	out := fs.String("out", "", "output `path`, or - for stdout")
	angle := fs.Float64("angle", 0, "clockwise rotation in `degrees`")
	cropSpec := fs.String("crop", "", "crop rectangle `x,y,width,height` in the rotated canvas's pixel space")
	size := fs.Int("size", 0, "scale the crop down to fit `n`×n pixels")
	fs.String("format", "", "output `format`: jpeg, png, gif, bmp, tiff (default: from --out, then IMAGE_CROP_OUTPUT_FORMAT)")
	fs.Int("quality", imaging.DefaultQuality, "JPEG `quality` 1-100")
	fs.String("background", "", "`#RRGGBB` fill for transparent areas in formats without alpha")
	fs.String("log-level", "", "log `level`")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errors.Wrap(errUsage, err.Error())
	}

	v := config.New()
	for key, flag := range map[string]string{
		config.KeyOutputFormat: "format",
		config.KeyJPEGQuality:  "quality",
		config.KeyBackground:   "background",
		config.KeyLogLevel:     "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return errors.Wrapf(err, "bind --%s", flag)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return errors.Wrap(errUsage, err.Error())
	}
	log.SetLevel(cfg.LogLevel)

	if *in == "" || *out == "" || *cropSpec == "" {
		return errors.Wrap(errUsage, "--in, --out and --crop are required")
	}
	if *size < 0 {
		return errors.Wrapf(errUsage, "--size %d must not be negative", *size)
	}
	rect, err := imaging.ParseCropRect(*cropSpec)
	if err != nil {
		return err
	}

	opts := cfg.EncodeOptions()
	opts.Size = *size
	if ext := filepath.Ext(*out); !fs.Changed("format") && ext != "" && *out != "-" {
		f, err := imaging.ParseFormat(ext)
		if err != nil {
			return err
		}
		opts.Format = f
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return errors.Wrapf(imaging.ErrInvalidImage, "read %s: %v", *in, err)
	}

	start := time.Now()
	enc, err := imaging.ProcessImage(data, *angle, rect, opts)
	if err != nil {
		log.WithField("kind", imaging.ErrorKind(err)).Debug("pipeline failed")
		return err
	}

	if *out == "-" {
		_, err = stdout.Write(enc.Data)
	} else {
		err = os.WriteFile(*out, enc.Data, 0o644)
	}
	if err != nil {
		return errors.Wrapf(err, "write %s", *out)
	}

	log.WithFields(logrus.Fields{
		"in":       *in,
		"out":      *out,
		"angle":    *angle,
		"crop":     rect.String(),
		"format":   enc.Format,
		"width":    enc.Width,
		"height":   enc.Height,
		"bytes":    len(enc.Data),
		"duration": time.Since(start),
	}).Info("processed")
	return nil
}
