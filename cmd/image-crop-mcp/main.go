package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-crop-mcp/internal/config"
	"github.com/ironsheep/image-crop-mcp/internal/imaging"
	"github.com/ironsheep/image-crop-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("image-crop-mcp - MCP server that rotates and crops images")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  image-crop-mcp               Serve MCP over stdin/stdout")
	fmt.Println("  image-crop-mcp process ...   Rotate, crop and encode one image (see process --help)")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  IMAGE_CROP_LOG_LEVEL=info             debug, info, warn, error")
	fmt.Println("  IMAGE_CROP_MAX_UPLOAD_BYTES=5242880   Largest accepted source")
	fmt.Println("  IMAGE_CROP_ALLOWED_TYPES=image/jpeg,image/png")
	fmt.Println("  IMAGE_CROP_OUTPUT_FORMAT=jpeg         jpeg, png, gif, bmp, tiff")
	fmt.Println("  IMAGE_CROP_JPEG_QUALITY=92")
	fmt.Println("  IMAGE_CROP_BACKGROUND=#000000         Fill for transparent areas in JPEG output")
	fmt.Println("  IMAGE_CROP_CACHE_TTL=10m              How long decoded sources are kept")
	fmt.Println("  IMAGE_CROP_METRICS_ADDR=              Serve Prometheus metrics, e.g. :9100")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

// newLogger writes to stderr; stdout is reserved for the MCP protocol.
func newLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return log
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-crop-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "process":
			log := newLogger(logrus.InfoLevel)
			if err := runProcess(os.Args[2:], os.Stdout, log); err != nil {
				log.WithField("kind", imaging.ErrorKind(err)).WithError(err).Error("process failed")
				if errors.Is(err, errUsage) {
					os.Exit(2)
				}
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := config.Load(config.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-crop-mcp: invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := newLogger(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
	}).Debug("image-crop-mcp starting")

	server.Version = Version
	srv := server.New(cfg, log)

	if cfg.MetricsAddr != "" {
		go func() {
			log.Infof("serving metrics on %s/metrics", cfg.MetricsAddr)
			mux := http.NewServeMux()
			mux.Handle("/metrics", srv.Metrics().Handler())
			err := http.ListenAndServe(cfg.MetricsAddr, mux)
			log.WithError(err).Error("metrics server exited")
		}()
	}

	if err := srv.Run(); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
