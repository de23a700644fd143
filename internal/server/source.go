package server

import (
	"encoding/base64"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/ironsheep/image-crop-mcp/internal/imaging"
)

// sourceArgs identifies the image a tool works on. Exactly one field is set.
type sourceArgs struct {
	Path string `json:"path,omitempty"`
	Data string `json:"data,omitempty"`
}

// loadSource validates and decodes the image named by a. Type and size are
// checked before decoding; the type is sniffed from content, never trusted
// from a file name or data URI header.
func (s *Server) loadSource(a sourceArgs) (*imaging.Source, error) {
	switch {
	case a.Path != "" && a.Data != "":
		return nil, errors.Wrap(imaging.ErrInvalidImage, "give either path or data, not both")
	case a.Path != "":
		return s.loadPath(a.Path)
	case a.Data != "":
		return s.loadData(a.Data)
	default:
		return nil, errors.Wrap(imaging.ErrInvalidImage, "no image given: set path or data")
	}
}

func (s *Server) loadPath(path string) (*imaging.Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(imaging.ErrInvalidImage, "stat %s: %v", path, err)
	}
	if fi.IsDir() {
		return nil, errors.Wrapf(imaging.ErrInvalidImage, "%s is a directory", path)
	}
	if err := s.checkSize(fi.Size()); err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, errors.Wrapf(imaging.ErrInvalidImage, "sniff %s: %v", path, err)
	}
	if err := s.checkType(mt); err != nil {
		return nil, err
	}

	return s.cache.Load(path)
}

func (s *Server) loadData(encoded string) (*imaging.Source, error) {
	data, err := decodeData(encoded)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := s.checkType(mimetype.Detect(data)); err != nil {
		return nil, err
	}
	return s.cache.Decode(data)
}

func (s *Server) checkSize(n int64) error {
	if n == 0 {
		return errors.Wrap(imaging.ErrInvalidImage, "image is empty")
	}
	if n > s.cfg.MaxUploadBytes {
		return errors.Wrapf(imaging.ErrInvalidImage, "image is %d bytes, limit is %d", n, s.cfg.MaxUploadBytes)
	}
	return nil
}

func (s *Server) checkType(mt *mimetype.MIME) error {
	if !s.cfg.Allowed(mt.String()) {
		return errors.Wrapf(imaging.ErrInvalidImage, "type %s not allowed, want one of %s",
			mt.String(), strings.Join(s.cfg.AllowedTypes, ", "))
	}
	return nil
}

// decodeData accepts standard base64, with or without padding, or a
// "data:<mime>;base64,<payload>" URI.
func decodeData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, errors.Wrap(imaging.ErrInvalidImage, "data URI has no payload")
		}
		if !strings.HasSuffix(s[:comma], ";base64") {
			return nil, errors.Wrap(imaging.ErrInvalidImage, "data URI must be base64-encoded")
		}
		s = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, errors.Wrapf(imaging.ErrInvalidImage, "base64: %v", err)
	}
	return data, nil
}
