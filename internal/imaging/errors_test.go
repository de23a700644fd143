package imaging

import (
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"invalid image", ErrInvalidImage, KindInvalidImage},
		{"wrapped invalid image", errors.Wrap(ErrInvalidImage, "decode"), KindInvalidImage},
		{"crop rect", errors.Wrapf(ErrInvalidCropRect, "size %d", 0), KindInvalidCropRect},
		{"encoding", fmt.Errorf("outer: %w", errors.Wrap(ErrEncoding, "inner")), KindEncoding},
		{"angle", ErrInvalidAngle, KindInvalidAngle},
		{"unrelated", io.EOF, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
