package server

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-crop-mcp/internal/imaging"
)

// Errors raised by the server itself rather than the pipeline.
var (
	errUnknownTool      = errors.New("unknown tool")
	errInvalidArguments = errors.New("invalid arguments")
)

// Error kinds reported for server-side failures.
const (
	kindUnknownTool      = "unknown_tool"
	kindInvalidArguments = "invalid_arguments"
	kindInternal         = "internal"
)

// errorKind names err for the JSON-RPC error data and the outcome label.
func errorKind(err error) string {
	if kind := imaging.ErrorKind(err); kind != "" {
		return kind
	}
	switch {
	case errors.Is(err, errUnknownTool):
		return kindUnknownTool
	case errors.Is(err, errInvalidArguments):
		return kindInvalidArguments
	default:
		return kindInternal
	}
}

// ToolError is the data attached to a failed tool call.
type ToolError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_process").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// and a ToolError as data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	elapsed := time.Since(start)

	label := params.Name
	if errors.Is(err, errUnknownTool) {
		label = "unknown"
	}
	entry := s.log.WithFields(logrus.Fields{"tool": params.Name, "duration": elapsed})

	if err != nil {
		kind := errorKind(err)
		s.metrics.observe(label, kind, elapsed)
		entry.WithField("kind", kind).WithError(err).Warn("tool call failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", ToolError{Kind: kind, Detail: err.Error()})
	}

	s.metrics.observe(label, outcomeOK, elapsed)
	entry.Debug("tool call")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Validates and decodes the source image, through the cache
//  3. Merges output options with the configured defaults
//  4. Calls the imaging pipeline
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_rotated_bounds":
		return s.handleImageRotatedBounds(args)

	// Transform stages
	case "image_rotate":
		return s.handleImageRotate(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_process":
		return s.handleImageProcess(args)

	// Inspection
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	default:
		return nil, errors.Wrapf(errUnknownTool, "%q", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments into v. Missing arguments decode as
// an empty object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return errors.Wrapf(errInvalidArguments, "%v", err)
	}
	return nil
}

// encodeArgs are the output options a caller may override per call.
type encodeArgs struct {
	Format     string `json:"format,omitempty"`
	Quality    int    `json:"quality,omitempty"`
	Background string `json:"background,omitempty"`
}

// options merges a over the configured encoder defaults.
func (s *Server) options(a encodeArgs) (imaging.Options, error) {
	opts := s.cfg.EncodeOptions()
	if a.Format != "" {
		f, err := imaging.ParseFormat(a.Format)
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}
	if a.Quality != 0 {
		opts.Quality = a.Quality
	}
	if a.Background != "" {
		bg, err := imaging.ParseBackground(a.Background)
		if err != nil {
			return opts, err
		}
		opts.Background = bg
	}
	return opts, nil
}

// EncodedResult is an encoded image returned to the client.
type EncodedResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int    `json:"size_bytes"`
	ImageBase64 string `json:"image_base64"`
	DataURI     string `json:"data_uri"`
}

func newEncodedResult(enc *imaging.EncodedImage) *EncodedResult {
	return &EncodedResult{
		Width:       enc.Width,
		Height:      enc.Height,
		Format:      string(enc.Format),
		MimeType:    enc.MimeType(),
		SizeBytes:   len(enc.Data),
		ImageBase64: enc.Base64(),
		DataURI:     enc.DataURI(),
	}
}

// === Source Information Handlers ===

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a sourceArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := s.loadSource(a)
	if err != nil {
		return nil, err
	}
	return src.Info(), nil
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a sourceArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := s.loadSource(a)
	if err != nil {
		return nil, err
	}
	return src.Dimensions(), nil
}

type imageRotatedBoundsArgs struct {
	sourceArgs
	Angle float64 `json:"angle"`
}

// RotatedBoundsResult is the coordinate space of a rotated source.
type RotatedBoundsResult struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Angle        float64 `json:"angle"`
	SourceWidth  int     `json:"source_width"`
	SourceHeight int     `json:"source_height"`
}

func (s *Server) handleImageRotatedBounds(args json.RawMessage) (interface{}, error) {
	var a imageRotatedBoundsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	dims := src.Dimensions()
	w, h := imaging.RotatedSize(dims.Width, dims.Height, a.Angle)
	return &RotatedBoundsResult{
		Width:        w,
		Height:       h,
		Angle:        imaging.NormalizeAngle(a.Angle),
		SourceWidth:  dims.Width,
		SourceHeight: dims.Height,
	}, nil
}

// === Transform Handlers ===

type imageRotateArgs struct {
	sourceArgs
	encodeArgs
	Angle float64 `json:"angle"`
}

func (s *Server) handleImageRotate(args json.RawMessage) (interface{}, error) {
	var a imageRotateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a.encodeArgs)
	if err != nil {
		return nil, err
	}
	src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	rotated, err := imaging.Rotate(src.Image, a.Angle)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.Encode(rotated, opts)
	if err != nil {
		return nil, err
	}
	return newEncodedResult(enc), nil
}

type imageCropArgs struct {
	sourceArgs
	encodeArgs
	imaging.CropRect
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.CropRect.Validate(); err != nil {
		return nil, err
	}
	opts, err := s.options(a.encodeArgs)
	if err != nil {
		return nil, err
	}
	src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	cropped, err := imaging.Crop(src.Image, a.CropRect)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.Encode(cropped, opts)
	if err != nil {
		return nil, err
	}
	return newEncodedResult(enc), nil
}

type imageProcessArgs struct {
	sourceArgs
	encodeArgs
	Angle float64           `json:"angle"`
	Crop  *imaging.CropRect `json:"crop"`
	Size  int               `json:"size,omitempty"`
}

func (s *Server) handleImageProcess(args json.RawMessage) (interface{}, error) {
	var a imageProcessArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Crop == nil {
		return nil, errors.Wrap(imaging.ErrInvalidCropRect, "crop is required")
	}
	if a.Size < 0 {
		return nil, errors.Wrapf(errInvalidArguments, "size %d must not be negative", a.Size)
	}
	opts, err := s.options(a.encodeArgs)
	if err != nil {
		return nil, err
	}
	opts.Size = a.Size

	src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	enc, err := imaging.ProcessRaster(src.Image, a.Angle, *a.Crop, opts)
	if err != nil {
		return nil, err
	}
	return newEncodedResult(enc), nil
}

// === Inspection Handlers ===

type imageSampleColorArgs struct {
	sourceArgs
	Angle float64 `json:"angle"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := s.loadSource(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	img := src.Image
	if imaging.NormalizeAngle(a.Angle) != 0 {
		if img, err = imaging.Rotate(img, a.Angle); err != nil {
			return nil, err
		}
	}

	c, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, errors.Wrap(errInvalidArguments, err.Error())
	}
	return c, nil
}
