package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// sourceProperties are accepted by every tool. Exactly one must be set.
func sourceProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to a JPEG or PNG file. Give either path or data.",
		},
		"data": map[string]interface{}{
			"type":        "string",
			"description": "Image bytes as standard base64 or a data:image/...;base64, URI. Give either path or data.",
		},
	}
}

// schema builds an object schema from the source properties plus extra.
func schema(extra map[string]interface{}, required ...string) map[string]interface{} {
	props := sourceProperties()
	for k, v := range extra {
		props[k] = v
	}
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func angleProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
		"default":     0,
	}
}

// encodeProperties are the output options shared by tools that return an
// encoded image.
func encodeProperties() map[string]interface{} {
	return map[string]interface{}{
		"format": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"jpeg", "png", "gif", "bmp", "tiff"},
			"description": "Output format. Defaults to the server's configured format (jpeg unless changed).",
		},
		"quality": map[string]interface{}{
			"type":        "integer",
			"minimum":     1,
			"maximum":     100,
			"description": "JPEG quality. Defaults to 92.",
		},
		"background": map[string]interface{}{
			"type":        "string",
			"description": "Fill for transparent areas when the format has no alpha, as #RRGGBB or #RGB. Defaults to black.",
		},
	}
}

func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func integer(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func number(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source information
		{
			Name:        "image_load",
			Description: "Decode an image and return its dimensions, format, alpha and encoded size. The decoded image is cached for later calls with the same source.",
			InputSchema: schema(nil),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image after EXIF orientation.",
			InputSchema: schema(nil),
		},
		{
			Name:        "image_rotated_bounds",
			Description: "Get the size of the canvas an image occupies after rotation. Crop rectangles for image_process are in this canvas's pixel space, with (0,0) at its top-left.",
			InputSchema: schema(map[string]interface{}{
				"angle": angleProperty("Rotation in degrees, clockwise. Any value; normalized modulo 360."),
			}, "angle"),
		},

		// Transform stages
		{
			Name:        "image_rotate",
			Description: "Rotate an image clockwise about its center onto a canvas large enough to hold all of it, and return it encoded as base64. Uncovered corners are transparent, or the background color for formats without alpha.",
			InputSchema: schema(merge(map[string]interface{}{
				"angle": angleProperty("Rotation in degrees, clockwise."),
			}, encodeProperties()), "angle"),
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangle out of an unrotated image and return it encoded as base64. Area outside the image is transparent.",
			InputSchema: schema(merge(map[string]interface{}{
				"x":      number("Left edge; fractional values round half away from zero"),
				"y":      number("Top edge; fractional values round half away from zero"),
				"width":  integer("Output width in pixels (> 0)"),
				"height": integer("Output height in pixels (> 0)"),
			}, encodeProperties()), "x", "y", "width", "height"),
		},
		{
			Name:        "image_process",
			Description: "Rotate an image, crop a rectangle given in the rotated canvas's coordinates, and encode the result. Use image_rotated_bounds to learn the canvas size.",
			InputSchema: schema(merge(map[string]interface{}{
				"angle": angleProperty("Rotation in degrees, clockwise."),
				"crop": map[string]interface{}{
					"type":        "object",
					"description": "Crop rectangle in the rotated canvas's pixel space",
					"properties": map[string]interface{}{
						"x":      number("Left edge"),
						"y":      number("Top edge"),
						"width":  integer("Output width in pixels (> 0)"),
						"height": integer("Output height in pixels (> 0)"),
					},
					"required": []string{"x", "y", "width", "height"},
				},
				"size": integer("Optional bound on the output's longer side; the crop is scaled down to fit, never up"),
			}, encodeProperties()), "crop"),
		},

		// Inspection
		{
			Name:        "image_sample_color",
			Description: "Get the color at a pixel of the image rotated by angle, in the same coordinate space image_process crops from.",
			InputSchema: schema(map[string]interface{}{
				"angle": angleProperty("Rotation in degrees, clockwise. Default 0 samples the source itself."),
				"x":     integer("X coordinate (0-based, from left)"),
				"y":     integer("Y coordinate (0-based, from top)"),
			}, "x", "y"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
