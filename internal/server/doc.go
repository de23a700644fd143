// Package server implements the MCP (Model Context Protocol) server that
// exposes the rotate-and-crop pipeline as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source information:
//   - image_load: Decode and describe a source
//   - image_dimensions: Get width and height
//   - image_rotated_bounds: Get the canvas size after rotation
//
// Transform stages:
//   - image_rotate: Rotate onto an enlarged transparent canvas
//   - image_crop: Crop an unrotated source
//   - image_process: Rotate, crop in rotated coordinates, encode
//
// Inspection:
//   - image_sample_color: Color at a pixel of the rotated source
//
// # Sources
//
// Every tool takes either a file path or inline data (base64 or a data URI).
// Before decoding, the content type is sniffed and checked against the
// configured whitelist and the size against the configured limit. Decoded
// sources are cached, by path or by a hash of the inline bytes, so a client
// adjusting the angle or crop of one upload decodes it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: {"kind": ..., "detail": ...} where kind is invalid_image,
//     invalid_crop_rect, invalid_angle, encoding_error, invalid_arguments,
//     unknown_tool or internal
//
// # Usage
//
//	srv := server.New(cfg, log)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
