// Package pixel implements spec.md §4.D's pixel pipeline: conversion of
// protocol-native framebuffer rectangles into normalized BGRA frame
// updates, plus the shared event vocabulary RDP/VNC client cores emit
// toward a host surface.
package pixel

import (
	"fmt"

	"github.com/gravitational/trace"
)

// SourceFormat is the wire pixel layout of an incoming rectangle.
type SourceFormat int

const (
	BGRA SourceFormat = iota
	RGBA
	RGB
	BGR
	RGB565
)

// BytesPerPixel returns the wire size of one pixel in f.
func (f SourceFormat) BytesPerPixel() int {
	switch f {
	case BGRA, RGBA:
		return 4
	case RGB, BGR:
		return 3
	case RGB565:
		return 2
	default:
		return 0
	}
}

// Rect is an axis-aligned framebuffer region.
type Rect struct {
	X, Y, W, H int
}

// FrameUpdate is one normalized, BGRA-encoded rectangle update.
type FrameUpdate struct {
	Rect  Rect
	Pixels []byte
}

// Convert validates raw against source's declared dimensions and returns a
// FrameUpdate with pixels normalized to BGRA. It is the sole entry point
// for spec.md §4.D's conversion algorithms.
func Convert(rect Rect, raw []byte, source SourceFormat) (FrameUpdate, error) {
	if rect.W <= 0 || rect.H <= 0 {
		return FrameUpdate{}, trace.BadParameter("Invalid rectangle dimensions")
	}

	bpp := source.BytesPerPixel()
	expected := rect.W * rect.H * bpp
	if len(raw) < expected {
		return FrameUpdate{}, trace.BadParameter("Invalid framebuffer data size: expected %d, got %d", expected, len(raw))
	}

	var bgra []byte
	switch source {
	case BGRA:
		bgra = append([]byte(nil), raw[:expected]...)
	case RGBA:
		bgra = convertSwapRB(raw[:expected], 4, true)
	case RGB:
		bgra = convertSwapRB(raw[:expected], 3, false)
	case BGR:
		bgra = convertAppendAlpha(raw[:expected], 3)
	case RGB565:
		bgra = convertRGB565(raw[:expected], rect.W*rect.H)
	default:
		return FrameUpdate{}, trace.BadParameter("unknown source format %v", source)
	}

	return FrameUpdate{Rect: rect, Pixels: bgra}, nil
}

// convertSwapRB handles RGBA->BGRA (preserve alpha) and RGB->BGRA (append
// opaque alpha), both of which swap byte 0 and byte 2 per pixel.
func convertSwapRB(raw []byte, stride int, hasAlpha bool) []byte {
	n := len(raw) / stride
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		src := raw[i*stride : i*stride+stride]
		dst := out[i*4 : i*4+4]
		dst[0] = src[2]
		dst[1] = src[1]
		dst[2] = src[0]
		if hasAlpha {
			dst[3] = src[3]
		} else {
			dst[3] = 0xFF
		}
	}
	return out
}

// convertAppendAlpha handles BGR->BGRA: channel order is preserved, an
// opaque alpha byte is appended.
func convertAppendAlpha(raw []byte, stride int) []byte {
	n := len(raw) / stride
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		src := raw[i*stride : i*stride+stride]
		dst := out[i*4 : i*4+4]
		dst[0] = src[0]
		dst[1] = src[1]
		dst[2] = src[2]
		dst[3] = 0xFF
	}
	return out
}

// convertRGB565 expands little-endian 16-bit RGB565 pixels to 8-bit BGRA.
func convertRGB565(raw []byte, count int) []byte {
	out := make([]byte, count*4)
	for i := 0; i < count; i++ {
		p := uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
		r5 := (p >> 11) & 0x1F
		g6 := (p >> 5) & 0x3F
		b5 := p & 0x1F

		r8 := byte((r5 << 3) | (r5 >> 2))
		g8 := byte((g6 << 2) | (g6 >> 4))
		b8 := byte((b5 << 3) | (b5 >> 2))

		dst := out[i*4 : i*4+4]
		dst[0] = b8
		dst[1] = g8
		dst[2] = r8
		dst[3] = 0xFF
	}
	return out
}

// Format is a named clipboard/transfer data format used by ClipboardFormatsAvailable
// and ClipboardDataRequest.
type Format struct {
	ID   uint32
	Name string
}

// EventKind discriminates the Event union.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventResolutionChanged
	EventFullFrameUpdate
	EventCursorUpdate
	EventCursorPosition
	EventCursorDefault
	EventCursorHidden
	EventClipboardText
	EventClipboardFormatsAvailable
	EventClipboardDataRequest
	EventAuthRequired
	EventServerMessage
	EventError
)

// Event is the stream element produced alongside FrameUpdate by a
// protocol core, per spec.md §4.D's event enum.
type Event struct {
	Kind EventKind

	Width, Height int // Connected, ResolutionChanged

	FullFrame *FrameUpdate // FullFrameUpdate

	CursorHotX, CursorHotY int    // CursorUpdate
	CursorW, CursorH       int    // CursorUpdate
	CursorPixels           []byte // CursorUpdate

	X, Y int // CursorPosition

	Text string // ClipboardText, ServerMessage, Error

	Formats []Format // ClipboardFormatsAvailable
	Format  Format    // ClipboardDataRequest
}

func (e Event) String() string {
	return fmt.Sprintf("pixel.Event{kind=%d}", e.Kind)
}
