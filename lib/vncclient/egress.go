package vncclient

import "github.com/rustconn/rustconn/lib/pixel"

// EventKind discriminates the VNC egress event union, per spec.md §4.G.
// It reuses pixel.SourceFormat/pixel.FrameUpdate's BGRA normalization but
// adds CopyRect, which has no RDP analogue.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventResolutionChanged
	EventFrameUpdate
	EventCopyRect
	EventCursorUpdate
	EventBell
	EventClipboardText
	EventAuthRequired
	EventError
)

// Event is the VNC client core's egress stream element.
type Event struct {
	Kind EventKind

	Width, Height int // ResolutionChanged

	Frame *pixel.FrameUpdate // FrameUpdate

	DstRect, SrcRect pixel.Rect // CopyRect: move SrcRect's pixels to DstRect

	CursorHotX, CursorHotY int    // CursorUpdate
	CursorRect             pixel.Rect
	CursorPixels           []byte

	Text string // ClipboardText, Error
}
