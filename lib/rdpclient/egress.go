package rdpclient

import "github.com/rustconn/rustconn/lib/pixel"

// ClipboardEventKind discriminates RDP-specific clipboard channel events
// that ride alongside pixel.Event on the egress stream.
type ClipboardEventKind int

const (
	ClipboardInitiateCopy ClipboardEventKind = iota
	ClipboardPasteRequest
	ClipboardDataReady
	ClipboardFileList
	ClipboardFileSize
	ClipboardFileContents
)

// ClipboardEvent is the RDP clipboard-channel egress vocabulary, per
// spec.md §4.F. It is emitted on a separate channel from pixel.Event so a
// host need not special-case clipboard frames inside its pixel loop.
type ClipboardEvent struct {
	Kind ClipboardEventKind

	Formats []pixel.Format // ClipboardInitiateCopy, ClipboardPasteRequest
	Format  pixel.Format   // ClipboardPasteRequest

	FormatID uint32 // ClipboardDataReady
	Data     []byte // ClipboardDataReady, ClipboardFileContents

	Files []FileDescriptor // ClipboardFileList

	StreamID uint32 // ClipboardFileSize, ClipboardFileContents
	Size     uint64 // ClipboardFileSize
	IsLast   bool   // ClipboardFileContents
}
