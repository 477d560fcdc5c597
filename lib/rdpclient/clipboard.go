package rdpclient

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/gravitational/trace"

	"github.com/rustconn/rustconn/lib/pixel"
)

// Standard clipboard format ids, per spec.md §4.F.
const (
	CFText              uint32 = 1
	CFUnicodeText       uint32 = 13
	CFHDrop             uint32 = 15
	CFHTMLFormat        uint32 = 0xC0A0
)

// clipboardState tracks the CLIPRDR virtual-channel sub-state-machine:
// whether the channel has completed its initial format-list handshake,
// and which format (if any) the local side is waiting on a response for.
type clipboardState struct {
	ready          bool
	pendingRequest uint32
	haveRequest    bool
}

// onChannelReady runs the empty-format-list handshake required the first
// time the CLIPRDR channel comes up: advertise an empty format list so the
// remote doesn't assume stale clipboard content is available.
func (c *clipboardState) onChannelReady() []pixel.Format {
	c.ready = true
	return nil
}

// onRemoteFormatList runs when the remote announces newly copied formats.
// Per spec.md §4.F, the client auto-requests data immediately, preferring
// CF_UNICODETEXT over CF_TEXT when both are offered.
func (c *clipboardState) onRemoteFormatList(formats []pixel.Format) (requestID uint32, shouldRequest bool) {
	var haveUnicode, haveText bool
	for _, f := range formats {
		switch f.ID {
		case CFUnicodeText:
			haveUnicode = true
		case CFText:
			haveText = true
		}
	}
	switch {
	case haveUnicode:
		requestID = CFUnicodeText
	case haveText:
		requestID = CFText
	default:
		return 0, false
	}
	c.pendingRequest = requestID
	c.haveRequest = true
	return requestID, true
}

// decodeClipboardData decodes clipboard bytes per their format id into the
// egress text/file-list payload the host expects.
func decodeClipboardData(formatID uint32, data []byte) (text string, files []FileDescriptor, err error) {
	switch formatID {
	case CFUnicodeText:
		return decodeUTF16LE(data), nil, nil
	case CFText:
		return decodeLatin1(data), nil, nil
	case CFHDrop:
		files, err := decodeFileGroupDescriptor(data)
		return "", files, err
	default:
		return "", nil, trace.BadParameter("unsupported clipboard format id %d", formatID)
	}
}

// decodeUTF16LE decodes a null-terminated UTF-16LE byte string, the wire
// encoding of CF_UNICODETEXT.
func decodeUTF16LE(data []byte) string {
	n := len(data) / 2
	units := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		u := binary.LittleEndian.Uint16(data[i*2 : i*2+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// decodeLatin1 decodes a null-terminated Latin-1 byte string, the wire
// encoding of CF_TEXT.
func decodeLatin1(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c == 0 {
			break
		}
		b.WriteRune(rune(c))
	}
	return b.String()
}

// FileDescriptor is one entry decoded from a CF_HDROP
// FileGroupDescriptorW payload.
type FileDescriptor struct {
	Attributes  uint32
	LastWriteNS int64
	SizeHigh    uint32
	SizeLow     uint32
	Name        string
}

// fgdEntrySize is the fixed per-entry size of a FILEDESCRIPTORW struct in
// the CF_HDROP wire format (592 bytes), with the fields this package reads
// at the exact offsets given in spec.md §4.F. The name field starts at +76
// and is read up to the end of the entry, so at most 516 bytes (258
// UTF-16 units) of it are decoded.
const (
	fgdEntrySize        = 592
	fgdAttributesOffset = 36
	fgdWriteTimeOffset  = 60
	fgdSizeHighOffset   = 68
	fgdSizeLowOffset    = 72
	fgdNameOffset       = 76
	fgdNameBytes        = fgdEntrySize - fgdNameOffset
)

// decodeFileGroupDescriptor parses a CF_HDROP FileGroupDescriptorW
// payload: a 4-byte little-endian cItems header followed by cItems
// fixed-size 592-byte FILEDESCRIPTORW entries.
func decodeFileGroupDescriptor(data []byte) ([]FileDescriptor, error) {
	if len(data) < 4 {
		return nil, trace.BadParameter("FileGroupDescriptorW too short: %d bytes", len(data))
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	want := 4 + int(count)*fgdEntrySize
	if len(data) < want {
		return nil, trace.BadParameter("FileGroupDescriptorW truncated: expected %d bytes, got %d", want, len(data))
	}

	files := make([]FileDescriptor, 0, count)
	for i := uint32(0); i < count; i++ {
		entry := data[4+int(i)*fgdEntrySize : 4+int(i+1)*fgdEntrySize]
		name := decodeUTF16LE(entry[fgdNameOffset : fgdNameOffset+fgdNameBytes])
		files = append(files, FileDescriptor{
			Attributes:  binary.LittleEndian.Uint32(entry[fgdAttributesOffset : fgdAttributesOffset+4]),
			LastWriteNS: int64(binary.LittleEndian.Uint64(entry[fgdWriteTimeOffset : fgdWriteTimeOffset+8])),
			SizeHigh:    binary.LittleEndian.Uint32(entry[fgdSizeHighOffset : fgdSizeHighOffset+4]),
			SizeLow:     binary.LittleEndian.Uint32(entry[fgdSizeLowOffset : fgdSizeLowOffset+4]),
			Name:        name,
		})
	}
	return files, nil
}

// encodeUTF16LE encodes s as null-terminated UTF-16LE, the inverse of
// decodeUTF16LE, used when the client itself originates clipboard data
// (e.g. relaying a ClipboardText command to the remote).
func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2+2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], u)
	}
	return out
}
