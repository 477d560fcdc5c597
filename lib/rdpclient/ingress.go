package rdpclient

import "github.com/rustconn/rustconn/lib/pixel"

// Command is the exhaustive ingress vocabulary a host posts to a running
// RDP client core, per spec.md §4.F.
type Command interface{ isCommand() }

type CmdDisconnect struct{}

func (CmdDisconnect) isCommand() {}

type CmdKeyEvent struct {
	Scancode uint16
	Pressed  bool
	Extended bool
}

func (CmdKeyEvent) isCommand() {}

type CmdUnicodeEvent struct {
	Character rune
	Pressed   bool
}

func (CmdUnicodeEvent) isCommand() {}

type CmdPointerEvent struct {
	X, Y    int
	Buttons uint8
}

func (CmdPointerEvent) isCommand() {}

type CmdMouseButtonPress struct {
	X, Y   int
	Button int // 1, 2, or 3
}

func (CmdMouseButtonPress) isCommand() {}

type CmdMouseButtonRelease struct {
	X, Y   int
	Button int
}

func (CmdMouseButtonRelease) isCommand() {}

type CmdWheelEvent struct {
	Horizontal int16
	Vertical   int16
}

func (CmdWheelEvent) isCommand() {}

type CmdSetDesktopSize struct {
	Width, Height int
}

func (CmdSetDesktopSize) isCommand() {}

type CmdRefreshScreen struct{}

func (CmdRefreshScreen) isCommand() {}

type CmdSendCtrlAltDel struct{}

func (CmdSendCtrlAltDel) isCommand() {}

type CmdAuthenticate struct {
	Username string
	Password string
	Domain   string
}

func (CmdAuthenticate) isCommand() {}

type CmdClipboardText struct{ Text string }

func (CmdClipboardText) isCommand() {}

type CmdClipboardData struct {
	FormatID uint32
	Bytes    []byte
}

func (CmdClipboardData) isCommand() {}

type CmdClipboardCopy struct{ Formats []pixel.Format }

func (CmdClipboardCopy) isCommand() {}

type CmdRequestClipboardData struct{ FormatID uint32 }

func (CmdRequestClipboardData) isCommand() {}

type CmdRequestFileContents struct {
	StreamID    uint32
	FileIndex   uint32
	RequestSize bool
	Offset      uint64
	Length      uint32
}

func (CmdRequestFileContents) isCommand() {}

// ctrlAltDelSequence is spec.md §4.F's exact 6-event SendCtrlAltDel
// sequence: Ctrl down, Alt down, Delete down (extended), Delete up
// (extended+release), Alt up (release), Ctrl up (release).
func ctrlAltDelSequence() []CmdKeyEvent {
	return []CmdKeyEvent{
		{Scancode: 0x1D, Pressed: true},
		{Scancode: 0x38, Pressed: true},
		{Scancode: 0x53, Pressed: true, Extended: true},
		{Scancode: 0x53, Pressed: false, Extended: true},
		{Scancode: 0x38, Pressed: false},
		{Scancode: 0x1D, Pressed: false},
	}
}
