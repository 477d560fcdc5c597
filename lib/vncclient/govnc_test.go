package vncclient

import (
	"testing"

	govnc "github.com/mitchellh/go-vnc"
	"github.com/stretchr/testify/require"
)

func TestRfbEncodingIDKnownNames(t *testing.T) {
	id, ok := rfbEncodingID("Tight")
	require.True(t, ok)
	require.Equal(t, rfbEncodingTight, id)

	_, ok = rfbEncodingID("NotARealEncoding")
	require.False(t, ok)
}

func TestRawColorsToBGRAPacksEightBitChannelsInBGRAOrder(t *testing.T) {
	colors := []govnc.Color{
		{R: 0xFFFF, G: 0x0000, B: 0x8080},
	}
	out := rawColorsToBGRA(colors)
	require.Equal(t, []byte{0x80, 0x00, 0xFF, 0xFF}, out)
}

func TestGoVNCTransportSendBeforeConnectErrors(t *testing.T) {
	tr := NewGoVNCTransport("127.0.0.1:5900")
	err := tr.Send(CmdKeyEvent{Keysym: 0x61, Pressed: true})
	require.Error(t, err)
}
