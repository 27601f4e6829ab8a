package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wificode-go/bus"
	"wificode-go/services/wifi/consts"
	"wificode-go/types"
)

func TestParse(t *testing.T) {
	pw := "two words"
	cases := []struct {
		line string
		want Command
	}{
		{"wifi list", Command{Verb: consts.CtrlList, Payload: types.ListRequest{}}},
		{"wifi ls 3", Command{Verb: consts.CtrlList, Payload: types.ListRequest{Max: 3}}},
		{"wifi scan", Command{Verb: consts.CtrlScan}},
		{"wifi reset", Command{Verb: consts.CtrlResetRetry}},
		{"wifi forget lab", Command{Verb: consts.CtrlRemove, Payload: types.NetworkRef{SSID: "lab"}}},
		{`wifi add "my net" 'two words' --connect`, Command{Verb: consts.CtrlAdd, Payload: types.NetworkAdd{
			SSID: "my net", Password: &pw, Connect: true,
		}}},
		{"wifi add open --channel 6 --bssid aa:bb:cc:dd:ee:ff", Command{Verb: consts.CtrlAdd, Payload: types.NetworkAdd{
			SSID: "open", Channel: 6, BSSID: types.BSSID{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		}}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Parse("help")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = Parse("wifi add")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = Parse("wifi add a b c")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = Parse("wifi add a --bssid")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = Parse("wifi add a --bssid zz")
	assert.ErrorIs(t, err, types.ErrBadBSSID)
	_, err = Parse("wifi scan now")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = Parse(`wifi add "unterminated`)
	assert.Error(t, err)
	_, err = Parse("reboot")
	assert.Error(t, err)
}

// responder answers every wifi/control request with a canned reply.
func responder(t *testing.T, b *bus.Bus) (stop func()) {
	conn := b.NewConnection("fake-wifi")
	sub := conn.Subscribe(bus.T(consts.TokWiFi, consts.TokControl, bus.SingleWild))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for m := range sub.Channel() {
			verb, _ := m.Topic[2].(string)
			if verb == consts.CtrlState {
				conn.Reply(m, types.StateReply{OK: true, State: types.WiFiState{State: types.StateConnected, SSID: "lab"}}, false)
				continue
			}
			conn.Reply(m, types.OKReply{OK: true}, false)
		}
	}()
	return func() {
		conn.Unsubscribe(sub)
		wg.Wait()
	}
}

func TestExec_RoundTrip(t *testing.T) {
	b := bus.NewBus(8)
	defer responder(t, b)()
	c := New(b.NewConnection("console"), Stream(strings.NewReader(""), &bytes.Buffer{}))

	out := c.Exec(context.Background(), "wifi state")
	assert.Contains(t, out, `"state": "connected"`)
	assert.Contains(t, out, `"ssid": "lab"`)
	assert.Equal(t, usage, c.Exec(context.Background(), "help"))
	assert.Contains(t, c.Exec(context.Background(), "bogus"), "error:")
}

func TestExec_Timeout(t *testing.T) {
	b := bus.NewBus(8)
	c := New(b.NewConnection("console"), Stream(strings.NewReader(""), &bytes.Buffer{}))
	c.Timeout = 20 * time.Millisecond
	assert.Contains(t, c.Exec(context.Background(), "wifi clear"), "deadline exceeded")
}

func TestRun_ReadsLines(t *testing.T) {
	b := bus.NewBus(8)
	defer responder(t, b)()

	var out bytes.Buffer
	c := New(b.NewConnection("console"), Stream(strings.NewReader("wifi clear\r\n\nwifi state\n"), &out))
	c.Run(context.Background())

	s := out.String()
	assert.Equal(t, 3, strings.Count(s, prompt))
	assert.Contains(t, s, `"ok": true`)
	assert.Contains(t, s, `"ssid": "lab"`)
}
