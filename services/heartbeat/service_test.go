package heartbeat

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"wificode-go/bus"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
)

type fakeSource struct {
	ap   radio.APInfo
	err  error
	addr netip.Addr
}

func (f fakeSource) AssociatedInfo() (radio.APInfo, error) { return f.ap, f.err }
func (f fakeSource) Addr() (netip.Addr, error) {
	if !f.addr.IsValid() {
		return f.addr, errors.New("no address")
	}
	return f.addr, nil
}

func TestSample_LinkLevels(t *testing.T) {
	ip := netip.MustParseAddr("192.168.4.10")
	cases := []struct {
		name string
		src  fakeSource
		want types.Link
	}{
		{"not associated", fakeSource{err: radio.ErrNotAssociated}, types.LinkDown},
		{"no address", fakeSource{ap: radio.APInfo{SSID: "a", RSSI: -50}}, types.LinkDegraded},
		{"weak", fakeSource{ap: radio.APInfo{SSID: "a", RSSI: -82}, addr: ip}, types.LinkDegraded},
		{"good", fakeSource{ap: radio.APInfo{SSID: "a", RSSI: -50}, addr: ip}, types.LinkUp},
	}
	for _, tc := range cases {
		got := New(tc.src).Sample()
		if got.Link != tc.want {
			t.Fatalf("%s: link = %q, want %q", tc.name, got.Link, tc.want)
		}
	}
}

func TestServiceLoop_PublishesAndReconfigures(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	ip := netip.MustParseAddr("10.0.0.2")
	s := New(fakeSource{ap: radio.APInfo{SSID: "lab", RSSI: -40}, addr: ip})
	s.Interval = time.Hour

	sub := conn.Subscribe(topicLink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, b.NewConnection("heartbeat"))

	select {
	case m := <-sub.Channel():
		li := m.Payload.(types.LinkInfo)
		if li.SSID != "lab" || li.IP != "10.0.0.2" || li.Link != types.LinkUp {
			t.Fatalf("unexpected link info %+v", li)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial heartbeat")
	}

	conn.Publish(conn.NewMessage(topicConfigHeartbeat, map[string]any{"interval": 0.02}, true))
	select {
	case <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("interval change not applied")
	}
}
