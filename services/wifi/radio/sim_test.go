package radio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wificode-go/types"
)

type eventLog struct {
	mu  sync.Mutex
	evs []types.WiFiEvent
}

func (l *eventLog) add(ev types.WiFiEvent) {
	l.mu.Lock()
	l.evs = append(l.evs, ev)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []types.WiFiEventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.WiFiEventKind, len(l.evs))
	for i, e := range l.evs {
		out[i] = e.Kind
	}
	return out
}

func (l *eventLog) last() types.WiFiEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evs[len(l.evs)-1]
}

func TestSim_ConnectSuccess(t *testing.T) {
	var log eventLog
	s := NewSim(log.add, SimAP{SSID: "home", Password: "pw", RSSI: -50, Channel: 6})
	s.Latency = time.Millisecond

	require.NoError(t, s.Connect(Config{SSID: "home", Password: "pw"}))
	require.ErrorIs(t, s.Connect(Config{SSID: "home"}), ErrBusy)
	_, err := s.Scan(context.Background())
	require.ErrorIs(t, err, ErrState)

	require.Eventually(t, func() bool { return len(log.kinds()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []types.WiFiEventKind{types.EventConnected, types.EventIPAcquired}, log.kinds())
	ip, err := s.Addr()
	require.NoError(t, err)
	assert.True(t, ip.IsValid())
	info, err := s.AssociatedInfo()
	require.NoError(t, err)
	assert.Equal(t, "home", info.SSID)
	assert.False(t, s.Connecting())
}

func TestSim_ConnectFailures(t *testing.T) {
	bss := types.BSSID{1, 2, 3, 4, 5, 6}
	var log eventLog
	s := NewSim(log.add, SimAP{SSID: "home", Password: "pw", BSSID: bss})
	s.Latency = time.Millisecond

	require.NoError(t, s.Connect(Config{SSID: "home", Password: "nope"}))
	require.Eventually(t, func() bool { return len(log.kinds()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, types.ReasonAuthFail, log.last().Reason)

	require.NoError(t, s.Connect(Config{SSID: "home", Password: "pw", BSSID: types.BSSID{9}, BSSIDSet: true}))
	require.Eventually(t, func() bool { return len(log.kinds()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, types.ReasonNoAPFound, log.last().Reason)

	_, err := s.Addr()
	assert.ErrorIs(t, err, ErrNotAssociated)
	assert.Equal(t, 2, s.ConnectCalls())
}

func TestSim_DropLinkOnlyWhenAssociated(t *testing.T) {
	var log eventLog
	s := NewSim(log.add)
	s.DropLink(types.ReasonBeaconTimeout)
	assert.Empty(t, log.kinds())
}

func TestConfig_Unpinned(t *testing.T) {
	c := Config{SSID: "x", BSSID: types.BSSID{1}, BSSIDSet: true}.Unpinned()
	assert.False(t, c.BSSIDSet)
	assert.True(t, c.BSSID.IsZero())
	assert.Equal(t, "x", c.SSID)
}
