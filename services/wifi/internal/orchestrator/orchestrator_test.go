package orchestrator

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"wificode-go/bus"
	"wificode-go/errcode"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/internal/history"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu        sync.Mutex
	known     map[string]bool
	successes []string
	upserts   []history.NetworkParams
}

func (f *fakeStore) RecordSuccess(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[name] {
		return errcode.New(errcode.NotFound, "history.record_success", name)
	}
	f.successes = append(f.successes, name)
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, p history.NetworkParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, p)
	return nil
}

type fakeRecovery struct {
	mu    sync.Mutex
	flags []bool
	saved []radio.Config
}

func (f *fakeRecovery) SetConnectionFailed(failed bool) error {
	f.mu.Lock()
	f.flags = append(f.flags, failed)
	f.mu.Unlock()
	return nil
}

func (f *fakeRecovery) SaveStationConfig(cfg radio.Config) error {
	f.mu.Lock()
	f.saved = append(f.saved, cfg)
	f.mu.Unlock()
	return nil
}

type harness struct {
	t      *testing.T
	o      *Orchestrator
	r      *radio.MockRadio
	store  *fakeStore
	rec    *fakeRecovery
	conn   *bus.Connection
	states *bus.Subscription
	sleeps []time.Duration
	netUps int
	cancel context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	ctrl := gomock.NewController(t)
	b := bus.NewBus(32)
	h := &harness{
		t:     t,
		r:     radio.NewMockRadio(ctrl),
		store: &fakeStore{known: map[string]bool{}},
		rec:   &fakeRecovery{},
		conn:  b.NewConnection("test"),
	}
	lg := logx.NewTestLogger()
	h.o = New(h.r, h.store, h.rec, b.NewConnection("orch"), Options{
		Logger: &lg,
		Sleep: func(_ context.Context, d time.Duration) bool {
			h.sleeps = append(h.sleeps, d)
			return true
		},
		OnNetworkUp: func() { h.netUps++ },
	})
	h.states = h.conn.Subscribe(bus.T(consts.TokWiFi, consts.TokState))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.o.Start(ctx)
	h.nextState()
	t.Cleanup(func() {
		cancel()
		<-h.o.Done()
		h.conn.Disconnect()
	})
	return h
}

func (h *harness) nextState() types.WiFiState {
	h.t.Helper()
	select {
	case m := <-h.states.Channel():
		return m.Payload.(types.WiFiState)
	case <-time.After(time.Second):
		h.t.Fatal("no state published")
	}
	return types.WiFiState{}
}

func (h *harness) send(ev types.WiFiEvent) types.WiFiState {
	h.t.Helper()
	h.conn.Publish(h.conn.NewMessage(bus.T(consts.TokWiFi, consts.TokEvent), ev, false))
	return h.nextState()
}

func disconnected(r types.DisconnectReason) types.WiFiEvent {
	return types.WiFiEvent{Kind: types.EventDisconnected, Reason: r}
}

var homeCfg = radio.Config{SSID: "home", Password: "pw"}

func TestGenericDisconnects_RetryFiveTimesThenIdle(t *testing.T) {
	h := newHarness(t)
	h.r.EXPECT().ActiveConfig().Return(homeCfg).AnyTimes()
	h.r.EXPECT().Connect(homeCfg).Return(nil).Times(5)

	for i := 1; i <= 5; i++ {
		st := h.send(disconnected(types.ReasonBeaconTimeout))
		require.Equal(t, types.StateConnecting, st.State)
		require.Equal(t, i, st.Retry)
	}
	st := h.send(disconnected(types.ReasonBeaconTimeout))
	assert.Equal(t, types.StateIdle, st.State)
	assert.Equal(t, DefaultMaxRetries, st.Retry)
	assert.Equal(t, "BEACON_TIMEOUT", st.Reason)

	// Exhausted: further disconnects cause no connect calls.
	st = h.send(disconnected(types.ReasonAssocLeave))
	assert.Equal(t, types.StateIdle, st.State)

	assert.Len(t, h.sleeps, 5)
	for _, d := range h.sleeps {
		assert.Equal(t, DefaultBackoff, d)
	}
	h.rec.mu.Lock()
	assert.Equal(t, []bool{true, true}, h.rec.flags)
	h.rec.mu.Unlock()
}

func TestAuthFailure_ExhaustsImmediately(t *testing.T) {
	for _, reason := range []types.DisconnectReason{types.ReasonAuthFail, types.Reason4WayHandshakeTimeout, types.ReasonHandshakeTimeout} {
		t.Run(reason.String(), func(t *testing.T) {
			h := newHarness(t)
			st := h.send(disconnected(reason))
			assert.Equal(t, types.StateIdle, st.State)
			assert.Equal(t, DefaultMaxRetries, st.Retry)
			assert.Empty(t, h.sleeps)
		})
	}
}

func TestAPNotFound_StripsPinOnce(t *testing.T) {
	h := newHarness(t)
	pinned := radio.Config{SSID: "mesh", BSSID: types.BSSID{1, 2, 3, 4, 5, 6}, BSSIDSet: true}

	h.o.NoteAttempt(pinned)
	st := h.nextState()
	require.True(t, st.BSSIDLocked)
	require.Equal(t, types.StateConnecting, st.State)

	gomock.InOrder(
		h.r.EXPECT().ActiveConfig().Return(pinned),
		h.r.EXPECT().SetConfig(pinned.Unpinned()).Return(nil),
		h.r.EXPECT().Connect(pinned.Unpinned()).Return(nil),
	)
	st = h.send(disconnected(types.ReasonNoAPFound))
	assert.Equal(t, types.StateConnecting, st.State)
	assert.False(t, st.BSSIDLocked)
	assert.Equal(t, 1, st.Retry)
	assert.Empty(t, h.sleeps)

	// Unpinned and still missing: give up.
	st = h.send(disconnected(types.ReasonNoAPFound))
	assert.Equal(t, types.StateIdle, st.State)
	assert.Equal(t, DefaultMaxRetries, st.Retry)
}

func TestAPNotFound_UnpinnedExhausts(t *testing.T) {
	h := newHarness(t)
	st := h.send(disconnected(types.ReasonNoAPFound))
	assert.Equal(t, types.StateIdle, st.State)
}

func TestConnectedAndIP(t *testing.T) {
	h := newHarness(t)
	h.store.known["home"] = true
	h.r.EXPECT().ActiveConfig().Return(homeCfg).AnyTimes()

	netSub := h.conn.Subscribe(bus.T(consts.TokWiFi, consts.TokNet))

	st := h.send(types.WiFiEvent{Kind: types.EventConnected, SSID: "home", Channel: 6})
	assert.Equal(t, types.StateConnected, st.State)
	assert.Equal(t, []string{"home"}, h.store.successes)

	ip := types.WiFiEvent{Kind: types.EventIPAcquired, IP: netip.MustParseAddr("192.168.1.20"), Gateway: netip.MustParseAddr("192.168.1.1")}
	h.send(ip)
	h.send(ip)
	assert.Equal(t, 1, h.netUps)

	select {
	case m := <-netSub.Channel():
		assert.True(t, m.Retained)
		assert.Equal(t, "192.168.1.20", m.Payload.(types.NetInfo).IP)
	case <-time.After(time.Second):
		t.Fatal("no wifi/net")
	}
	h.rec.mu.Lock()
	assert.Equal(t, []bool{false, false}, h.rec.flags)
	assert.Equal(t, []radio.Config{homeCfg, homeCfg}, h.rec.saved)
	h.rec.mu.Unlock()
}

func TestConnectedUnknownNetwork_IsRemembered(t *testing.T) {
	h := newHarness(t)
	cfg := radio.Config{SSID: "guest", Password: "welcome1"}
	h.r.EXPECT().ActiveConfig().Return(cfg).AnyTimes()
	h.r.EXPECT().AssociatedInfo().Return(radio.APInfo{SSID: "guest", RSSI: -61, Auth: types.AuthWPA2PSK}, nil)

	bss := types.BSSID{9, 9, 9, 9, 9, 9}
	h.send(types.WiFiEvent{Kind: types.EventConnected, SSID: "guest", Channel: 11, BSSID: bss})

	require.Len(t, h.store.upserts, 1)
	p := h.store.upserts[0]
	assert.Equal(t, "guest", p.Name)
	assert.Equal(t, "welcome1", *p.Secret)
	assert.Equal(t, bss, p.BSSID)
	assert.Equal(t, uint8(11), p.Channel)
	assert.Equal(t, -61, p.RSSI)
	assert.Equal(t, types.AuthWPA2PSK, p.Auth)
}

func TestResetRetry_RestoresBudget(t *testing.T) {
	h := newHarness(t)
	h.r.EXPECT().ActiveConfig().Return(homeCfg).AnyTimes()
	h.send(disconnected(types.ReasonAuthFail))

	h.o.ResetRetry()
	st := h.nextState()
	assert.Equal(t, 0, st.Retry)

	h.r.EXPECT().Connect(homeCfg).Return(radio.ErrBusy)
	st = h.send(disconnected(types.ReasonBeaconTimeout))
	assert.Equal(t, 1, st.Retry)
	assert.Equal(t, st, h.o.State())
}

func TestBackoff_KeepsEventsQueuedBehindIt(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := radio.NewMockRadio(ctrl)
	r.EXPECT().ActiveConfig().Return(homeCfg).AnyTimes()
	r.EXPECT().Connect(homeCfg).Return(nil)

	// A small bus default so only the orchestrator's own queue length
	// can keep the burst.
	b := bus.NewBus(2)
	store := &fakeStore{known: map[string]bool{"home": true}}
	entered, release := make(chan struct{}), make(chan struct{})
	lg := logx.NewTestLogger()
	o := New(r, store, &fakeRecovery{}, b.NewConnection("orch"), Options{
		Logger: &lg,
		Sleep: func(ctx context.Context, _ time.Duration) bool {
			close(entered)
			select {
			case <-release:
				return true
			case <-ctx.Done():
				return false
			}
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-o.Done()
	}()
	o.Start(ctx)

	conn := b.NewConnection("driver")
	pub := func(ev types.WiFiEvent) {
		conn.Publish(conn.NewMessage(bus.T(consts.TokWiFi, consts.TokEvent), ev, false))
	}
	pub(types.WiFiEvent{Kind: types.EventDisconnected, Reason: types.ReasonAssocLeave})
	<-entered
	pub(types.WiFiEvent{Kind: types.EventConnected, SSID: "home"})
	for i := 0; i < 10; i++ {
		pub(types.WiFiEvent{Kind: types.EventStationStarted})
	}
	close(release)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.successes) == 1
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return o.State().State == types.StateConnected },
		time.Second, 5*time.Millisecond)
}
