package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wificode-go/errcode"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/nvs"
)

func strp(s string) *string { return &s }

func newStore(t *testing.T, kv nvs.Store) *Store {
	t.Helper()
	if kv == nil {
		kv = nvs.NewMem()
	}
	s := New(kv, WithLogger(logx.NewTestLogger()))
	require.NoError(t, s.Init(context.Background()))
	return s
}

func names(recs []types.NetworkRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestBeforeInit_InvalidState(t *testing.T) {
	ctx := context.Background()
	s := New(nvs.NewMem(), WithLogger(logx.NewTestLogger()))

	_, err := s.List(ctx, 0)
	assert.Equal(t, errcode.InvalidState, errcode.Of(err))
	assert.Equal(t, errcode.InvalidState, errcode.Of(s.Upsert(ctx, NetworkParams{Name: "a"})))
	assert.Equal(t, errcode.InvalidState, errcode.Of(s.RecordSuccess(ctx, "a")))
}

func TestUpsert_Validation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	cases := map[string]NetworkParams{
		"empty":         {Name: ""},
		"long name":     {Name: strings.Repeat("n", 33)},
		"long secret":   {Name: "lab", Secret: strp(strings.Repeat("s", 65))},
		"nul in name":   {Name: "cafe\x00a"},
		"nul in secret": {Name: "lab", Secret: strp("pw\x00rest")},
	}
	for name, p := range cases {
		err := s.Upsert(ctx, p)
		assert.Equal(t, errcode.InvalidArgument, errcode.Of(err), name)
	}
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "exactly-thirty-two-bytes-long-xx", Secret: strp(strings.Repeat("s", 64))}))
}

func TestUpsert_NamesStayUnique(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	for i := 0; i < 30; i++ {
		require.NoError(t, s.Upsert(ctx, NetworkParams{Name: fmt.Sprintf("net-%d", i%4), RSSI: -50 - i}))
	}
	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	seen := map[string]bool{}
	for _, r := range recs {
		require.False(t, seen[r.Name], "duplicate %s", r.Name)
		seen[r.Name] = true
	}
}

func TestUpsert_UpdateKeepsSecretAndBSSIDUnlessGiven(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	pin := types.BSSID{1, 2, 3, 4, 5, 6}

	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "lab", Secret: strp("pw"), BSSID: pin, Channel: 6, RSSI: -40}))
	first, err := s.Lookup(ctx, "lab")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "lab", Channel: 11, RSSI: -70}))
	r, err := s.Lookup(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, "pw", r.Secret)
	assert.Equal(t, pin, r.BSSID)
	assert.Equal(t, uint8(11), r.Channel)
	assert.Equal(t, int8(-70), r.RSSI)
	assert.Equal(t, uint8(BasePriority), r.Priority)
	assert.Equal(t, uint32(1), r.SuccessCount)
	assert.Greater(t, r.LastConnected, first.LastConnected)
}

func TestRecordSuccess_MonotonicSaturating(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "home"}))

	prev := uint8(BasePriority)
	for i := 0; i < 40; i++ {
		require.NoError(t, s.RecordSuccess(ctx, "home"))
		r, err := s.Lookup(ctx, "home")
		require.NoError(t, err)
		require.GreaterOrEqual(t, r.Priority, prev)
		prev = r.Priority
	}
	assert.Equal(t, uint8(255), prev)

	err := s.RecordSuccess(ctx, "nowhere")
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, uint8(100), priorityFor(1))
	assert.Equal(t, uint8(110), priorityFor(2))
	assert.Equal(t, uint8(250), priorityFor(16))
	assert.Equal(t, uint8(255), priorityFor(17))
	assert.Equal(t, uint8(255), priorityFor(^uint32(0)))
}

func TestList_RankOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	s.recs[0] = types.NetworkRecord{Name: "A", Priority: 100, LastConnected: 5, Valid: true}
	s.recs[1] = types.NetworkRecord{Name: "B", Priority: 150, LastConnected: 1, Valid: true}
	s.recs[2] = types.NetworkRecord{Name: "C", Priority: 150, LastConnected: 9, Valid: true}
	rank(&s.recs)

	recs, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, names(recs))

	recs, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, names(recs))
}

func TestList_EmptyTable(t *testing.T) {
	s := newStore(t, nil)
	recs, err := s.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUpsert_EvictsLowestPriority(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	for i := 0; i < Capacity; i++ {
		s.recs[i] = types.NetworkRecord{
			Name:          fmt.Sprintf("p%d", 100+i),
			Priority:      uint8(100 + i),
			LastConnected: uint32(i + 1),
			Valid:         true,
		}
	}
	s.nextStamp = Capacity + 1
	rank(&s.recs)

	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "newcomer"}))

	_, err := s.Lookup(ctx, "p100")
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, Capacity)
	assert.Contains(t, names(recs), "newcomer")
}

func TestUpsert_EvictionTieGoesToOldest(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	for i := 0; i < Capacity; i++ {
		s.recs[i] = types.NetworkRecord{Name: fmt.Sprintf("n%d", i), Priority: 100, LastConnected: uint32(50 - i), Valid: true}
	}
	s.nextStamp = 100

	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "x"}))
	_, err := s.Lookup(ctx, fmt.Sprintf("n%d", Capacity-1))
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "a"}))
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "b"}))

	require.NoError(t, s.Remove(ctx, "a"))
	assert.Equal(t, errcode.NotFound, errcode.Of(s.Remove(ctx, "a")))

	require.NoError(t, s.Clear(ctx))
	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, uint32(1), s.nextStamp)
}

func TestPersistence_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	kv := nvs.NewMem()
	s := newStore(t, kv)
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "home", Secret: strp("secret"), Channel: 1}))
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "work", Channel: 6}))
	require.NoError(t, s.RecordSuccess(ctx, "work"))
	want, err := s.List(ctx, 0)
	require.NoError(t, err)

	s2 := newStore(t, kv)
	got, err := s2.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The logical clock keeps moving forward across reloads.
	require.NoError(t, s2.Upsert(ctx, NetworkParams{Name: "cafe"}))
	cafe, err := s2.Lookup(ctx, "cafe")
	require.NoError(t, err)
	for _, r := range want {
		assert.Greater(t, cafe.LastConnected, r.LastConnected)
	}
}

func TestReload_RejectedNamesCannotCollide(t *testing.T) {
	ctx := context.Background()
	kv := nvs.NewMem()
	s := newStore(t, kv)
	require.NoError(t, s.Upsert(ctx, NetworkParams{Name: "home", Secret: strp("pw")}))
	for _, n := range []string{"cafe\x00a", "cafe\x00b"} {
		assert.Equal(t, errcode.InvalidArgument, errcode.Of(s.Upsert(ctx, NetworkParams{Name: n})), n)
	}

	got, err := newStore(t, kv).List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, names(got))
}

func TestInit_CorruptDataStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := nvs.NewMem()
	h, err := kv.OpenNamespace(Namespace, nvs.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, h.SetBlob(KeyNetworks, []byte{1, 2, 3}))
	require.NoError(t, h.SetU8(KeyCount, 1))
	require.NoError(t, h.SetU32(KeyTimestamp, 9))
	require.NoError(t, h.Commit())

	s := newStore(t, kv)
	recs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPersistFailure_KeepsMemoryChange(t *testing.T) {
	ctx := context.Background()
	kv := nvs.NewMem()
	s := newStore(t, kv)
	kv.SetFault(errors.New("flash write failed"))

	err := s.Upsert(ctx, NetworkParams{Name: "lab"})
	assert.Equal(t, errcode.StorageError, errcode.Of(err))
	_, err = s.Lookup(ctx, "lab")
	assert.NoError(t, err)
}

func TestLock_TimesOut(t *testing.T) {
	s := New(nvs.NewMem(), WithLogger(logx.NewTestLogger()), WithLockTimeout(10*time.Millisecond))
	require.NoError(t, s.Init(context.Background()))

	s.sem <- struct{}{}
	defer s.release()
	_, err := s.List(context.Background(), 0)
	assert.Equal(t, errcode.Timeout, errcode.Of(err))
}
