// Package history is the bounded, persisted table of networks the device
// has joined. All access goes through Store, which serializes callers with
// a one-slot semaphore and writes the table through to nvs after every
// mutation.
package history

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/errcode"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/mathx"
	"wificode-go/x/nvs"
)

const (
	Namespace = "wifi_history"

	KeyNetworks  = "networks"
	KeyCount     = "count"
	KeyTimestamp = "timestamp"

	DefaultLockTimeout = 500 * time.Millisecond
)

type Option func(*Store)

func WithLockTimeout(d time.Duration) Option { return func(s *Store) { s.lockTimeout = d } }
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

type Store struct {
	kv          nvs.Store
	sem         chan struct{}
	lockTimeout time.Duration
	log         zerolog.Logger

	// guarded by sem
	ready     bool
	recs      [Capacity]types.NetworkRecord
	nextStamp uint32
	gen       uint64

	persistMu sync.Mutex
	written   uint64
}

type snapshot struct {
	gen       uint64
	recs      [Capacity]types.NetworkRecord
	nextStamp uint32
}

func New(kv nvs.Store, opts ...Option) *Store {
	s := &Store{
		kv:          kv,
		sem:         make(chan struct{}, 1),
		lockTimeout: DefaultLockTimeout,
		log:         logx.WithComponent("wifi.history"),
		nextStamp:   1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) acquire(ctx context.Context, op string) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	default:
	}
	t := time.NewTimer(s.lockTimeout)
	defer t.Stop()
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-t.C:
		return errcode.New(errcode.Timeout, op, "table lock")
	case <-ctx.Done():
		return errcode.Wrap(errcode.Timeout, op, ctx.Err())
	}
}

func (s *Store) release() { <-s.sem }

// Init loads the table from storage. Missing or corrupt data yields an
// empty table; Init only fails when the lock cannot be taken.
func (s *Store) Init(ctx context.Context) error {
	if err := s.acquire(ctx, "history.init"); err != nil {
		return err
	}
	defer s.release()

	recs, stamp, err := s.load()
	if err != nil {
		if !errors.Is(err, nvs.ErrNotFound) {
			s.log.Warn().Err(err).Msg("history unreadable, starting empty")
		}
		recs, stamp = [Capacity]types.NetworkRecord{}, 1
	}
	s.recs = recs
	s.nextStamp = stamp
	rank(&s.recs)
	s.ready = true
	s.log.Info().Int("count", int(validCount(&s.recs))).Uint32("stamp", s.nextStamp).Msg("history loaded")
	return nil
}

func (s *Store) load() ([Capacity]types.NetworkRecord, uint32, error) {
	var zero [Capacity]types.NetworkRecord
	h, err := s.kv.OpenNamespace(Namespace, nvs.ReadOnly)
	if err != nil {
		return zero, 0, err
	}
	defer h.Close()

	blob, err := h.GetBlob(KeyNetworks)
	if err != nil {
		return zero, 0, err
	}
	count, err := h.GetU8(KeyCount)
	if err != nil {
		return zero, 0, err
	}
	stamp, err := h.GetU32(KeyTimestamp)
	if err != nil {
		return zero, 0, err
	}
	recs, err := DecodeImage(blob, count)
	if err != nil {
		return zero, 0, err
	}
	// The seed must stay ahead of every stored stamp.
	for i := range recs {
		if recs[i].Valid && recs[i].LastConnected >= stamp {
			stamp = recs[i].LastConnected + 1
		}
	}
	if stamp == 0 {
		stamp = 1
	}
	return recs, stamp, nil
}

// mutate runs fn under the lock, then persists a snapshot outside it.
// A persistence failure is returned but the in-memory change stands.
func (s *Store) mutate(ctx context.Context, op string, fn func() error) error {
	if err := s.acquire(ctx, op); err != nil {
		return err
	}
	if !s.ready {
		s.release()
		return errcode.New(errcode.InvalidState, op, "not initialised")
	}
	if err := fn(); err != nil {
		s.release()
		return err
	}
	rank(&s.recs)
	s.gen++
	snap := snapshot{gen: s.gen, recs: s.recs, nextStamp: s.nextStamp}
	s.release()

	return s.persist(op, snap)
}

func (s *Store) persist(op string, snap snapshot) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if snap.gen <= s.written {
		// A newer snapshot already went out.
		return nil
	}
	s.written = snap.gen

	h, err := s.kv.OpenNamespace(Namespace, nvs.ReadWrite)
	if err != nil {
		return errcode.Wrap(errcode.StorageError, op, err)
	}
	defer h.Close()
	err = h.SetBlob(KeyNetworks, EncodeImage(&snap.recs))
	if err == nil {
		err = h.SetU8(KeyCount, validCount(&snap.recs))
	}
	if err == nil {
		err = h.SetU32(KeyTimestamp, snap.nextStamp)
	}
	if err == nil {
		err = h.Commit()
	}
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("history persist failed")
		return errcode.Wrap(errcode.StorageError, op, err)
	}
	return nil
}

func (s *Store) stamp() uint32 {
	v := s.nextStamp
	s.nextStamp = mathx.SatAdd(s.nextStamp, 1, math.MaxUint32)
	return v
}

func (s *Store) find(name string) int {
	for i := range s.recs {
		if s.recs[i].Valid && s.recs[i].Name == name {
			return i
		}
	}
	return -1
}

// freeSlot returns an empty slot, evicting the least valuable record when
// the table is full.
func (s *Store) freeSlot() int {
	victim := -1
	for i := range s.recs {
		if !s.recs[i].Valid {
			return i
		}
		if victim < 0 || evictionLess(s.recs[i], s.recs[victim]) {
			victim = i
		}
	}
	s.log.Info().Str("ssid", s.recs[victim].Name).Uint8("priority", s.recs[victim].Priority).
		Msg("history full, evicting")
	s.recs[victim] = types.NetworkRecord{}
	return victim
}

// Upsert updates the named record or inserts a new one.
func (s *Store) Upsert(ctx context.Context, p NetworkParams) error {
	const op = "history.upsert"
	switch {
	case p.Name == "":
		return errcode.New(errcode.InvalidArgument, op, "empty name")
	case len(p.Name) > types.MaxSSIDLen:
		return errcode.New(errcode.InvalidArgument, op, "name too long")
	case strings.IndexByte(p.Name, 0) >= 0:
		// Slots store NUL-terminated strings.
		return errcode.New(errcode.InvalidArgument, op, "name contains NUL")
	case p.Secret != nil && len(*p.Secret) > types.MaxSecretLen:
		return errcode.New(errcode.InvalidArgument, op, "secret too long")
	case p.Secret != nil && strings.IndexByte(*p.Secret, 0) >= 0:
		return errcode.New(errcode.InvalidArgument, op, "secret contains NUL")
	}
	return s.mutate(ctx, op, func() error {
		i := s.find(p.Name)
		if i < 0 {
			i = s.freeSlot()
			s.recs[i] = types.NetworkRecord{
				Name:         p.Name,
				Priority:     BasePriority,
				SuccessCount: 1,
				Valid:        true,
			}
		}
		r := &s.recs[i]
		if p.Secret != nil {
			r.Secret = *p.Secret
		}
		if !p.BSSID.IsZero() {
			r.BSSID = p.BSSID
		}
		r.Channel = p.Channel
		r.Auth = p.Auth
		r.RSSI = mathx.ClampInt8(p.RSSI)
		r.LastConnected = s.stamp()
		return nil
	})
}

// RecordSuccess bumps the success count and priority of name.
func (s *Store) RecordSuccess(ctx context.Context, name string) error {
	const op = "history.record_success"
	return s.mutate(ctx, op, func() error {
		i := s.find(name)
		if i < 0 {
			return errcode.New(errcode.NotFound, op, name)
		}
		r := &s.recs[i]
		r.SuccessCount = mathx.SatAdd(r.SuccessCount, 1, math.MaxUint32)
		r.Priority = priorityFor(r.SuccessCount)
		r.LastConnected = s.stamp()
		s.log.Debug().Str("ssid", name).Uint32("successes", r.SuccessCount).
			Uint8("priority", r.Priority).Msg("success recorded")
		return nil
	})
}

func (s *Store) Remove(ctx context.Context, name string) error {
	const op = "history.remove"
	return s.mutate(ctx, op, func() error {
		i := s.find(name)
		if i < 0 {
			return errcode.New(errcode.NotFound, op, name)
		}
		s.recs[i] = types.NetworkRecord{}
		return nil
	})
}

// Clear tombstones every record and restarts the logical clock.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "history.clear", func() error {
		s.recs = [Capacity]types.NetworkRecord{}
		s.nextStamp = 1
		return nil
	})
}

// List returns up to max valid records in rank order (max <= 0: all).
func (s *Store) List(ctx context.Context, max int) ([]types.NetworkRecord, error) {
	const op = "history.list"
	if err := s.acquire(ctx, op); err != nil {
		return nil, err
	}
	defer s.release()
	if !s.ready {
		return nil, errcode.New(errcode.InvalidState, op, "not initialised")
	}
	if max <= 0 || max > Capacity {
		max = Capacity
	}
	out := make([]types.NetworkRecord, 0, max)
	for i := range s.recs {
		if len(out) == max {
			break
		}
		if s.recs[i].Valid {
			out = append(out, s.recs[i])
		}
	}
	return out, nil
}

func (s *Store) Lookup(ctx context.Context, name string) (types.NetworkRecord, error) {
	const op = "history.lookup"
	if err := s.acquire(ctx, op); err != nil {
		return types.NetworkRecord{}, err
	}
	defer s.release()
	if !s.ready {
		return types.NetworkRecord{}, errcode.New(errcode.InvalidState, op, "not initialised")
	}
	if i := s.find(name); i >= 0 {
		return s.recs[i], nil
	}
	return types.NetworkRecord{}, errcode.New(errcode.NotFound, op, name)
}

// rank orders valid records by Less and moves tombstones to the end.
func rank(recs *[Capacity]types.NetworkRecord) {
	sort.SliceStable(recs[:], func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Valid != b.Valid {
			return a.Valid
		}
		if !a.Valid {
			return false
		}
		return Less(a, b)
	})
}
