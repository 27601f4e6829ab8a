package wifi

import (
	"context"

	"wificode-go/bus"
	"wificode-go/errcode"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/internal/history"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/strx"
	"wificode-go/x/util"
)

func (s *Service) handleControl(ctx context.Context, msg *bus.Message) {
	if len(msg.Topic) < 3 {
		return
	}
	verb, _ := msg.Topic[2].(string)
	l := s.log.With().Str("verb", verb).Logger()

	var (
		res any
		err error
	)
	switch verb {
	case consts.CtrlAdd:
		err = s.add(ctx, msg.Payload)
		res = types.OKReply{OK: true}
	case consts.CtrlRemove:
		var ref types.NetworkRef
		if err = decode(msg.Payload, &ref); err == nil {
			err = s.store.Remove(ctx, ref.SSID)
		}
		res = types.OKReply{OK: true}
	case consts.CtrlClear:
		err = s.store.Clear(ctx)
		res = types.OKReply{OK: true}
	case consts.CtrlList:
		res, err = s.list(ctx, msg.Payload)
	case consts.CtrlScan:
		var scans []types.ScanCandidate
		scans, err = s.r.Scan(ctx)
		err = radio.Fail("wifi.scan", err)
		res = types.ScanReply{OK: true, Networks: scans}
	case consts.CtrlConnect:
		s.smartConnect(ctx, msg)
		return
	case consts.CtrlResetRetry:
		s.orch.ResetRetry()
		res = types.OKReply{OK: true}
	case consts.CtrlState:
		res = types.StateReply{OK: true, State: s.orch.State()}
	default:
		err = errcode.New(errcode.Unsupported, "wifi.control", verb)
	}

	if err != nil {
		l.Warn().Err(err).Msg("control request failed")
		s.replyErr(msg, err)
		return
	}
	l.Debug().Msg("control request done")
	s.conn.Reply(msg, res, false)
}

func (s *Service) replyErr(msg *bus.Message, err error) {
	s.conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
}

// decode accepts a typed payload, a pointer to one, or anything
// util.DecodeJSON understands. A nil payload leaves dst zero.
func decode[T any](p any, dst *T) error {
	switch v := p.(type) {
	case nil:
		return nil
	case T:
		*dst = v
		return nil
	case *T:
		if v != nil {
			*dst = *v
		}
		return nil
	}
	if err := util.DecodeJSON(p, dst); err != nil {
		return errcode.Wrap(errcode.InvalidPayload, "wifi.decode", err)
	}
	return nil
}

func (s *Service) add(ctx context.Context, payload any) error {
	var req types.NetworkAdd
	if err := decode(payload, &req); err != nil {
		return err
	}
	err := s.store.Upsert(ctx, history.NetworkParams{
		Name:    req.SSID,
		Secret:  req.Password,
		BSSID:   req.BSSID,
		Channel: req.Channel,
		Auth:    req.Auth,
		RSSI:    req.RSSI,
	})
	if err != nil {
		return err
	}
	pw := ""
	if req.Password != nil {
		pw = *req.Password
	}
	s.log.Info().Str("ssid", req.SSID).Str("secret", strx.Mask(pw)).Bool("connect", req.Connect).Msg("network provisioned")
	if !req.Connect {
		return nil
	}

	rec, err := s.store.Lookup(ctx, req.SSID)
	if err != nil {
		return err
	}
	cfg := radio.Config{SSID: rec.Name, Password: rec.Secret, Channel: rec.Channel, AuthMin: types.AuthOpen}
	if err := s.r.SetConfig(cfg); err != nil {
		return radio.Fail("wifi.add", err)
	}
	if err := s.r.Connect(cfg); err != nil {
		return radio.Fail("wifi.add", err)
	}
	s.orch.NoteAttempt(cfg)
	return nil
}

func (s *Service) list(ctx context.Context, payload any) (types.ListReply, error) {
	var req types.ListRequest
	if err := decode(payload, &req); err != nil {
		return types.ListReply{}, err
	}
	recs, err := s.store.List(ctx, req.Max)
	if err != nil {
		return types.ListReply{}, err
	}
	return types.ListReply{OK: true, Networks: infos(recs)}, nil
}

// smartConnect runs one auto-connect pass off the control loop and replies
// when it finishes. Overlapping requests are refused.
func (s *Service) smartConnect(ctx context.Context, msg *bus.Message) {
	if !s.connecting.CompareAndSwap(false, true) {
		s.replyErr(msg, errcode.Busy)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.connecting.Store(false)
		if err := s.loop.AutoConnect(ctx); err != nil {
			s.log.Warn().Err(err).Msg("smart connect failed")
			s.replyErr(msg, err)
			return
		}
		s.conn.Reply(msg, types.OKReply{OK: true}, false)
	}()
}

func infos(recs []types.NetworkRecord) []types.NetworkInfo {
	out := make([]types.NetworkInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.NetworkInfoOf(r))
	}
	return out
}
