package wifi

import (
	"context"
	"encoding/json"

	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/internal/history"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/nvs"
)

// recovery keeps the boot hints next to the history table: whether the
// last connection attempt failed and the last station config that worked.
type recovery struct {
	kv nvs.Store
}

func (r recovery) SetConnectionFailed(failed bool) error {
	h, err := r.kv.OpenNamespace(consts.NSState, nvs.ReadWrite)
	if err != nil {
		return err
	}
	defer h.Close()
	var v uint8
	if failed {
		v = 1
	}
	if err := h.SetU8(consts.KeyConnectionFailed, v); err != nil {
		return err
	}
	return h.Commit()
}

// ConnectionFailed reports the stored flag; a missing flag reads as false.
func (r recovery) ConnectionFailed() bool {
	h, err := r.kv.OpenNamespace(consts.NSState, nvs.ReadOnly)
	if err != nil {
		return false
	}
	defer h.Close()
	v, err := h.GetU8(consts.KeyConnectionFailed)
	return err == nil && v != 0
}

func (r recovery) SaveStationConfig(cfg radio.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	h, err := r.kv.OpenNamespace(consts.NSConfig, nvs.ReadWrite)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := h.SetBlob(consts.KeySTAConfig, b); err != nil {
		return err
	}
	return h.Commit()
}

func (r recovery) LoadStationConfig() (radio.Config, error) {
	var cfg radio.Config
	h, err := r.kv.OpenNamespace(consts.NSConfig, nvs.ReadOnly)
	if err != nil {
		return cfg, err
	}
	defer h.Close()
	b, err := h.GetBlob(consts.KeySTAConfig)
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(b, &cfg)
	return cfg, err
}

// Networks reads the remembered networks from kv in rank order without
// starting the service.
func Networks(ctx context.Context, kv nvs.Store) ([]types.NetworkInfo, error) {
	s := history.New(kv)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	recs, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	return infos(recs), nil
}
