// Package config publishes the device configuration as retained
// config/<key> messages, one per top-level key.
package config

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"wificode-go/bus"
	"wificode-go/x/logx"
	"wificode-go/x/strx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
	// Path, when set, replaces the embedded config with a JSON or YAML file.
	Path string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Parse decodes a JSON or YAML document into its top-level keys.
func Parse(raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("config is not an object")
	}
	return m, nil
}

func (s *ConfigService) load(ctx context.Context) ([]byte, error) {
	if s.Path != "" {
		return os.ReadFile(s.Path)
	}
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return nil, errors.New("missing device ID in context")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}
	return raw, nil
}

// publishConfig publishes every top-level key as a retained message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	raw, err := s.load(ctx)
	if err != nil {
		return err
	}
	m, err := Parse(raw)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		log := logx.WithComponent(serviceName)
		if err := s.publishConfig(ctx, conn); err != nil {
			log.Error().Err(err).Msg("config not published")
			return
		}
		log.Info().Str("source", s.source()).Msg("config published")
	}()
}

func (s *ConfigService) source() string { return strx.Coalesce(s.Path, "embedded") }
