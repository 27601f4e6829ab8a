package config

// Embedded configuration, keyed by device ID (the value placed in ctx under
// CtxDeviceKey).

const cfgPico = `{
  "log": {
    "level": "info"
  },
  "wifi": {
    "auto_connect": true,
    "signal_floor": -85,
    "max_retries": 5,
    "backoff_ms": 1000
  },
  "heartbeat": {
    "interval": 30
  }
}`

const cfgSim = `{
  "log": {
    "level": "debug"
  },
  "wifi": {
    "auto_connect": true,
    "boot_delay_ms": 1000,
    "retry_interval_ms": 5000,
    "cooldown_ms": 15000
  },
  "heartbeat": {
    "interval": 5
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"sim":  []byte(cfgSim),
}
