package types

import (
	"encoding/hex"
	"errors"
	"net/netip"
	"strings"
)

// Field bounds of a remembered network.
const (
	MaxSSIDLen   = 32
	MaxSecretLen = 64
)

// ---- Station identifier ----

// BSSID is the hardware address of one access point radio.
// The zero value means "unset".
type BSSID [6]byte

var ErrBadBSSID = errors.New("invalid_bssid")

func (b BSSID) IsZero() bool { return b == BSSID{} }

func (b BSSID) String() string {
	var out [17]byte
	const digits = "0123456789abcdef"
	for i, v := range b {
		if i > 0 {
			out[i*3-1] = ':'
		}
		out[i*3] = digits[v>>4]
		out[i*3+1] = digits[v&0x0f]
	}
	return string(out[:])
}

// ParseBSSID accepts "aa:bb:cc:dd:ee:ff", "aa-bb-..." or 12 bare hex digits.
// An empty string yields the zero BSSID.
func ParseBSSID(s string) (BSSID, error) {
	var b BSSID
	if s == "" {
		return b, nil
	}
	clean := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(clean) != 12 {
		return b, ErrBadBSSID
	}
	if _, err := hex.Decode(b[:], []byte(clean)); err != nil {
		return BSSID{}, ErrBadBSSID
	}
	return b, nil
}

func (b BSSID) MarshalText() ([]byte, error) {
	if b.IsZero() {
		return []byte{}, nil
	}
	return []byte(b.String()), nil
}

func (b *BSSID) UnmarshalText(text []byte) error {
	v, err := ParseBSSID(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ---- Authentication mode ----

type AuthMode uint8

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPAWPA2PSK
	AuthWPA2Enterprise
	AuthWPA3PSK
	AuthWPA2WPA3PSK
)

var authNames = [...]string{
	AuthOpen:           "open",
	AuthWEP:            "wep",
	AuthWPAPSK:         "wpa_psk",
	AuthWPA2PSK:        "wpa2_psk",
	AuthWPAWPA2PSK:     "wpa_wpa2_psk",
	AuthWPA2Enterprise: "wpa2_enterprise",
	AuthWPA3PSK:        "wpa3_psk",
	AuthWPA2WPA3PSK:    "wpa2_wpa3_psk",
}

var ErrBadAuthMode = errors.New("invalid_auth_mode")

func (a AuthMode) String() string {
	if int(a) < len(authNames) {
		return authNames[a]
	}
	return "unknown"
}

func ParseAuthMode(s string) (AuthMode, error) {
	if s == "" {
		return AuthOpen, nil
	}
	for i, n := range authNames {
		if n == s {
			return AuthMode(i), nil
		}
	}
	return AuthOpen, ErrBadAuthMode
}

func (a AuthMode) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AuthMode) UnmarshalText(text []byte) error {
	v, err := ParseAuthMode(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ---- Remembered network ----

// NetworkRecord is one slot of the history table.
type NetworkRecord struct {
	Name          string
	Secret        string
	BSSID         BSSID
	Channel       uint8
	Auth          AuthMode
	RSSI          int8
	LastConnected uint32
	SuccessCount  uint32
	Priority      uint8
	Valid         bool
}

// ScanCandidate is one entry of a live scan. Never persisted.
type ScanCandidate struct {
	SSID    string   `json:"ssid" yaml:"ssid"`
	RSSI    int      `json:"rssi" yaml:"rssi"`
	BSSID   BSSID    `json:"bssid" yaml:"bssid"`
	Channel uint8    `json:"channel" yaml:"channel"`
	Auth    AuthMode `json:"auth" yaml:"auth"`
}

// ---- Driver events (topic wifi/event) ----

type WiFiEventKind uint8

const (
	EventStationStarted WiFiEventKind = iota
	EventConnected
	EventDisconnected
	EventIPAcquired
)

func (k WiFiEventKind) String() string {
	switch k {
	case EventStationStarted:
		return "station_started"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventIPAcquired:
		return "ip_acquired"
	}
	return "unknown"
}

// WiFiEvent is what a radio driver reports asynchronously. Fields not
// relevant to Kind are zero.
type WiFiEvent struct {
	Kind    WiFiEventKind
	SSID    string
	Channel uint8
	BSSID   BSSID
	Reason  DisconnectReason
	IP      netip.Addr
	Gateway netip.Addr
	Netmask netip.Addr
}

// ---- Orchestrator state (retained on wifi/state) ----

type ConnState string

const (
	StateIdle       ConnState = "idle"
	StateConnecting ConnState = "connecting"
	StateConnected  ConnState = "connected"
)

type WiFiState struct {
	State       ConnState `json:"state"`
	SSID        string    `json:"ssid,omitempty"`
	Retry       int       `json:"retry"`
	Reason      string    `json:"reason,omitempty"`
	BSSIDLocked bool      `json:"bssid_locked"`
	TS          int64     `json:"ts_ms"`
}

// NetInfo is retained on wifi/net once an address is acquired.
type NetInfo struct {
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
	Netmask string `json:"netmask"`
	TS      int64  `json:"ts_ms"`
}

// LinkInfo is the periodic link telemetry on wifi/link.
type LinkInfo struct {
	Link    Link   `json:"link"`
	SSID    string `json:"ssid,omitempty"`
	BSSID   string `json:"bssid,omitempty"`
	Channel uint8  `json:"channel,omitempty"`
	RSSI    int    `json:"rssi,omitempty"`
	IP      string `json:"ip,omitempty"`
	TS      int64  `json:"ts_ms"`
}

// ---- Control payloads (wifi/control/<verb>) ----

// NetworkAdd provisions a network. A nil Password leaves a stored secret
// untouched.
type NetworkAdd struct {
	SSID     string   `json:"ssid"`
	Password *string  `json:"password,omitempty"`
	BSSID    BSSID    `json:"bssid,omitempty"`
	Channel  uint8    `json:"channel,omitempty"`
	Auth     AuthMode `json:"auth,omitempty"`
	RSSI     int      `json:"rssi,omitempty"`
	Connect  bool     `json:"connect,omitempty"`
}

type NetworkRef struct {
	SSID string `json:"ssid"`
}

type ListRequest struct {
	Max int `json:"max,omitempty"`
}

// NetworkInfo is the externally visible view of a record; the secret
// never leaves the device.
type NetworkInfo struct {
	SSID          string   `json:"ssid"`
	BSSID         string   `json:"bssid,omitempty"`
	Channel       uint8    `json:"channel"`
	Auth          AuthMode `json:"auth"`
	RSSI          int      `json:"rssi"`
	Priority      uint8    `json:"priority"`
	SuccessCount  uint32   `json:"success_count"`
	LastConnected uint32   `json:"last_connected"`
	HasSecret     bool     `json:"has_secret"`
}

func NetworkInfoOf(r NetworkRecord) NetworkInfo {
	ni := NetworkInfo{
		SSID:          r.Name,
		Channel:       r.Channel,
		Auth:          r.Auth,
		RSSI:          int(r.RSSI),
		Priority:      r.Priority,
		SuccessCount:  r.SuccessCount,
		LastConnected: r.LastConnected,
		HasSecret:     r.Secret != "",
	}
	if !r.BSSID.IsZero() {
		ni.BSSID = r.BSSID.String()
	}
	return ni
}

type ListReply struct {
	OK       bool          `json:"ok"`
	Networks []NetworkInfo `json:"networks"`
}

type ScanReply struct {
	OK       bool            `json:"ok"`
	Networks []ScanCandidate `json:"networks"`
}

type StateReply struct {
	OK    bool      `json:"ok"`
	State WiFiState `json:"state"`
}
