// Package selector picks which remembered network to join from a live scan.
package selector

import (
	"wificode-go/errcode"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
)

// Signal floors in dBm. A candidate must be strictly above the floor.
const (
	FloorViable     = -85
	FloorAcceptable = -80
)

// Match is the chosen record and the scan entry it was matched against.
type Match struct {
	Record types.NetworkRecord
	Scan   types.ScanCandidate
}

// FindBest walks ranked (highest rank first) and returns the strongest
// visible network above floor. For each record the strongest matching
// scan entry is used, preferring the stored BSSID on equal signal. Across
// records a later candidate wins only if it is strictly stronger, or equally
// strong with a higher priority.
func FindBest(ranked []types.NetworkRecord, scans []types.ScanCandidate, floor int) (Match, error) {
	var best Match
	found := false
	for _, rec := range ranked {
		if !rec.Valid {
			continue
		}
		sc, ok := bestEntry(rec, scans, floor)
		if !ok {
			continue
		}
		if !found ||
			sc.RSSI > best.Scan.RSSI ||
			(sc.RSSI == best.Scan.RSSI && rec.Priority > best.Record.Priority) {
			best = Match{Record: rec, Scan: sc}
			found = true
		}
	}
	if !found {
		return Match{}, errcode.New(errcode.NotFound, "selector.find_best", "no remembered network in range")
	}
	return best, nil
}

func bestEntry(rec types.NetworkRecord, scans []types.ScanCandidate, floor int) (types.ScanCandidate, bool) {
	var best types.ScanCandidate
	found := false
	for _, sc := range scans {
		if sc.SSID != rec.Name || sc.RSSI <= floor {
			continue
		}
		switch {
		case !found, sc.RSSI > best.RSSI:
		case sc.RSSI == best.RSSI && pinned(rec, sc) && !pinned(rec, best):
		default:
			continue
		}
		best = sc
		found = true
	}
	return best, found
}

func pinned(rec types.NetworkRecord, sc types.ScanCandidate) bool {
	return !rec.BSSID.IsZero() && rec.BSSID == sc.BSSID
}

// ConnectConfig builds the connect request for m. The BSSID pin is set only
// when the stored BSSID is non-zero and equals the scanned one; a stale pin
// must never block joining by name.
func ConnectConfig(m Match) radio.Config {
	cfg := radio.Config{
		SSID:     m.Record.Name,
		Password: m.Record.Secret,
		Channel:  m.Scan.Channel,
		AuthMin:  types.AuthOpen,
	}
	if pinned(m.Record, m.Scan) {
		cfg.BSSID = m.Record.BSSID
		cfg.BSSIDSet = true
	}
	return cfg
}
