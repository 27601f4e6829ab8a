package history

import (
	"math"

	"wificode-go/types"
	"wificode-go/x/mathx"
)

const (
	Capacity     = 10
	BasePriority = 100
	PriorityStep = 10
)

// NetworkParams is the input of Upsert. A nil Secret keeps the stored one;
// a zero BSSID keeps the stored one.
type NetworkParams struct {
	Name    string
	Secret  *string
	BSSID   types.BSSID
	Channel uint8
	Auth    types.AuthMode
	RSSI    int
}

// Less reports whether a ranks ahead of b: higher priority first, then the
// more recent connection.
func Less(a, b types.NetworkRecord) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.LastConnected > b.LastConnected
}

// priorityFor maps a success count to a priority, saturating at 255.
func priorityFor(successes uint32) uint8 {
	if successes == 0 {
		return BasePriority
	}
	p := uint64(BasePriority) + uint64(successes-1)*PriorityStep
	return uint8(mathx.Min(p, math.MaxUint8))
}

// evictionLess reports whether a should be evicted before b.
func evictionLess(a, b types.NetworkRecord) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.LastConnected < b.LastConnected
}
