package history

import (
	"encoding/binary"
	"errors"

	"wificode-go/types"
	"wificode-go/x/strx"
)

// Slot layout, little endian:
//
//	name[32] secret[64] bssid[6] channel auth rssi priority valid reserved
//	last_connected u32 success_count u32
const (
	offName     = 0
	offSecret   = offName + types.MaxSSIDLen
	offBSSID    = offSecret + types.MaxSecretLen
	offChannel  = offBSSID + 6
	offAuth     = offChannel + 1
	offRSSI     = offAuth + 1
	offPriority = offRSSI + 1
	offValid    = offPriority + 1
	offReserved = offValid + 1
	offLast     = offReserved + 1
	offSuccess  = offLast + 4

	RecordSize = offSuccess + 4
	ImageSize  = Capacity * RecordSize
)

var (
	errImageSize = errors.New("history: image size mismatch")
	errBadName   = errors.New("history: empty or duplicate name")
	errCount     = errors.New("history: count mismatch")
)

func encodeRecord(dst []byte, r types.NetworkRecord) {
	clear(dst[:RecordSize])
	if !r.Valid {
		return
	}
	copy(dst[offName:offSecret], r.Name)
	copy(dst[offSecret:offBSSID], r.Secret)
	copy(dst[offBSSID:offChannel], r.BSSID[:])
	dst[offChannel] = r.Channel
	dst[offAuth] = byte(r.Auth)
	dst[offRSSI] = byte(r.RSSI)
	dst[offPriority] = r.Priority
	dst[offValid] = 1
	binary.LittleEndian.PutUint32(dst[offLast:], r.LastConnected)
	binary.LittleEndian.PutUint32(dst[offSuccess:], r.SuccessCount)
}

func decodeRecord(src []byte) types.NetworkRecord {
	if src[offValid] == 0 {
		return types.NetworkRecord{}
	}
	var r types.NetworkRecord
	r.Name = strx.CString(src[offName:offSecret])
	r.Secret = strx.CString(src[offSecret:offBSSID])
	copy(r.BSSID[:], src[offBSSID:offChannel])
	r.Channel = src[offChannel]
	r.Auth = types.AuthMode(src[offAuth])
	r.RSSI = int8(src[offRSSI])
	r.Priority = src[offPriority]
	r.Valid = true
	r.LastConnected = binary.LittleEndian.Uint32(src[offLast:])
	r.SuccessCount = binary.LittleEndian.Uint32(src[offSuccess:])
	return r
}

// EncodeImage serializes the full slot array.
func EncodeImage(recs *[Capacity]types.NetworkRecord) []byte {
	b := make([]byte, ImageSize)
	for i := range recs {
		encodeRecord(b[i*RecordSize:], recs[i])
	}
	return b
}

// DecodeImage parses a slot array and checks it against the stored valid
// count. Empty or duplicate valid names make the image unusable.
func DecodeImage(b []byte, count uint8) ([Capacity]types.NetworkRecord, error) {
	var recs [Capacity]types.NetworkRecord
	if len(b) != ImageSize {
		return recs, errImageSize
	}
	seen := make(map[string]struct{}, Capacity)
	n := 0
	for i := range recs {
		r := decodeRecord(b[i*RecordSize : (i+1)*RecordSize])
		if r.Valid {
			if _, dup := seen[r.Name]; dup || r.Name == "" {
				return [Capacity]types.NetworkRecord{}, errBadName
			}
			seen[r.Name] = struct{}{}
			n++
		}
		recs[i] = r
	}
	if n != int(count) {
		return [Capacity]types.NetworkRecord{}, errCount
	}
	return recs, nil
}

func validCount(recs *[Capacity]types.NetworkRecord) uint8 {
	var n uint8
	for i := range recs {
		if recs[i].Valid {
			n++
		}
	}
	return n
}
