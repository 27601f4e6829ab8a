package types

import "strconv"

// DisconnectReason is the radio's numeric disconnect code (802.11 reason
// codes below 200, vendor codes from 200).
type DisconnectReason uint8

const (
	ReasonUnspecified             DisconnectReason = 1
	ReasonAuthExpire              DisconnectReason = 2
	ReasonAuthLeave               DisconnectReason = 3
	ReasonAssocExpire             DisconnectReason = 4
	ReasonAssocTooMany            DisconnectReason = 5
	ReasonNotAuthed               DisconnectReason = 6
	ReasonNotAssoced              DisconnectReason = 7
	ReasonAssocLeave              DisconnectReason = 8
	ReasonAssocNotAuthed          DisconnectReason = 9
	ReasonDisassocPwrcapBad       DisconnectReason = 10
	ReasonDisassocSupchanBad      DisconnectReason = 11
	ReasonIEInvalid               DisconnectReason = 13
	ReasonMICFailure              DisconnectReason = 14
	Reason4WayHandshakeTimeout    DisconnectReason = 15
	ReasonGroupKeyUpdateTimeout   DisconnectReason = 16
	ReasonIEIn4WayDiffers         DisconnectReason = 17
	ReasonGroupCipherInvalid      DisconnectReason = 18
	ReasonPairwiseCipherInvalid   DisconnectReason = 19
	ReasonAKMPInvalid             DisconnectReason = 20
	ReasonUnsuppRSNIEVersion      DisconnectReason = 21
	ReasonInvalidRSNIECap         DisconnectReason = 22
	Reason8021XAuthFailed         DisconnectReason = 23
	ReasonCipherSuiteRejected     DisconnectReason = 24
	ReasonBeaconTimeout           DisconnectReason = 200
	ReasonNoAPFound               DisconnectReason = 201
	ReasonAuthFail                DisconnectReason = 202
	ReasonAssocFail               DisconnectReason = 203
	ReasonHandshakeTimeout        DisconnectReason = 204
	ReasonConnectionFail          DisconnectReason = 205
)

var reasonNames = map[DisconnectReason]string{
	ReasonUnspecified:           "UNSPECIFIED",
	ReasonAuthExpire:            "AUTH_EXPIRE",
	ReasonAuthLeave:             "AUTH_LEAVE",
	ReasonAssocExpire:           "ASSOC_EXPIRE",
	ReasonAssocTooMany:          "ASSOC_TOOMANY",
	ReasonNotAuthed:             "NOT_AUTHED",
	ReasonNotAssoced:            "NOT_ASSOCED",
	ReasonAssocLeave:            "ASSOC_LEAVE",
	ReasonAssocNotAuthed:        "ASSOC_NOT_AUTHED",
	ReasonDisassocPwrcapBad:     "DISASSOC_PWRCAP_BAD",
	ReasonDisassocSupchanBad:    "DISASSOC_SUPCHAN_BAD",
	ReasonIEInvalid:             "IE_INVALID",
	ReasonMICFailure:            "MIC_FAILURE",
	Reason4WayHandshakeTimeout:  "4WAY_HANDSHAKE_TIMEOUT",
	ReasonGroupKeyUpdateTimeout: "GROUP_KEY_UPDATE_TIMEOUT",
	ReasonIEIn4WayDiffers:       "IE_IN_4WAY_DIFFERS",
	ReasonGroupCipherInvalid:    "GROUP_CIPHER_INVALID",
	ReasonPairwiseCipherInvalid: "PAIRWISE_CIPHER_INVALID",
	ReasonAKMPInvalid:           "AKMP_INVALID",
	ReasonUnsuppRSNIEVersion:    "UNSUPP_RSN_IE_VERSION",
	ReasonInvalidRSNIECap:       "INVALID_RSN_IE_CAP",
	Reason8021XAuthFailed:       "802_1X_AUTH_FAILED",
	ReasonCipherSuiteRejected:   "CIPHER_SUITE_REJECTED",
	ReasonBeaconTimeout:         "BEACON_TIMEOUT",
	ReasonNoAPFound:             "NO_AP_FOUND",
	ReasonAuthFail:              "AUTH_FAIL",
	ReasonAssocFail:             "ASSOC_FAIL",
	ReasonHandshakeTimeout:      "HANDSHAKE_TIMEOUT",
	ReasonConnectionFail:        "CONNECTION_FAIL",
}

// String renders the display name, or "UNKNOWN(n)" for codes outside the
// table.
func (r DisconnectReason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return "UNKNOWN(" + strconv.Itoa(int(r)) + ")"
}

// ReasonBucket groups disconnect reasons by retry policy.
type ReasonBucket uint8

const (
	BucketOther ReasonBucket = iota
	BucketAPNotFound
	BucketAuth
)

func (b ReasonBucket) String() string {
	switch b {
	case BucketAPNotFound:
		return "ap_not_found"
	case BucketAuth:
		return "auth"
	}
	return "other"
}

// Bucket classifies r. Auth failures and handshake timeouts mean the
// credentials are wrong and retrying will not help.
func (r DisconnectReason) Bucket() ReasonBucket {
	switch r {
	case ReasonNoAPFound:
		return BucketAPNotFound
	case ReasonAuthFail, Reason4WayHandshakeTimeout, ReasonHandshakeTimeout:
		return BucketAuth
	}
	return BucketOther
}
