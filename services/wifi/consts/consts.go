// Package consts holds the bus tokens shared by the wifi service and its
// clients.
package consts

// Top-level topics
const (
	TokConfig  = "config"
	TokWiFi    = "wifi"
	TokEvent   = "event"
	TokState   = "state"
	TokNet     = "net"
	TokLink    = "link"
	TokControl = "control"
	TokStatus  = "status"
)

// Control verbs (wifi/control/<verb>)
const (
	CtrlAdd        = "add"
	CtrlRemove     = "remove"
	CtrlClear      = "clear"
	CtrlList       = "list"
	CtrlScan       = "scan"
	CtrlConnect    = "connect"
	CtrlResetRetry = "reset_retry"
	CtrlState      = "state"
)

// Persistent namespaces and keys outside the history table.
const (
	NSState             = "wifi_state"
	KeyConnectionFailed = "connection_failed"
	NSConfig            = "wifi_config"
	KeySTAConfig        = "sta_config"
)
