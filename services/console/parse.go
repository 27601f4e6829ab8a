package console

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"wificode-go/services/wifi/consts"
	"wificode-go/types"
)

var (
	ErrEmpty   = errors.New("empty command")
	ErrUsage   = errors.New("usage")
	errUnknown = errors.New("unknown command")
)

const usage = `commands:
  wifi list [max]
  wifi scan
  wifi add <ssid> [password] [--bssid xx:xx:xx:xx:xx:xx] [--channel n] [--connect]
  wifi remove <ssid>
  wifi clear
  wifi connect
  wifi reset
  wifi state`

// Command is one parsed console line: the control verb and its payload.
type Command struct {
	Verb    string
	Payload any
}

// Parse tokenizes line with shell quoting rules and maps it to a control
// request. "help" yields ErrUsage.
func Parse(line string) (Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Command{}, err
	}
	if len(args) == 0 {
		return Command{}, ErrEmpty
	}
	if args[0] == "help" || args[0] == "?" {
		return Command{}, ErrUsage
	}
	if args[0] != consts.TokWiFi || len(args) < 2 {
		return Command{}, errUnknown
	}
	verb, rest := args[1], args[2:]

	switch verb {
	case "list", "ls":
		req := types.ListRequest{}
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				return Command{}, err
			}
			req.Max = n
		}
		return Command{Verb: consts.CtrlList, Payload: req}, nil
	case "add":
		return parseAdd(rest)
	case "remove", "rm", "forget":
		if len(rest) != 1 {
			return Command{}, ErrUsage
		}
		return Command{Verb: consts.CtrlRemove, Payload: types.NetworkRef{SSID: rest[0]}}, nil
	case "reset":
		return Command{Verb: consts.CtrlResetRetry}, nil
	case consts.CtrlScan, consts.CtrlClear, consts.CtrlConnect, consts.CtrlState:
		if len(rest) != 0 {
			return Command{}, ErrUsage
		}
		return Command{Verb: verb}, nil
	}
	return Command{}, errUnknown
}

func parseAdd(args []string) (Command, error) {
	var (
		req types.NetworkAdd
		pos []string
	)
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--connect":
			req.Connect = true
		case a == "--bssid" || a == "--channel":
			if i+1 >= len(args) {
				return Command{}, ErrUsage
			}
			i++
			if a == "--bssid" {
				b, err := types.ParseBSSID(args[i])
				if err != nil {
					return Command{}, err
				}
				req.BSSID = b
				continue
			}
			ch, err := strconv.ParseUint(args[i], 10, 8)
			if err != nil {
				return Command{}, err
			}
			req.Channel = uint8(ch)
		case strings.HasPrefix(a, "--"):
			return Command{}, ErrUsage
		default:
			pos = append(pos, a)
		}
	}
	switch len(pos) {
	case 2:
		pw := pos[1]
		req.Password = &pw
		fallthrough
	case 1:
		req.SSID = pos[0]
	default:
		return Command{}, ErrUsage
	}
	return Command{Verb: consts.CtrlAdd, Payload: req}, nil
}
