// Package console is a line-oriented operator shell over a serial port
// that turns "wifi ..." commands into wifi/control requests.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"wificode-go/bus"
	"wificode-go/services/wifi/consts"
	"wificode-go/x/logx"
)

const (
	defaultTimeout = 10 * time.Second
	maxLine        = 256
	prompt         = "> "
)

// Port is a byte stream the console reads lines from and writes replies to.
type Port interface {
	io.Writer
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

type Console struct {
	conn    *bus.Connection
	port    Port
	Timeout time.Duration
	log     zerolog.Logger
}

func New(conn *bus.Connection, port Port) *Console {
	return &Console{conn: conn, port: port, Timeout: defaultTimeout, log: logx.WithComponent("console")}
}

// Start runs the console on its own goroutine.
func (c *Console) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Run reads lines until ctx is done or the port fails.
func (c *Console) Run(ctx context.Context) {
	var (
		buf  [64]byte
		line []byte
	)
	c.write(prompt)
	for {
		n, err := c.port.RecvSomeContext(ctx, buf[:])
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				c.log.Warn().Err(err).Msg("console read failed")
			}
			return
		}
		for _, b := range buf[:n] {
			switch b {
			case '\r', '\n':
				if len(line) == 0 {
					continue
				}
				c.write(c.Exec(ctx, string(line)) + "\n" + prompt)
				line = line[:0]
			default:
				if len(line) < maxLine {
					line = append(line, b)
				}
			}
		}
	}
}

// Exec runs one command line and returns the text to print.
func (c *Console) Exec(ctx context.Context, line string) string {
	cmd, err := Parse(line)
	switch {
	case errors.Is(err, ErrEmpty):
		return ""
	case errors.Is(err, ErrUsage):
		return usage
	case err != nil:
		return "error: " + err.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	msg := c.conn.NewMessage(bus.T(consts.TokWiFi, consts.TokControl, cmd.Verb), cmd.Payload, false)
	reply, err := c.conn.RequestWait(ctx, msg)
	if err != nil {
		return "error: " + err.Error()
	}
	out, err := json.MarshalIndent(reply.Payload, "", "  ")
	if err != nil {
		return "error: " + err.Error()
	}
	return string(out)
}

func (c *Console) write(s string) {
	if _, err := io.WriteString(c.port, s); err != nil {
		c.log.Debug().Err(err).Msg("console write failed")
	}
}
