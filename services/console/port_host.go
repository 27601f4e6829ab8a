//go:build !rp2040

package console

import (
	"context"
	"io"
	"os"
)

type streamPort struct {
	r io.Reader
	w io.Writer
}

// Stream adapts a reader and writer to a Port. A blocked Read is not
// interrupted by ctx; the result is dropped once ctx is done.
func Stream(r io.Reader, w io.Writer) Port { return &streamPort{r: r, w: w} }

// Stdio is the console on the process terminal.
func Stdio() Port { return Stream(os.Stdin, os.Stdout) }

func (p *streamPort) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *streamPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	tmp := make([]byte, len(buf))
	go func() {
		n, err := p.r.Read(tmp)
		ch <- result{n, err}
	}()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		copy(buf, tmp[:r.n])
		return r.n, r.err
	}
}
