// Package lsp serves completion, calltips, definitions and occurrences for
// Python buffers over the Language Server Protocol.
package lsp

import (
	"context"
	"io"

	"github.com/sourcegraph/jsonrpc2"
)

// Serve runs s on the given streams until the client disconnects or ctx is
// done.
func Serve(ctx context.Context, in io.ReadCloser, out io.WriteCloser, s *Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(transport{in, out}, jsonrpc2.VSCodeObjectCodec{}),
		s.Handler())
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
	}
	return nil
}

type transport struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
