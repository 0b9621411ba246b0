package conhost

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgatis/go-conhost/condrv"
)

// serveBufferSize is the initial size of the request scratch buffer. It
// grows when the server reports a larger payload and never shrinks.
const serveBufferSize = 4096

// Serve drains requests from the server connection until the context is
// cancelled or the transport fails. Each reply rides along with the fetch of
// the next request. Cancelling the context closes the connection, which
// unblocks the fetch; buffered terminal output is flushed before returning.
func (c *Console) Serve(ctx context.Context, conn condrv.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scratch := make([]byte, serveBufferSize)
	reply := condrv.Reply{Status: condrv.StatusSuccess}

	for {
		req, err := conn.Next(reply, scratch)
		if err != nil {
			var tooSmall *condrv.BufferTooSmallError
			if errors.As(err, &tooSmall) {
				// Grow and retry the same fetch; the reply was already
				// delivered with the first attempt.
				scratch = make([]byte, tooSmall.Size)
				reply = condrv.Reply{Status: condrv.StatusSuccess}
				continue
			}

			c.mu.Lock()
			c.ttyFlush()
			c.mu.Unlock()
			if ctx.Err() != nil {
				c.logger.Debug("shutdown signaled")
				return nil
			}
			return fmt.Errorf("conhost: get next request: %w", err)
		}

		c.mu.Lock()
		data, st := c.dispatch(req)
		if st != condrv.StatusSuccess {
			data = nil
		}
		reply = condrv.Reply{Status: st, Data: data, Signal: len(c.records) != 0}
		c.mu.Unlock()
	}
}

// dispatch routes one request: InitOutput creates a buffer, target 0 is the
// console input side, and any other target names a screen buffer.
func (c *Console) dispatch(req condrv.Request) ([]byte, condrv.Status) {
	c.logger.Debug("request", "code", req.Code.String(), "output", req.Output,
		"in", len(req.In), "out", req.OutSize)

	if req.Code == condrv.InitOutput {
		width, height := c.defaultWidth, c.defaultHeight
		if c.active != nil {
			width, height = c.active.width, c.active.height
		}
		_, st := c.createScreenBuffer(req.Output, width, height)
		return nil, st
	}

	if req.Output == 0 {
		return c.consoleInputIoctl(req.Code, req.In, int(req.OutSize))
	}

	sb, ok := c.buffers[req.Output]
	if !ok {
		c.logger.Error("invalid screen buffer id", "id", req.Output)
		return nil, condrv.StatusInvalidHandle
	}
	return c.screenBufferIoctl(sb, req.Code, req.In, int(req.OutSize))
}
