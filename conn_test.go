package conhost

import (
	"io"
	"sync"

	"github.com/danielgatis/go-conhost/condrv"
)

// scriptConn feeds a fixed request sequence to the dispatcher and records
// everything the host sends back. Next returns io.EOF once the script is
// exhausted, which ends Serve.
type scriptConn struct {
	mu sync.Mutex

	requests []condrv.Request
	next     int
	pending  bool

	replies    []condrv.Reply
	reads      []condrv.Reply
	ctrlEvents []condrv.CtrlEventParams
	closed     bool
}

var _ condrv.Conn = (*scriptConn)(nil)

func newScriptConn(requests ...condrv.Request) *scriptConn {
	return &scriptConn{requests: requests}
}

func (c *scriptConn) Next(reply condrv.Reply, buf []byte) (condrv.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending {
		reply.Data = append([]byte(nil), reply.Data...)
		c.replies = append(c.replies, reply)
	}
	c.pending = false

	if c.closed {
		return condrv.Request{}, io.ErrClosedPipe
	}
	if c.next >= len(c.requests) {
		return condrv.Request{}, io.EOF
	}

	req := c.requests[c.next]
	if len(req.In) > len(buf) {
		c.pending = true
		return condrv.Request{}, &condrv.BufferTooSmallError{Size: len(req.In)}
	}
	c.next++
	n := copy(buf, req.In)
	req.In = buf[:n]
	return req, nil
}

func (c *scriptConn) Read(reply condrv.Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply.Data = append([]byte(nil), reply.Data...)
	c.reads = append(c.reads, reply)
	return nil
}

func (c *scriptConn) CtrlEvent(event int32, groupID uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctrlEvents = append(c.ctrlEvents, condrv.CtrlEventParams{Event: event, GroupID: groupID})
	return nil
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
