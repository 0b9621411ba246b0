package conhost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielgatis/go-conhost/condrv"
)

func TestServeDispatchesScript(t *testing.T) {
	conn := newScriptConn(
		condrv.Request{Code: condrv.InitOutput, Output: 5},
		condrv.Request{Code: condrv.GetMode, Output: 5, OutSize: 4},
		condrv.Request{Code: condrv.CloseOutput, Output: 5},
	)
	c := New(WithSize(8, 4))

	err := c.Serve(context.Background(), conn)
	require.Error(t, err, "script exhaustion surfaces as a transport error")

	// One initial empty reply, then one per request.
	require.Len(t, conn.replies, 4)
	assert.Equal(t, condrv.StatusSuccess, conn.replies[1].Status)
	assert.Equal(t, condrv.StatusSuccess, conn.replies[2].Status)
	assert.Len(t, conn.replies[2].Data, 4)
	assert.Equal(t, condrv.StatusSuccess, conn.replies[3].Status)
	assert.Nil(t, c.Buffer(5))
}

func TestServeInitOutputUsesActiveDimensions(t *testing.T) {
	c := New(WithSize(8, 4))
	require.NoError(t, c.Init())

	conn := newScriptConn(condrv.Request{Code: condrv.InitOutput, Output: 2})
	c.Serve(context.Background(), conn)

	sb := c.Buffer(2)
	require.NotNil(t, sb)
	w, h := sb.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)
}

func TestServeInitOutputDuplicateIDFails(t *testing.T) {
	c := New(WithSize(8, 4))
	require.NoError(t, c.Init())

	conn := newScriptConn(condrv.Request{Code: condrv.InitOutput, Output: 1})
	c.Serve(context.Background(), conn)

	require.Len(t, conn.replies, 2)
	assert.Equal(t, condrv.StatusInvalidParameter, conn.replies[1].Status)
}

func TestServeGrowsScratchBufferAndRetries(t *testing.T) {
	big := make([]condrv.InputRecord, 400)
	for i := range big {
		big[i] = condrv.NewKeyEvent(true, uint16('a'+i%26), 0)
	}
	payload := condrv.EncodeInputRecords(big) // 8000 bytes, over the initial scratch size

	conn := newScriptConn(condrv.Request{Code: condrv.WriteInput, Output: 0, In: payload})
	c := New(WithSize(8, 4))
	c.Serve(context.Background(), conn)

	assert.Equal(t, len(big), c.InputCount())
	// The retried fetch does not consume an extra reply slot.
	require.Len(t, conn.replies, 2)
	assert.Equal(t, condrv.StatusSuccess, conn.replies[1].Status)
	assert.True(t, conn.replies[1].Signal, "records are queued after the write")
}

func TestServePendingReadLifecycle(t *testing.T) {
	record := condrv.NewKeyEvent(true, 'k', 0)
	conn := newScriptConn(
		condrv.Request{Code: condrv.ReadInput, Output: 0, In: le32(1), OutSize: condrv.InputRecordSize},
		condrv.Request{Code: condrv.WriteInput, Output: 0, In: condrv.EncodeInputRecords([]condrv.InputRecord{record})},
	)
	c := New(WithSize(8, 4))
	c.Serve(context.Background(), conn)

	require.Len(t, conn.replies, 3)
	assert.Equal(t, condrv.StatusPending, conn.replies[1].Status)
	assert.Empty(t, conn.replies[1].Data)

	// The write released the park: the read completed out of band and the
	// queue is empty again.
	require.Len(t, conn.reads, 1)
	decoded, err := condrv.DecodeInputRecords(conn.reads[0].Data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, record, decoded[0])

	assert.Equal(t, condrv.StatusSuccess, conn.replies[2].Status)
	assert.False(t, conn.replies[2].Signal)
	assert.Equal(t, 0, c.InputCount())
}

func TestServeCtrlEventThroughDispatch(t *testing.T) {
	conn := newScriptConn(
		condrv.Request{
			Code: condrv.WriteInput, Output: 0,
			In: condrv.EncodeInputRecords([]condrv.InputRecord{condrv.NewKeyEvent(true, 0x03, 0)}),
		},
	)
	c := New(WithSize(8, 4))
	c.Serve(context.Background(), conn)

	require.Len(t, conn.ctrlEvents, 1)
	assert.Equal(t, condrv.CtrlCEvent, conn.ctrlEvents[0].Event)
	assert.Equal(t, uint32(0), conn.ctrlEvents[0].GroupID)
	assert.Equal(t, 0, c.InputCount())
}

func TestServeErrorRepliesAreEmpty(t *testing.T) {
	conn := newScriptConn(
		condrv.Request{Code: condrv.GetMode, Output: 9, OutSize: 4}, // no such buffer
	)
	c := New(WithSize(8, 4))
	c.Serve(context.Background(), conn)

	require.Len(t, conn.replies, 2)
	assert.Equal(t, condrv.StatusInvalidHandle, conn.replies[1].Status)
	assert.Empty(t, conn.replies[1].Data)
}

// waitConn blocks in Next until closed, emulating an idle transport.
type waitConn struct {
	scriptConn
	once sync.Once
	quit chan struct{}
}

func newWaitConn() *waitConn {
	return &waitConn{quit: make(chan struct{})}
}

func (c *waitConn) Next(reply condrv.Reply, buf []byte) (condrv.Request, error) {
	<-c.quit
	return c.scriptConn.Next(reply, buf)
}

func (c *waitConn) Close() error {
	c.once.Do(func() { close(c.quit) })
	return c.scriptConn.Close()
}

func TestServeStopsOnContextCancel(t *testing.T) {
	conn := newWaitConn()
	c := New(WithSize(8, 4))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, conn) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop on cancellation")
	}
}
