package condrv

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestFrame(code Opcode, output uint32, outSize int, in []byte) []byte {
	le := binary.LittleEndian
	buf := make([]byte, requestHeaderSize+len(in))
	le.PutUint32(buf[0:], uint32(code))
	le.PutUint32(buf[4:], output)
	le.PutUint32(buf[8:], uint32(outSize))
	le.PutUint32(buf[12:], uint32(len(in)))
	copy(buf[requestHeaderSize:], in)
	return buf
}

type serverFrame struct {
	kind   uint32
	status Status
	signal bool
	data   []byte
}

func readServerFrame(t *testing.T, conn net.Conn) serverFrame {
	t.Helper()
	hdr := make([]byte, replyHeaderSize)
	_, err := conn.Read(hdr)
	require.NoError(t, err)
	le := binary.LittleEndian
	frame := serverFrame{
		kind:   le.Uint32(hdr[0:]),
		status: Status(le.Uint32(hdr[4:])),
		signal: le.Uint32(hdr[8:])&replyFlagSignal != 0,
	}
	if size := le.Uint32(hdr[12:]); size > 0 {
		frame.data = make([]byte, size)
		_, err = conn.Read(frame.data)
		require.NoError(t, err)
	}
	return frame
}

func TestPipeConnNextDeliversReplyAndRequest(t *testing.T) {
	server, host := net.Pipe()
	conn := NewPipeConn(host)
	defer conn.Close()

	go func() {
		readServerFrame(t, server)
		server.Write(requestFrame(SetTitle, 0, 0, utf16LE("hi")))
	}()

	buf := make([]byte, 64)
	req, err := conn.Next(Reply{Status: StatusSuccess}, buf)
	require.NoError(t, err)
	assert.Equal(t, SetTitle, req.Code)
	assert.Equal(t, uint32(0), req.Output)
	assert.Equal(t, utf16LE("hi"), req.In)

	// The next fetch carries this request's status back.
	go func() {
		frame := readServerFrame(t, server)
		assert.Equal(t, frameReply, frame.kind)
		assert.Equal(t, StatusInvalidParameter, frame.status)
		server.Close()
	}()
	_, err = conn.Next(Reply{Status: StatusInvalidParameter}, buf)
	assert.Error(t, err)
}

func TestPipeConnBufferTooSmallRetry(t *testing.T) {
	server, host := net.Pipe()
	conn := NewPipeConn(host)
	defer conn.Close()

	payload := make([]byte, 128)
	for i := range payload {
		payload[i] = byte(i)
	}
	go func() {
		readServerFrame(t, server)
		server.Write(requestFrame(WriteInput, 0, 0, payload))
	}()

	small := make([]byte, 16)
	_, err := conn.Next(Reply{Status: StatusSuccess}, small)
	var tooSmall *BufferTooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.Equal(t, len(payload), tooSmall.Size)

	// The retry must not send another reply frame: the server is not read
	// again before the request payload is consumed.
	big := make([]byte, tooSmall.Size)
	req, err := conn.Next(Reply{Status: StatusSuccess}, big)
	require.NoError(t, err)
	assert.Equal(t, payload, req.In)
}

func TestPipeConnReadAndCtrlEventFrames(t *testing.T) {
	server, host := net.Pipe()
	conn := NewPipeConn(host)
	defer conn.Close()

	records := EncodeInputRecords([]InputRecord{NewKeyEvent(true, 'x', 0)})
	go func() {
		require.NoError(t, conn.Read(Reply{Status: StatusSuccess, Data: records, Signal: true}))
		require.NoError(t, conn.CtrlEvent(CtrlCEvent, 0))
	}()

	frame := readServerFrame(t, server)
	assert.Equal(t, frameRead, frame.kind)
	assert.True(t, frame.signal)
	assert.Equal(t, records, frame.data)

	frame = readServerFrame(t, server)
	assert.Equal(t, frameCtrlEvent, frame.kind)
	params, err := DecodeCtrlEventParams(frame.data)
	require.NoError(t, err)
	assert.Equal(t, CtrlCEvent, params.Event)
	assert.Equal(t, uint32(0), params.GroupID)
}
