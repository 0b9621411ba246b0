package conhost

import (
	"encoding/binary"

	"github.com/danielgatis/go-conhost/condrv"
)

// consoleInputIoctl routes one request targeted at the console input side.
func (c *Console) consoleInputIoctl(code condrv.Opcode, in []byte, outSize int) ([]byte, condrv.Status) {
	switch code {
	case condrv.GetMode:
		if len(in) != 0 || outSize != 4 {
			return nil, condrv.StatusInvalidParameter
		}
		return le32(c.mode), condrv.StatusSuccess

	case condrv.SetMode:
		if len(in) != 4 || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		c.mode = binary.LittleEndian.Uint32(in)
		c.logger.Debug("set input mode", "mode", c.mode)
		return nil, condrv.StatusSuccess

	case condrv.ReadInput:
		if len(in) != 0 && len(in) != 4 {
			return nil, condrv.StatusInvalidParameter
		}
		blocking := len(in) == 4 && binary.LittleEndian.Uint32(in) != 0
		if blocking && len(c.records) == 0 && outSize > 0 {
			if c.pendingRead != 0 {
				// At most one read can be parked.
				return nil, condrv.StatusInvalidParameter
			}
			c.logger.Debug("read parked", "size", outSize)
			c.pendingRead = outSize
			return nil, condrv.StatusPending
		}
		return nil, c.readConsoleInput(outSize)

	case condrv.WriteInput:
		if len(in)%condrv.InputRecordSize != 0 || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		records, err := condrv.DecodeInputRecords(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return nil, c.writeConsoleInput(records)

	case condrv.Peek:
		if len(in) != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		count := minInt(outSize/condrv.InputRecordSize, len(c.records))
		return condrv.EncodeInputRecords(c.records[:count]), condrv.StatusSuccess

	case condrv.GetInputInfo:
		if len(in) != 0 || outSize != condrv.InputInfoSize {
			return nil, condrv.StatusInvalidParameter
		}
		info := condrv.InputInfo{
			InputCodepage:  c.inputCP,
			OutputCodepage: c.outputCP,
			HistoryMode:    c.historyMode,
			HistorySize:    uint32(c.history.Size()),
			HistoryIndex:   uint32(c.history.Len()),
			EditionMode:    c.editionMode,
			InputCount:     uint32(len(c.records)),
			Win:            c.win,
		}
		return info.Encode(), condrv.StatusSuccess

	case condrv.SetInputInfo:
		if len(in) != condrv.InputInfoParamsSize || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		params, err := condrv.DecodeInputInfoParams(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return nil, c.setInputInfo(&params)

	case condrv.GetTitle:
		if len(in) != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		out := utf16Bytes(c.title)
		if len(out) > outSize {
			out = out[:outSize]
		}
		return out, condrv.StatusSuccess

	case condrv.SetTitle:
		if len(in)%2 != 0 || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		return nil, c.setConsoleTitle(utf16Units(in))
	}

	c.logger.Warn("unsupported input request", "code", uint32(code))
	return nil, condrv.StatusNotSupported
}

// writeConsoleInput appends records to the input queue. With processed input
// enabled, Ctrl-C key records never reach the queue: they are removed and
// each key-down one is raised as a control event through the server. A read
// parked on the queue is completed if records remain.
func (c *Console) writeConsoleInput(records []condrv.InputRecord) condrv.Status {
	if len(records) == 0 {
		return condrv.StatusSuccess
	}

	if len(c.records)+len(records) > cap(c.records) {
		grown := make([]condrv.InputRecord, len(c.records), 2*cap(c.records)+len(records))
		copy(grown, c.records)
		c.records = grown
	}

	appended := 0
	for i := range records {
		record := records[i]
		if c.mode&condrv.EnableProcessedInput != 0 && record.IsCtrlC() {
			if record.Key.KeyDown && c.conn != nil {
				if err := c.conn.CtrlEvent(condrv.CtrlCEvent, 0); err != nil {
					c.logger.Warn("ctrl event failed", "error", err)
				}
			}
			continue
		}
		c.records = append(c.records, record)
		appended++
	}

	if appended > 0 && c.pendingRead != 0 {
		size := c.pendingRead
		c.pendingRead = 0
		c.readConsoleInput(size)
	}
	return condrv.StatusSuccess
}

// readConsoleInput sends up to size bytes of records from the head of the
// queue through the server's read channel and removes them from the queue.
func (c *Console) readConsoleInput(size int) condrv.Status {
	count := minInt(size/condrv.InputRecordSize, len(c.records))
	data := condrv.EncodeInputRecords(c.records[:count])
	signal := count < len(c.records)

	if c.conn != nil {
		if err := c.conn.Read(condrv.Reply{Status: condrv.StatusSuccess, Data: data, Signal: signal}); err != nil {
			c.logger.Error("read completion failed", "error", err)
			return condrv.StatusInvalidHandle
		}
	}

	remaining := copy(c.records, c.records[count:])
	c.records = c.records[:remaining]
	return condrv.StatusSuccess
}

// setInputInfo applies a mask-driven update of the console meta state.
func (c *Console) setInputInfo(params *condrv.InputInfoParams) condrv.Status {
	info := &params.Info
	if params.Mask&condrv.SetInputInfoHistoryMode != 0 {
		c.historyMode = info.HistoryMode
	}
	if params.Mask&condrv.SetInputInfoHistorySize != 0 {
		c.history.Resize(int(info.HistorySize))
	}
	if params.Mask&condrv.SetInputInfoEditionMode != 0 {
		c.editionMode = info.EditionMode
	}
	if params.Mask&condrv.SetInputInfoInputCodepage != 0 {
		c.inputCP = info.InputCodepage
	}
	if params.Mask&condrv.SetInputInfoOutputCodepage != 0 {
		c.outputCP = info.OutputCodepage
	}
	if params.Mask&condrv.SetInputInfoWin != 0 {
		c.win = info.Win
	}
	return condrv.StatusSuccess
}

// setConsoleTitle replaces the title and pushes it to the terminal as an
// OSC 0 sequence.
func (c *Console) setConsoleTitle(title []uint16) condrv.Status {
	c.title = append([]uint16(nil), title...)

	if c.tty.out != nil {
		c.ttyWriteString("\x1b]0;")
		c.ttyWriteString(utf16String(c.title))
		c.ttyWriteString("\x07")
		c.ttySync()
	}
	return condrv.StatusSuccess
}
