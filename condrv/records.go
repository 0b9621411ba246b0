package condrv

import (
	"encoding/binary"
	"fmt"
)

// Input record event types.
const (
	KeyEvent              uint16 = 0x0001
	MouseEvent            uint16 = 0x0002
	WindowBufferSizeEvent uint16 = 0x0004
	MenuEvent             uint16 = 0x0008
	FocusEvent            uint16 = 0x0010
)

// Control key state bits of a key event.
const (
	RightAltPressed  uint32 = 0x0001
	LeftAltPressed   uint32 = 0x0002
	RightCtrlPressed uint32 = 0x0004
	LeftCtrlPressed  uint32 = 0x0008
	ShiftPressed     uint32 = 0x0010
	EnhancedKey      uint32 = 0x0100
)

// InputRecordSize is the wire size of one input record: a 2-byte event type,
// 2 bytes of padding, and a 16-byte event payload.
const InputRecordSize = 20

// KeyEventRecord describes a keyboard event.
type KeyEventRecord struct {
	KeyDown         bool
	RepeatCount     uint16
	VirtualKeyCode  uint16
	VirtualScanCode uint16
	Char            uint16
	ControlKeyState uint32
}

// MouseEventRecord describes a mouse event in cell coordinates.
type MouseEventRecord struct {
	X               int16
	Y               int16
	ButtonState     uint32
	ControlKeyState uint32
	EventFlags      uint32
}

// WindowBufferSizeRecord reports a new screen-buffer size.
type WindowBufferSizeRecord struct {
	Width  int16
	Height int16
}

// MenuEventRecord reports a menu command.
type MenuEventRecord struct {
	CommandID uint32
}

// FocusEventRecord reports a focus change.
type FocusEventRecord struct {
	SetFocus bool
}

// InputRecord is one decoded input event. EventType selects which variant
// field is meaningful.
type InputRecord struct {
	EventType uint16
	Key       KeyEventRecord
	Mouse     MouseEventRecord
	Size      WindowBufferSizeRecord
	Menu      MenuEventRecord
	Focus     FocusEventRecord
}

// NewKeyEvent builds a key input record.
func NewKeyEvent(down bool, ch uint16, controlKeyState uint32) InputRecord {
	return InputRecord{
		EventType: KeyEvent,
		Key: KeyEventRecord{
			KeyDown:         down,
			RepeatCount:     1,
			Char:            ch,
			ControlKeyState: controlKeyState,
		},
	}
}

// NewWindowBufferSizeEvent builds a buffer-size input record.
func NewWindowBufferSizeEvent(width, height int16) InputRecord {
	return InputRecord{
		EventType: WindowBufferSizeEvent,
		Size:      WindowBufferSizeRecord{Width: width, Height: height},
	}
}

// IsCtrlC reports whether the record is a Ctrl-C key event, key-down or
// key-up, that processed input keeps out of the queue; only a key-down one is
// raised as a control event. Enhanced keys are exempt.
func (r *InputRecord) IsCtrlC() bool {
	return r.EventType == KeyEvent &&
		r.Key.Char == 'C'-64 &&
		r.Key.ControlKeyState&EnhancedKey == 0
}

func b32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (r *InputRecord) encode(dst []byte) {
	le := binary.LittleEndian
	le.PutUint16(dst[0:], r.EventType)
	le.PutUint16(dst[2:], 0)
	for i := 4; i < InputRecordSize; i++ {
		dst[i] = 0
	}
	switch r.EventType {
	case KeyEvent:
		le.PutUint32(dst[4:], b32(r.Key.KeyDown))
		le.PutUint16(dst[8:], r.Key.RepeatCount)
		le.PutUint16(dst[10:], r.Key.VirtualKeyCode)
		le.PutUint16(dst[12:], r.Key.VirtualScanCode)
		le.PutUint16(dst[14:], r.Key.Char)
		le.PutUint32(dst[16:], r.Key.ControlKeyState)
	case MouseEvent:
		le.PutUint16(dst[4:], uint16(r.Mouse.X))
		le.PutUint16(dst[6:], uint16(r.Mouse.Y))
		le.PutUint32(dst[8:], r.Mouse.ButtonState)
		le.PutUint32(dst[12:], r.Mouse.ControlKeyState)
		le.PutUint32(dst[16:], r.Mouse.EventFlags)
	case WindowBufferSizeEvent:
		le.PutUint16(dst[4:], uint16(r.Size.Width))
		le.PutUint16(dst[6:], uint16(r.Size.Height))
	case MenuEvent:
		le.PutUint32(dst[4:], r.Menu.CommandID)
	case FocusEvent:
		le.PutUint32(dst[4:], b32(r.Focus.SetFocus))
	}
}

func (r *InputRecord) decode(src []byte) {
	le := binary.LittleEndian
	r.EventType = le.Uint16(src[0:])
	switch r.EventType {
	case KeyEvent:
		r.Key = KeyEventRecord{
			KeyDown:         le.Uint32(src[4:]) != 0,
			RepeatCount:     le.Uint16(src[8:]),
			VirtualKeyCode:  le.Uint16(src[10:]),
			VirtualScanCode: le.Uint16(src[12:]),
			Char:            le.Uint16(src[14:]),
			ControlKeyState: le.Uint32(src[16:]),
		}
	case MouseEvent:
		r.Mouse = MouseEventRecord{
			X:               int16(le.Uint16(src[4:])),
			Y:               int16(le.Uint16(src[6:])),
			ButtonState:     le.Uint32(src[8:]),
			ControlKeyState: le.Uint32(src[12:]),
			EventFlags:      le.Uint32(src[16:]),
		}
	case WindowBufferSizeEvent:
		r.Size = WindowBufferSizeRecord{
			Width:  int16(le.Uint16(src[4:])),
			Height: int16(le.Uint16(src[6:])),
		}
	case MenuEvent:
		r.Menu = MenuEventRecord{CommandID: le.Uint32(src[4:])}
	case FocusEvent:
		r.Focus = FocusEventRecord{SetFocus: le.Uint32(src[4:]) != 0}
	}
}

// EncodeInputRecords marshals records to their wire form.
func EncodeInputRecords(records []InputRecord) []byte {
	buf := make([]byte, len(records)*InputRecordSize)
	for i := range records {
		records[i].encode(buf[i*InputRecordSize:])
	}
	return buf
}

// DecodeInputRecords unmarshals a run of wire-form records. The input length
// must be a multiple of InputRecordSize.
func DecodeInputRecords(data []byte) ([]InputRecord, error) {
	if len(data)%InputRecordSize != 0 {
		return nil, fmt.Errorf("condrv: input record data length %d is not a multiple of %d", len(data), InputRecordSize)
	}
	records := make([]InputRecord, len(data)/InputRecordSize)
	for i := range records {
		records[i].decode(data[i*InputRecordSize:])
	}
	return records, nil
}
