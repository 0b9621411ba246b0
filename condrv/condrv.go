// Package condrv defines the console control protocol spoken between the
// coordination server and a console host: operation codes, status codes, the
// wire layout of every request and reply payload, and the transport
// connection used to exchange them.
//
// All multi-byte fields are little-endian. Payload layouts match the C
// console driver structs byte for byte, so a host built on this package can
// serve clients that still marshal the original structures.
package condrv

// Opcode identifies one console operation. The numeric values are the
// function numbers of the original driver ioctls.
type Opcode uint32

const (
	// Common to the input side and to screen buffers.
	GetMode Opcode = 0
	SetMode Opcode = 1

	// Input side (request target 0).
	ReadInput    Opcode = 10
	WriteInput   Opcode = 11
	Peek         Opcode = 12
	GetInputInfo Opcode = 13
	SetInputInfo Opcode = 14
	GetTitle     Opcode = 15
	SetTitle     Opcode = 16
	CtrlEvent    Opcode = 17

	// Screen-buffer side (request target is the buffer id).
	ReadOutput    Opcode = 30
	WriteOutput   Opcode = 31
	GetOutputInfo Opcode = 32
	SetOutputInfo Opcode = 33
	Activate      Opcode = 34
	FillOutput    Opcode = 35
	Scroll        Opcode = 36

	// Renderer side.
	GetRendererEvents Opcode = 70
	AttachRenderer    Opcode = 71

	// Lifecycle, used between the server and the host.
	InitOutput  Opcode = 90
	CloseOutput Opcode = 91
)

// String returns the canonical identifier of the opcode.
func (op Opcode) String() string {
	switch op {
	case GetMode:
		return "GET_MODE"
	case SetMode:
		return "SET_MODE"
	case ReadInput:
		return "READ_INPUT"
	case WriteInput:
		return "WRITE_INPUT"
	case Peek:
		return "PEEK"
	case GetInputInfo:
		return "GET_INPUT_INFO"
	case SetInputInfo:
		return "SET_INPUT_INFO"
	case GetTitle:
		return "GET_TITLE"
	case SetTitle:
		return "SET_TITLE"
	case CtrlEvent:
		return "CTRL_EVENT"
	case ReadOutput:
		return "READ_OUTPUT"
	case WriteOutput:
		return "WRITE_OUTPUT"
	case GetOutputInfo:
		return "GET_OUTPUT_INFO"
	case SetOutputInfo:
		return "SET_OUTPUT_INFO"
	case Activate:
		return "ACTIVATE"
	case FillOutput:
		return "FILL_OUTPUT"
	case Scroll:
		return "SCROLL"
	case GetRendererEvents:
		return "GET_RENDERER_EVENTS"
	case AttachRenderer:
		return "ATTACH_RENDERER"
	case InitOutput:
		return "INIT_OUTPUT"
	case CloseOutput:
		return "CLOSE_OUTPUT"
	}
	return "UNKNOWN"
}

// Status is the result code carried back to the client with each reply.
// The values are NT status codes.
type Status uint32

const (
	StatusSuccess          Status = 0x00000000
	StatusPending          Status = 0x00000103
	StatusBufferOverflow   Status = 0x80000005
	StatusInvalidHandle    Status = 0xC0000008
	StatusInvalidParameter Status = 0xC000000D
	StatusNoMemory         Status = 0xC0000017
	StatusNotSupported     Status = 0xC00000BB
)

// String returns the canonical identifier of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusPending:
		return "PENDING"
	case StatusBufferOverflow:
		return "BUFFER_OVERFLOW"
	case StatusInvalidHandle:
		return "INVALID_HANDLE"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusNoMemory:
		return "NO_MEMORY"
	case StatusNotSupported:
		return "NOT_SUPPORTED"
	}
	return "UNKNOWN"
}

// Err returns nil for StatusSuccess and an error naming the status otherwise.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError wraps a non-success Status as a Go error.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return "condrv: status " + e.Status.String()
}

// Input mode flags (console-wide, target 0).
const (
	EnableProcessedInput uint32 = 0x0001
	EnableLineInput      uint32 = 0x0002
	EnableEchoInput      uint32 = 0x0004
	EnableWindowInput    uint32 = 0x0008
	EnableMouseInput     uint32 = 0x0010
	EnableInsertMode     uint32 = 0x0020
	EnableQuickEditMode  uint32 = 0x0040
	EnableExtendedFlags  uint32 = 0x0080
	EnableAutoPosition   uint32 = 0x0100
)

// Output mode flags (per screen buffer).
const (
	EnableProcessedOutput uint32 = 0x0001
	EnableWrapAtEOLOutput uint32 = 0x0002
)

// Attribute bits of a cell: 4-bit foreground, 4-bit background, with an
// intensity bit in each nibble.
const (
	ForegroundBlue      uint16 = 0x0001
	ForegroundGreen     uint16 = 0x0002
	ForegroundRed       uint16 = 0x0004
	ForegroundIntensity uint16 = 0x0008
	BackgroundBlue      uint16 = 0x0010
	BackgroundGreen     uint16 = 0x0020
	BackgroundRed       uint16 = 0x0040
	BackgroundIntensity uint16 = 0x0080
)

// DefaultAttr is white on black, the attribute of a freshly cleared cell.
const DefaultAttr uint16 = 0x0007

// CharInfoMode selects which part of a cell a read or write touches.
type CharInfoMode uint32

const (
	// ModeText transfers characters only.
	ModeText CharInfoMode = iota
	// ModeAttr transfers attributes only.
	ModeAttr
	// ModeTextAttr transfers both.
	ModeTextAttr
	// ModeTextStdAttr writes characters and stamps the buffer's default
	// attribute on each written cell.
	ModeTextStdAttr
)

// Control events delivered to client process groups.
const (
	CtrlCEvent     int32 = 0
	CtrlBreakEvent int32 = 1
)

// SetOutputInfo mask flags.
const (
	SetOutputInfoCursorGeom    uint32 = 0x0001
	SetOutputInfoCursorPos     uint32 = 0x0002
	SetOutputInfoSize          uint32 = 0x0004
	SetOutputInfoAttr          uint32 = 0x0008
	SetOutputInfoDisplayWindow uint32 = 0x0010
	SetOutputInfoMaxSize       uint32 = 0x0020
	SetOutputInfoFont          uint32 = 0x0040
	SetOutputInfoColorTable    uint32 = 0x0080
	SetOutputInfoPopupAttr     uint32 = 0x0100
)

// SetInputInfo mask flags.
const (
	SetInputInfoEditionMode    uint32 = 0x01
	SetInputInfoInputCodepage  uint32 = 0x02
	SetInputInfoOutputCodepage uint32 = 0x04
	SetInputInfoWin            uint32 = 0x08
	SetInputInfoHistoryMode    uint32 = 0x10
	SetInputInfoHistorySize    uint32 = 0x20
)

// Renderer event types, reported through GetRendererEvents.
const (
	RendererNoneEvent int16 = iota
	RendererTitleEvent
	RendererSBResizeEvent
	RendererUpdateEvent
	RendererCursorPosEvent
	RendererCursorGeomEvent
	RendererDisplayEvent
	RendererExitEvent
)

// CharInfo is one screen cell: a UTF-16 code unit and its attribute.
type CharInfo struct {
	Ch   uint16
	Attr uint16
}

// DefaultCharInfo is a blank white-on-black cell.
var DefaultCharInfo = CharInfo{Ch: ' ', Attr: DefaultAttr}

// CharInfoSize is the wire size of a CharInfo.
const CharInfoSize = 4

// SmallRect is an inclusive cell rectangle.
type SmallRect struct {
	Left   int16
	Top    int16
	Right  int16
	Bottom int16
}

// SmallRectSize is the wire size of a SmallRect.
const SmallRectSize = 8

// Coord is a cell position.
type Coord struct {
	X int16
	Y int16
}
