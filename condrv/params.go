package condrv

import (
	"encoding/binary"
	"fmt"
)

// Payload wire sizes.
const (
	OutputParamsSize     = 16
	FillOutputParamsSize = 24
	ScrollParamsSize     = 24
	OutputInfoSize       = 100
	OutputInfoParamsSize = 4 + OutputInfoSize
	InputInfoSize        = 32
	InputInfoParamsSize  = 4 + InputInfoSize
	CtrlEventParamsSize  = 8
)

func putRect(dst []byte, r SmallRect) {
	le := binary.LittleEndian
	le.PutUint16(dst[0:], uint16(r.Left))
	le.PutUint16(dst[2:], uint16(r.Top))
	le.PutUint16(dst[4:], uint16(r.Right))
	le.PutUint16(dst[6:], uint16(r.Bottom))
}

func getRect(src []byte) SmallRect {
	le := binary.LittleEndian
	return SmallRect{
		Left:   int16(le.Uint16(src[0:])),
		Top:    int16(le.Uint16(src[2:])),
		Right:  int16(le.Uint16(src[4:])),
		Bottom: int16(le.Uint16(src[6:])),
	}
}

// EncodeSmallRect marshals a rectangle to its 8-byte wire form.
func EncodeSmallRect(r SmallRect) []byte {
	buf := make([]byte, SmallRectSize)
	putRect(buf, r)
	return buf
}

// DecodeSmallRect unmarshals an 8-byte rectangle.
func DecodeSmallRect(data []byte) (SmallRect, error) {
	if len(data) < SmallRectSize {
		return SmallRect{}, fmt.Errorf("condrv: small rect needs %d bytes, have %d", SmallRectSize, len(data))
	}
	return getRect(data), nil
}

// EncodeCharInfos marshals cells to their wire form.
func EncodeCharInfos(cells []CharInfo) []byte {
	le := binary.LittleEndian
	buf := make([]byte, len(cells)*CharInfoSize)
	for i, c := range cells {
		le.PutUint16(buf[i*CharInfoSize:], c.Ch)
		le.PutUint16(buf[i*CharInfoSize+2:], c.Attr)
	}
	return buf
}

// DecodeCharInfos unmarshals a run of wire-form cells, ignoring a trailing
// partial cell.
func DecodeCharInfos(data []byte) []CharInfo {
	le := binary.LittleEndian
	cells := make([]CharInfo, len(data)/CharInfoSize)
	for i := range cells {
		cells[i].Ch = le.Uint16(data[i*CharInfoSize:])
		cells[i].Attr = le.Uint16(data[i*CharInfoSize+2:])
	}
	return cells
}

// OutputParams is the fixed header of ReadOutput and WriteOutput payloads.
// Cell data in the mode-dependent element type follows the header on writes.
// Width 0 selects wrapped addressing; a positive width a rectangle.
type OutputParams struct {
	X     uint32
	Y     uint32
	Mode  CharInfoMode
	Width uint32
}

// Encode marshals the header followed by data.
func (p *OutputParams) Encode(data []byte) []byte {
	le := binary.LittleEndian
	buf := make([]byte, OutputParamsSize+len(data))
	le.PutUint32(buf[0:], p.X)
	le.PutUint32(buf[4:], p.Y)
	le.PutUint32(buf[8:], uint32(p.Mode))
	le.PutUint32(buf[12:], p.Width)
	copy(buf[OutputParamsSize:], data)
	return buf
}

// DecodeOutputParams splits a payload into its header and trailing cell data.
func DecodeOutputParams(data []byte) (OutputParams, []byte, error) {
	if len(data) < OutputParamsSize {
		return OutputParams{}, nil, fmt.Errorf("condrv: output params need %d bytes, have %d", OutputParamsSize, len(data))
	}
	le := binary.LittleEndian
	p := OutputParams{
		X:     le.Uint32(data[0:]),
		Y:     le.Uint32(data[4:]),
		Mode:  CharInfoMode(le.Uint32(data[8:])),
		Width: le.Uint32(data[12:]),
	}
	return p, data[OutputParamsSize:], nil
}

// FillOutputParams is the FillOutput payload.
type FillOutputParams struct {
	X     int32
	Y     int32
	Mode  CharInfoMode
	Count int32
	Wrap  bool
	Ch    uint16
	Attr  uint16
}

// Encode marshals the payload.
func (p *FillOutputParams) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, FillOutputParamsSize)
	le.PutUint32(buf[0:], uint32(p.X))
	le.PutUint32(buf[4:], uint32(p.Y))
	le.PutUint32(buf[8:], uint32(p.Mode))
	le.PutUint32(buf[12:], uint32(p.Count))
	le.PutUint32(buf[16:], b32(p.Wrap))
	le.PutUint16(buf[20:], p.Ch)
	le.PutUint16(buf[22:], p.Attr)
	return buf
}

// DecodeFillOutputParams unmarshals the payload.
func DecodeFillOutputParams(data []byte) (FillOutputParams, error) {
	if len(data) != FillOutputParamsSize {
		return FillOutputParams{}, fmt.Errorf("condrv: fill params need %d bytes, have %d", FillOutputParamsSize, len(data))
	}
	le := binary.LittleEndian
	return FillOutputParams{
		X:     int32(le.Uint32(data[0:])),
		Y:     int32(le.Uint32(data[4:])),
		Mode:  CharInfoMode(le.Uint32(data[8:])),
		Count: int32(le.Uint32(data[12:])),
		Wrap:  le.Uint32(data[16:]) != 0,
		Ch:    le.Uint16(data[20:]),
		Attr:  le.Uint16(data[22:]),
	}, nil
}

// ScrollParams is the Scroll payload.
type ScrollParams struct {
	Scroll SmallRect
	Origin Coord
	Clip   SmallRect
	Fill   CharInfo
}

// Encode marshals the payload.
func (p *ScrollParams) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, ScrollParamsSize)
	putRect(buf[0:], p.Scroll)
	le.PutUint16(buf[8:], uint16(p.Origin.X))
	le.PutUint16(buf[10:], uint16(p.Origin.Y))
	putRect(buf[12:], p.Clip)
	le.PutUint16(buf[20:], p.Fill.Ch)
	le.PutUint16(buf[22:], p.Fill.Attr)
	return buf
}

// DecodeScrollParams unmarshals the payload.
func DecodeScrollParams(data []byte) (ScrollParams, error) {
	if len(data) != ScrollParamsSize {
		return ScrollParams{}, fmt.Errorf("condrv: scroll params need %d bytes, have %d", ScrollParamsSize, len(data))
	}
	le := binary.LittleEndian
	return ScrollParams{
		Scroll: getRect(data[0:]),
		Origin: Coord{X: int16(le.Uint16(data[8:])), Y: int16(le.Uint16(data[10:]))},
		Clip:   getRect(data[12:]),
		Fill:   CharInfo{Ch: le.Uint16(data[20:]), Attr: le.Uint16(data[22:])},
	}, nil
}

// OutputInfo is the full observable state of a screen buffer: geometry,
// cursor, viewport, font metrics, and palette. The variable-length font face
// name travels after the fixed struct.
type OutputInfo struct {
	CursorSize      int16
	CursorVisible   int16
	CursorX         int16
	CursorY         int16
	Width           int16
	Height          int16
	Attr            int16
	PopupAttr       int16
	WinLeft         int16
	WinTop          int16
	WinRight        int16
	WinBottom       int16
	MaxWidth        int16
	MaxHeight       int16
	FontWidth       int16
	FontHeight      int16
	FontWeight      int16
	FontPitchFamily int16
	ColorMap        [16]uint32
}

// Encode marshals the fixed struct.
func (info *OutputInfo) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, OutputInfoSize)
	fields := []int16{
		info.CursorSize, info.CursorVisible, info.CursorX, info.CursorY,
		info.Width, info.Height, info.Attr, info.PopupAttr,
		info.WinLeft, info.WinTop, info.WinRight, info.WinBottom,
		info.MaxWidth, info.MaxHeight, info.FontWidth, info.FontHeight,
		info.FontWeight, info.FontPitchFamily,
	}
	for i, f := range fields {
		le.PutUint16(buf[i*2:], uint16(f))
	}
	for i, c := range info.ColorMap {
		le.PutUint32(buf[36+i*4:], c)
	}
	return buf
}

// DecodeOutputInfo unmarshals the fixed struct.
func DecodeOutputInfo(data []byte) (OutputInfo, error) {
	if len(data) < OutputInfoSize {
		return OutputInfo{}, fmt.Errorf("condrv: output info needs %d bytes, have %d", OutputInfoSize, len(data))
	}
	le := binary.LittleEndian
	var info OutputInfo
	fields := []*int16{
		&info.CursorSize, &info.CursorVisible, &info.CursorX, &info.CursorY,
		&info.Width, &info.Height, &info.Attr, &info.PopupAttr,
		&info.WinLeft, &info.WinTop, &info.WinRight, &info.WinBottom,
		&info.MaxWidth, &info.MaxHeight, &info.FontWidth, &info.FontHeight,
		&info.FontWeight, &info.FontPitchFamily,
	}
	for i, f := range fields {
		*f = int16(le.Uint16(data[i*2:]))
	}
	for i := range info.ColorMap {
		info.ColorMap[i] = le.Uint32(data[36+i*4:])
	}
	return info, nil
}

// OutputInfoParams is the SetOutputInfo payload: a mask naming the fields to
// apply, the info struct, and optionally a UTF-16 font face name.
type OutputInfoParams struct {
	Mask     uint32
	Info     OutputInfo
	FaceName []byte
}

// Encode marshals the payload.
func (p *OutputInfoParams) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, OutputInfoParamsSize+len(p.FaceName))
	le.PutUint32(buf[0:], p.Mask)
	copy(buf[4:], p.Info.Encode())
	copy(buf[OutputInfoParamsSize:], p.FaceName)
	return buf
}

// DecodeOutputInfoParams unmarshals the payload.
func DecodeOutputInfoParams(data []byte) (OutputInfoParams, error) {
	if len(data) < OutputInfoParamsSize {
		return OutputInfoParams{}, fmt.Errorf("condrv: output info params need %d bytes, have %d", OutputInfoParamsSize, len(data))
	}
	le := binary.LittleEndian
	info, err := DecodeOutputInfo(data[4:])
	if err != nil {
		return OutputInfoParams{}, err
	}
	return OutputInfoParams{
		Mask:     le.Uint32(data[0:]),
		Info:     info,
		FaceName: data[OutputInfoParamsSize:],
	}, nil
}

// InputInfo is the console-wide meta state reported by GetInputInfo.
type InputInfo struct {
	InputCodepage  uint32
	OutputCodepage uint32
	HistoryMode    uint32
	HistorySize    uint32
	HistoryIndex   uint32
	EditionMode    uint32
	InputCount     uint32
	Win            uint32
}

// Encode marshals the struct.
func (info *InputInfo) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, InputInfoSize)
	le.PutUint32(buf[0:], info.InputCodepage)
	le.PutUint32(buf[4:], info.OutputCodepage)
	le.PutUint32(buf[8:], info.HistoryMode)
	le.PutUint32(buf[12:], info.HistorySize)
	le.PutUint32(buf[16:], info.HistoryIndex)
	le.PutUint32(buf[20:], info.EditionMode)
	le.PutUint32(buf[24:], info.InputCount)
	le.PutUint32(buf[28:], info.Win)
	return buf
}

// DecodeInputInfo unmarshals the struct.
func DecodeInputInfo(data []byte) (InputInfo, error) {
	if len(data) < InputInfoSize {
		return InputInfo{}, fmt.Errorf("condrv: input info needs %d bytes, have %d", InputInfoSize, len(data))
	}
	le := binary.LittleEndian
	return InputInfo{
		InputCodepage:  le.Uint32(data[0:]),
		OutputCodepage: le.Uint32(data[4:]),
		HistoryMode:    le.Uint32(data[8:]),
		HistorySize:    le.Uint32(data[12:]),
		HistoryIndex:   le.Uint32(data[16:]),
		EditionMode:    le.Uint32(data[20:]),
		InputCount:     le.Uint32(data[24:]),
		Win:            le.Uint32(data[28:]),
	}, nil
}

// InputInfoParams is the SetInputInfo payload.
type InputInfoParams struct {
	Mask uint32
	Info InputInfo
}

// Encode marshals the payload.
func (p *InputInfoParams) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, InputInfoParamsSize)
	le.PutUint32(buf[0:], p.Mask)
	copy(buf[4:], p.Info.Encode())
	return buf
}

// DecodeInputInfoParams unmarshals the payload.
func DecodeInputInfoParams(data []byte) (InputInfoParams, error) {
	if len(data) != InputInfoParamsSize {
		return InputInfoParams{}, fmt.Errorf("condrv: input info params need %d bytes, have %d", InputInfoParamsSize, len(data))
	}
	le := binary.LittleEndian
	info, err := DecodeInputInfo(data[4:])
	if err != nil {
		return InputInfoParams{}, err
	}
	return InputInfoParams{Mask: le.Uint32(data[0:]), Info: info}, nil
}

// CtrlEventParams is the CtrlEvent payload: a control event delivered to a
// process group.
type CtrlEventParams struct {
	Event   int32
	GroupID uint32
}

// Encode marshals the payload.
func (p *CtrlEventParams) Encode() []byte {
	le := binary.LittleEndian
	buf := make([]byte, CtrlEventParamsSize)
	le.PutUint32(buf[0:], uint32(p.Event))
	le.PutUint32(buf[4:], p.GroupID)
	return buf
}

// DecodeCtrlEventParams unmarshals the payload.
func DecodeCtrlEventParams(data []byte) (CtrlEventParams, error) {
	if len(data) != CtrlEventParamsSize {
		return CtrlEventParams{}, fmt.Errorf("condrv: ctrl event params need %d bytes, have %d", CtrlEventParamsSize, len(data))
	}
	le := binary.LittleEndian
	return CtrlEventParams{
		Event:   int32(le.Uint32(data[0:])),
		GroupID: le.Uint32(data[4:]),
	}, nil
}
