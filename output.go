package conhost

import (
	"encoding/binary"

	"github.com/danielgatis/go-conhost/condrv"
)

// screenBufferIoctl routes one request targeted at a screen buffer. It
// validates the payload and reply sizes the same way the driver contract
// requires, then hands off to the operation. The returned data is the reply
// payload, already truncated to what the caller accepts.
func (c *Console) screenBufferIoctl(sb *ScreenBuffer, code condrv.Opcode, in []byte, outSize int) ([]byte, condrv.Status) {
	switch code {
	case condrv.CloseOutput:
		if len(in) != 0 || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		c.destroyScreenBuffer(sb)
		return nil, condrv.StatusSuccess

	case condrv.Activate:
		if len(in) != 0 || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		return nil, c.activateScreenBuffer(sb)

	case condrv.GetMode:
		if len(in) != 0 || outSize != 4 {
			return nil, condrv.StatusInvalidParameter
		}
		return le32(sb.mode), condrv.StatusSuccess

	case condrv.SetMode:
		if len(in) != 4 || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		sb.mode = binary.LittleEndian.Uint32(in)
		c.logger.Debug("set output mode", "id", sb.id, "mode", sb.mode)
		return nil, condrv.StatusSuccess

	case condrv.WriteOutput:
		if (outSize != 4 && outSize != condrv.SmallRectSize) || len(in) < condrv.OutputParamsSize {
			return nil, condrv.StatusInvalidParameter
		}
		params, data, err := condrv.DecodeOutputParams(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return c.writeOutput(sb, params, data, outSize)

	case condrv.ReadOutput:
		if len(in) != condrv.OutputParamsSize {
			return nil, condrv.StatusInvalidParameter
		}
		params, _, err := condrv.DecodeOutputParams(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return c.readOutput(sb, params, outSize)

	case condrv.GetOutputInfo:
		if len(in) != 0 || outSize < condrv.OutputInfoSize {
			return nil, condrv.StatusInvalidParameter
		}
		return c.getOutputInfo(sb, outSize), condrv.StatusSuccess

	case condrv.SetOutputInfo:
		if len(in) < condrv.OutputInfoParamsSize || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		params, err := condrv.DecodeOutputInfoParams(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return nil, c.setOutputInfo(sb, &params)

	case condrv.FillOutput:
		if len(in) != condrv.FillOutputParamsSize || outSize != 4 {
			return nil, condrv.StatusInvalidParameter
		}
		params, err := condrv.DecodeFillOutputParams(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return c.fillOutput(sb, &params)

	case condrv.Scroll:
		if len(in) != condrv.ScrollParamsSize || outSize != 0 {
			return nil, condrv.StatusInvalidParameter
		}
		params, err := condrv.DecodeScrollParams(in)
		if err != nil {
			return nil, condrv.StatusInvalidParameter
		}
		return nil, c.scrollOutput(sb, &params)
	}

	c.logger.Warn("unsupported output request", "code", uint32(code), "id", sb.id)
	return nil, condrv.StatusNotSupported
}

// activateScreenBuffer makes the buffer the displayed one and repaints the
// whole grid. Re-activating the buffer that is already displayed only
// converges the cursor; the terminal content is known good.
func (c *Console) activateScreenBuffer(sb *ScreenBuffer) condrv.Status {
	if c.isActive(sb) {
		c.ttySync()
		return condrv.StatusSuccess
	}
	c.active = sb
	c.updateOutput(sb, rect{left: 0, top: 0, right: sb.width - 1, bottom: sb.height - 1})
	c.ttySync()
	return condrv.StatusSuccess
}

// writeOutput stores a run or rectangle of cell data. With a zero params
// width the run wraps at the right edge; otherwise rows form a rectangle
// whose overhang past the buffer edge is skipped. The reply is the entry
// count or the affected rectangle, chosen by the caller's reply size.
func (c *Console) writeOutput(sb *ScreenBuffer, params condrv.OutputParams, data []byte, outSize int) ([]byte, condrv.Status) {
	entrySize := 2
	if params.Mode == condrv.ModeTextAttr {
		entrySize = condrv.CharInfoSize
	}
	switch params.Mode {
	case condrv.ModeText, condrv.ModeAttr, condrv.ModeTextAttr, condrv.ModeTextStdAttr:
	default:
		return nil, condrv.StatusInvalidParameter
	}
	if outSize == condrv.SmallRectSize && params.Width == 0 {
		// The rectangle-framed reply is derived from the request width.
		return nil, condrv.StatusInvalidParameter
	}

	entryCnt := len(data) / entrySize
	px, py, pw := int(params.X), int(params.Y), int(params.Width)

	if px >= sb.width {
		return nil, condrv.StatusSuccess
	}

	le := binary.LittleEndian
	mutated := false
	var i int
	for i = 0; i < entryCnt; i++ {
		var x, y int
		if pw != 0 {
			x = px + i%pw
			y = py + i/pw
			if x >= sb.width {
				continue
			}
		} else {
			x = (px + i) % sb.width
			y = py + (px+i)/sb.width
		}
		if y >= sb.height {
			break
		}

		src := data[i*entrySize:]
		old := sb.Cell(x, y)
		cell := old
		switch params.Mode {
		case condrv.ModeText:
			cell.Ch = le.Uint16(src)
		case condrv.ModeAttr:
			cell.Attr = le.Uint16(src)
		case condrv.ModeTextAttr:
			cell.Ch = le.Uint16(src)
			cell.Attr = le.Uint16(src[2:])
		case condrv.ModeTextStdAttr:
			cell.Ch = le.Uint16(src)
			cell.Attr = sb.attr
		}
		if cell != old {
			sb.setCell(x, y, cell)
			mutated = true
		}
	}

	// A write that changed nothing repaints nothing; the sync still
	// converges the cursor.
	if i > 0 && !mutated && c.isActive(sb) {
		c.ttySync()
	}
	if i > 0 && mutated && c.isActive(sb) {
		update := rect{left: px, top: py}
		if pw != 0 {
			update.bottom = minInt(py+entryCnt/pw, sb.height) - 1
			update.right = minInt(px+pw, sb.width) - 1
		} else {
			update.bottom = py + (px+i-1)/sb.width
			if update.bottom != py {
				update.left = 0
				update.right = sb.width - 1
			} else {
				update.right = px + i - 1
			}
		}
		c.updateOutput(sb, update)
		c.ttySync()
	}

	if outSize == condrv.SmallRectSize {
		region := condrv.SmallRect{
			Left:   int16(px),
			Top:    int16(py),
			Right:  int16(minInt(px+pw, sb.width) - 1),
			Bottom: int16(minInt(py+entryCnt/pw, sb.height) - 1),
		}
		return condrv.EncodeSmallRect(region), condrv.StatusSuccess
	}
	return le32(uint32(i)), condrv.StatusSuccess
}

// readOutput returns cell data. TEXT and ATTR replies are flat runs from
// (x,y) to the end of the buffer or the caller's capacity; TEXTATTR replies
// carry the returned rectangle in front of the rows.
func (c *Console) readOutput(sb *ScreenBuffer, params condrv.OutputParams, outSize int) ([]byte, condrv.Status) {
	x, y := int(params.X), int(params.Y)
	le := binary.LittleEndian

	switch params.Mode {
	case condrv.ModeText, condrv.ModeAttr:
		if x >= sb.width || y >= sb.height {
			return nil, condrv.StatusSuccess
		}
		start := y*sb.width + x
		count := minInt(len(sb.cells)-start, outSize/2)
		out := make([]byte, count*2)
		for i := 0; i < count; i++ {
			if params.Mode == condrv.ModeText {
				le.PutUint16(out[i*2:], sb.cells[start+i].Ch)
			} else {
				le.PutUint16(out[i*2:], sb.cells[start+i].Attr)
			}
		}
		return out, condrv.StatusSuccess

	case condrv.ModeTextAttr:
		width := int(params.Width)
		if width == 0 || outSize < condrv.SmallRectSize || x >= sb.width || y >= sb.height {
			return nil, condrv.StatusInvalidParameter
		}
		count := minInt((outSize-condrv.SmallRectSize)/(width*condrv.CharInfoSize), sb.height-y)
		width = minInt(width, sb.width-x)
		region := condrv.SmallRect{
			Left:   int16(x),
			Top:    int16(y),
			Right:  int16(x + width - 1),
			Bottom: int16(y + count - 1),
		}
		out := make([]byte, condrv.SmallRectSize+width*count*condrv.CharInfoSize)
		copy(out, condrv.EncodeSmallRect(region))
		for row := 0; row < count; row++ {
			cells := sb.cells[(y+row)*sb.width+x : (y+row)*sb.width+x+width]
			copy(out[condrv.SmallRectSize+row*width*condrv.CharInfoSize:], condrv.EncodeCharInfos(cells))
		}
		return out, condrv.StatusSuccess
	}

	return nil, condrv.StatusInvalidParameter
}

// getOutputInfo builds the OutputInfo reply, truncated to the caller's
// capacity, with the font face name following the fixed header.
func (c *Console) getOutputInfo(sb *ScreenBuffer, outSize int) []byte {
	info := condrv.OutputInfo{
		CursorSize:      int16(sb.cursor.Size),
		CursorVisible:   boolInt16(sb.cursor.Visible),
		CursorX:         int16(sb.cursor.X),
		CursorY:         int16(sb.cursor.Y),
		Width:           int16(sb.width),
		Height:          int16(sb.height),
		Attr:            int16(sb.attr),
		PopupAttr:       int16(sb.popupAttr),
		WinLeft:         sb.win.Left,
		WinTop:          sb.win.Top,
		WinRight:        sb.win.Right,
		WinBottom:       sb.win.Bottom,
		MaxWidth:        int16(sb.maxWidth),
		MaxHeight:       int16(sb.maxHeight),
		FontWidth:       sb.font.Width,
		FontHeight:      sb.font.Height,
		FontWeight:      sb.font.Weight,
		FontPitchFamily: sb.font.PitchFamily,
		ColorMap:        sb.colorMap,
	}
	out := append(info.Encode(), utf16Bytes(sb.font.FaceName)...)
	if len(out) > outSize {
		out = out[:outSize]
	}
	return out
}

// setOutputInfo applies a mask-driven partial update. All masked fields are
// validated before any of them is applied, so a rejected request leaves the
// buffer untouched.
func (c *Console) setOutputInfo(sb *ScreenBuffer, params *condrv.OutputInfoParams) condrv.Status {
	info := &params.Info

	if params.Mask&condrv.SetOutputInfoCursorGeom != 0 {
		if info.CursorSize < 1 || info.CursorSize > 100 {
			return condrv.StatusInvalidParameter
		}
	}
	newWidth, newHeight := sb.width, sb.height
	if params.Mask&condrv.SetOutputInfoSize != 0 {
		// The buffer cannot shrink below the displayed window.
		if int(info.Width) < sb.winWidth() || int(info.Height) < sb.winHeight() {
			return condrv.StatusInvalidParameter
		}
		newWidth, newHeight = int(info.Width), int(info.Height)
	}
	if params.Mask&condrv.SetOutputInfoCursorPos != 0 {
		if info.CursorX < 0 || int(info.CursorX) >= newWidth ||
			info.CursorY < 0 || int(info.CursorY) >= newHeight {
			return condrv.StatusInvalidParameter
		}
	}
	if params.Mask&condrv.SetOutputInfoDisplayWindow != 0 {
		if info.WinLeft < 0 || info.WinLeft > info.WinRight ||
			int(info.WinRight) >= newWidth ||
			info.WinTop < 0 || info.WinTop > info.WinBottom ||
			int(info.WinBottom) >= newHeight {
			return condrv.StatusInvalidParameter
		}
	}

	if params.Mask&condrv.SetOutputInfoCursorGeom != 0 {
		sb.cursor.Size = int(info.CursorSize)
		sb.cursor.Visible = info.CursorVisible != 0
	}
	if params.Mask&condrv.SetOutputInfoSize != 0 && (newWidth != sb.width || newHeight != sb.height) {
		sb.resize(newWidth, newHeight)

		// Scroll the window back into the resized buffer.
		if int(sb.win.Right) >= newWidth {
			sb.win.Right -= sb.win.Left
			sb.win.Left = 0
		}
		if int(sb.win.Bottom) >= newHeight {
			sb.win.Bottom -= sb.win.Top
			sb.win.Top = 0
		}
		if sb.cursor.X >= newWidth {
			sb.cursor.X = newWidth - 1
		}
		if sb.cursor.Y >= newHeight {
			sb.cursor.Y = newHeight - 1
		}

		if c.isActive(sb) && c.mode&condrv.EnableWindowInput != 0 {
			record := condrv.NewWindowBufferSizeEvent(int16(newWidth), int16(newHeight))
			c.writeConsoleInput([]condrv.InputRecord{record})
		}
	}
	if params.Mask&condrv.SetOutputInfoCursorPos != 0 {
		sb.cursor.X = int(info.CursorX)
		sb.cursor.Y = int(info.CursorY)
	}
	if params.Mask&condrv.SetOutputInfoAttr != 0 {
		sb.attr = uint16(info.Attr)
	}
	if params.Mask&condrv.SetOutputInfoPopupAttr != 0 {
		sb.popupAttr = uint16(info.PopupAttr)
	}
	if params.Mask&condrv.SetOutputInfoDisplayWindow != 0 {
		sb.win = condrv.SmallRect{
			Left:   info.WinLeft,
			Top:    info.WinTop,
			Right:  info.WinRight,
			Bottom: info.WinBottom,
		}
	}
	if params.Mask&condrv.SetOutputInfoMaxSize != 0 {
		sb.maxWidth = int(info.MaxWidth)
		sb.maxHeight = int(info.MaxHeight)
	}
	if params.Mask&condrv.SetOutputInfoColorTable != 0 {
		sb.colorMap = info.ColorMap
	}
	if params.Mask&condrv.SetOutputInfoFont != 0 {
		sb.font.Width = info.FontWidth
		sb.font.Height = info.FontHeight
		sb.font.Weight = info.FontWeight
		sb.font.PitchFamily = info.FontPitchFamily
		if name := utf16Units(params.FaceName); len(name) > 0 {
			sb.font.FaceName = name
		}
	}

	if c.isActive(sb) {
		c.ttySync()
	}
	return condrv.StatusSuccess
}

// fillOutput repeats one cell from (x,y), clamped to the row or, with wrap
// set, to the end of the buffer. The reply is the number of cells written.
func (c *Console) fillOutput(sb *ScreenBuffer, params *condrv.FillOutputParams) ([]byte, condrv.Status) {
	switch params.Mode {
	case condrv.ModeText, condrv.ModeAttr, condrv.ModeTextAttr, condrv.ModeTextStdAttr:
	default:
		return nil, condrv.StatusInvalidParameter
	}
	if params.X < 0 || params.Y < 0 || params.Count < 0 {
		return nil, condrv.StatusInvalidParameter
	}

	x, y := int(params.X), int(params.Y)
	if y >= sb.height {
		return le32(0), condrv.StatusSuccess
	}

	start := y*sb.width + x
	end := (y + 1) * sb.width
	if params.Wrap {
		end = len(sb.cells)
	}
	count := int(params.Count)
	if count > end-start {
		count = maxInt(end-start, 0)
	}

	for i := 0; i < count; i++ {
		cell := &sb.cells[start+i]
		switch params.Mode {
		case condrv.ModeText:
			cell.Ch = params.Ch
		case condrv.ModeAttr:
			cell.Attr = params.Attr
		case condrv.ModeTextAttr:
			cell.Ch = params.Ch
			cell.Attr = params.Attr
		case condrv.ModeTextStdAttr:
			cell.Ch = params.Ch
			cell.Attr = sb.attr
		}
	}

	if count > 0 && c.isActive(sb) {
		update := rect{
			left:   x % sb.width,
			top:    y + x/sb.width,
			right:  (x + count - 1) % sb.width,
			bottom: y + (x+count-1)/sb.width,
		}
		c.updateOutput(sb, update)
		c.ttySync()
	}

	return le32(uint32(count)), condrv.StatusSuccess
}

// scrollOutput copies the source rectangle to the destination origin, clipped
// to the clip rectangle, and fills the source cells exposed by the move.
func (c *Console) scrollOutput(sb *ScreenBuffer, params *condrv.ScrollParams) condrv.Status {
	xsrc := int(params.Scroll.Left)
	ysrc := int(params.Scroll.Top)
	w := int(params.Scroll.Right-params.Scroll.Left) + 1
	h := int(params.Scroll.Bottom-params.Scroll.Top) + 1

	clip := rect{
		left:   maxInt(int(params.Clip.Left), 0),
		top:    maxInt(int(params.Clip.Top), 0),
		right:  minInt(int(params.Clip.Right), sb.width-1),
		bottom: minInt(int(params.Clip.Bottom), sb.height-1),
	}
	if clip.empty() ||
		params.Scroll.Left < 0 || params.Scroll.Top < 0 ||
		int(params.Scroll.Right) >= sb.width || int(params.Scroll.Bottom) >= sb.height ||
		params.Scroll.Right < params.Scroll.Left || params.Scroll.Top > params.Scroll.Bottom ||
		params.Origin.X < 0 || int(params.Origin.X) >= sb.width ||
		params.Origin.Y < 0 || int(params.Origin.Y) >= sb.height {
		return condrv.StatusInvalidParameter
	}

	src := rect{
		left:   maxInt(xsrc, clip.left),
		top:    maxInt(ysrc, clip.top),
		right:  minInt(xsrc+w-1, clip.right),
		bottom: minInt(ysrc+h-1, clip.bottom),
	}
	dst := rect{
		left:   int(params.Origin.X),
		top:    int(params.Origin.Y),
		right:  int(params.Origin.X) + w - 1,
		bottom: int(params.Origin.Y) + h - 1,
	}

	// Clip the destination, shifting the source origin symmetrically.
	if dst.left < clip.left {
		xsrc += clip.left - dst.left
		w -= clip.left - dst.left
		dst.left = clip.left
	}
	if dst.top < clip.top {
		ysrc += clip.top - dst.top
		h -= clip.top - dst.top
		dst.top = clip.top
	}
	if dst.right > clip.right {
		w -= dst.right - clip.right
		dst.right = clip.right
	}
	if dst.bottom > clip.bottom {
		h -= dst.bottom - clip.bottom
		dst.bottom = clip.bottom
	}

	if w > 0 && h > 0 {
		if ysrc < dst.top {
			// Shifting down: copy bottom-to-top so rows are read before
			// they are overwritten.
			for row := h - 1; row >= 0; row-- {
				from := (ysrc+row)*sb.width + xsrc
				to := (dst.top+row)*sb.width + dst.left
				copy(sb.cells[to:to+w], sb.cells[from:from+w])
			}
		} else {
			// Within a row the source and destination can overlap; copy
			// handles overlapping slices of the same backing array.
			for row := 0; row < h; row++ {
				from := (ysrc+row)*sb.width + xsrc
				to := (dst.top+row)*sb.width + dst.left
				copy(sb.cells[to:to+w], sb.cells[from:from+w])
			}
		}
	}

	// Fill the part of the clipped source not covered by the destination.
	for y := src.top; y <= src.bottom; y++ {
		left, right := src.left, src.right
		if dst.top <= y && y <= dst.bottom {
			if dst.left <= src.left {
				left = maxInt(left, dst.right+1)
			}
			if dst.left >= src.left {
				right = minInt(right, dst.left-1)
			}
		}
		for x := left; x <= right; x++ {
			sb.setCell(x, y, params.Fill)
		}
	}

	update := rect{
		left:   minInt(src.left, dst.left),
		top:    minInt(src.top, dst.top),
		right:  maxInt(src.right, dst.right),
		bottom: maxInt(src.bottom, dst.bottom),
	}
	c.updateOutput(sb, update)
	c.ttySync()
	return condrv.StatusSuccess
}

func le32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func boolInt16(b bool) int16 {
	if b {
		return 1
	}
	return 0
}
