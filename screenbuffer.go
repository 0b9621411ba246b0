package conhost

import (
	"strings"
	"unicode/utf16"

	"github.com/danielgatis/go-conhost/condrv"
)

// Cursor is the text cursor of one screen buffer. Size is the percentage of
// the cell the cursor glyph fills, 1 to 100.
type Cursor struct {
	X       int
	Y       int
	Size    int
	Visible bool
}

// FontInfo is the font metadata a screen buffer carries for its clients. The
// face name is kept as UTF-16 code units so it round-trips through the
// protocol unchanged.
type FontInfo struct {
	Width       int16
	Height      int16
	Weight      int16
	PitchFamily int16
	FaceName    []uint16
}

// Font weight and pitch/family defaults for fresh buffers.
const (
	fontWeightNormal    = 400
	fontPitchFixedDcare = 0x31 // fixed pitch, family don't-care
)

// ScreenBuffer is one two-dimensional grid of cells with its cursor,
// viewport, font, and palette. Cells are stored row-major in a single flat
// slice indexed y*width+x. Buffers are owned by the Console's buffer map and
// mutated only through the dispatcher.
type ScreenBuffer struct {
	id     uint32
	mode   uint32
	width  int
	height int
	cursor Cursor

	attr      uint16
	popupAttr uint16

	maxWidth  int
	maxHeight int
	win       condrv.SmallRect

	font     FontInfo
	colorMap [16]uint32

	cells []condrv.CharInfo
}

// newScreenBuffer creates a buffer filled with blank white-on-black cells.
func newScreenBuffer(id uint32, width, height int) *ScreenBuffer {
	sb := &ScreenBuffer{
		id:        id,
		mode:      condrv.EnableProcessedOutput | condrv.EnableWrapAtEOLOutput,
		width:     width,
		height:    height,
		cursor:    Cursor{Size: 100, Visible: true},
		attr:      condrv.DefaultAttr,
		popupAttr: 0xf5,
		maxWidth:  80,
		maxHeight: 25,
		font: FontInfo{
			Weight:      fontWeightNormal,
			PitchFamily: fontPitchFixedDcare,
		},
		cells: make([]condrv.CharInfo, width*height),
	}
	sb.win = condrv.SmallRect{
		Left:   0,
		Top:    0,
		Right:  int16(minInt(sb.maxWidth, width) - 1),
		Bottom: int16(minInt(sb.maxHeight, height) - 1),
	}
	for i := range sb.cells {
		sb.cells[i] = blankCell
	}
	return sb
}

// ID returns the buffer id.
func (sb *ScreenBuffer) ID() uint32 {
	return sb.id
}

// Size returns the grid dimensions.
func (sb *ScreenBuffer) Size() (width, height int) {
	return sb.width, sb.height
}

// CursorState returns the cursor state.
func (sb *ScreenBuffer) CursorState() Cursor {
	return sb.cursor
}

// Cell returns the cell at (x, y), or a blank cell when out of bounds.
func (sb *ScreenBuffer) Cell(x, y int) condrv.CharInfo {
	if x < 0 || x >= sb.width || y < 0 || y >= sb.height {
		return blankCell
	}
	return sb.cells[y*sb.width+x]
}

// setCell stores a cell without bounds checking; callers validate.
func (sb *ScreenBuffer) setCell(x, y int, c condrv.CharInfo) {
	sb.cells[y*sb.width+x] = c
}

// winWidth and winHeight are the viewport dimensions in cells.
func (sb *ScreenBuffer) winWidth() int {
	return int(sb.win.Right-sb.win.Left) + 1
}

func (sb *ScreenBuffer) winHeight() int {
	return int(sb.win.Bottom-sb.win.Top) + 1
}

// resize reallocates the grid to the new dimensions, preserving the top-left
// min(old,new) rectangle and filling exposed cells with blanks. Geometry
// validation is the caller's job.
func (sb *ScreenBuffer) resize(newWidth, newHeight int) {
	newCells := make([]condrv.CharInfo, newWidth*newHeight)
	copyWidth := minInt(sb.width, newWidth)
	copyHeight := minInt(sb.height, newHeight)

	for y := 0; y < copyHeight; y++ {
		copy(newCells[y*newWidth:y*newWidth+copyWidth], sb.cells[y*sb.width:y*sb.width+copyWidth])
	}
	for y := 0; y < newHeight; y++ {
		start := y * newWidth
		from := copyWidth
		if y >= copyHeight {
			from = 0
		}
		for x := from; x < newWidth; x++ {
			newCells[start+x] = blankCell
		}
	}

	sb.cells = newCells
	sb.width = newWidth
	sb.height = newHeight
}

// String renders the grid as text for debugging and tests: one line per row,
// trailing spaces trimmed, trailing empty rows omitted.
func (sb *ScreenBuffer) String() string {
	var lines []string
	lastNonEmpty := -1
	for y := 0; y < sb.height; y++ {
		units := make([]uint16, sb.width)
		for x := 0; x < sb.width; x++ {
			units[x] = sb.cells[y*sb.width+x].Ch
		}
		line := strings.TrimRight(string(utf16.Decode(units)), " ")
		lines = append(lines, line)
		if line != "" {
			lastNonEmpty = y
		}
	}
	return strings.Join(lines[:lastNonEmpty+1], "\n")
}
