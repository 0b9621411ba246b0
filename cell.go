package conhost

import "github.com/danielgatis/go-conhost/condrv"

// blankCell is what cleared screen area is filled with.
var blankCell = condrv.DefaultCharInfo

// isBlank reports whether a cell renders as empty space with default colors,
// so the renderer may cover it with an erase-to-end-of-line.
func isBlank(c condrv.CharInfo) bool {
	return c.Ch == ' ' && c.Attr == condrv.DefaultAttr
}

// rect is an inclusive cell rectangle in buffer coordinates, used for dirty
// region bookkeeping between the buffer operations and the renderer.
type rect struct {
	left   int
	top    int
	right  int
	bottom int
}

func (r rect) empty() bool {
	return r.left > r.right || r.top > r.bottom
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
