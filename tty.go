package conhost

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/danielgatis/go-conhost/condrv"
	"github.com/unilibs/uniwidth"
)

// ttyBufferSize is the capacity of the emission buffer. Sequences written
// between two syncs coalesce here and reach the terminal in one write.
const ttyBufferSize = 4096

// ttyState is the renderer's belief about the controlling terminal: where
// its cursor is, which SGR attribute it will paint with next, and whether
// the cursor is shown. It is a cache of the terminal, not of any buffer. A
// full repaint updates it as it emits but starts from the current belief;
// nothing resets it.
type ttyState struct {
	out io.Writer
	buf []byte

	cursorX       int
	cursorY       int
	attr          uint16
	cursorVisible bool
}

// ttyFlush writes the buffered bytes to the terminal. Write failures are
// logged and dropped; the next full repaint recovers the terminal state.
func (c *Console) ttyFlush() {
	if c.tty.out == nil || len(c.tty.buf) == 0 {
		return
	}
	if _, err := c.tty.out.Write(c.tty.buf); err != nil {
		c.logger.Warn("tty write failed", "error", err)
	}
	c.tty.buf = c.tty.buf[:0]
}

// ttyWrite appends bytes to the emission buffer, flushing when full. Writes
// larger than the buffer go to the terminal directly.
func (c *Console) ttyWrite(data []byte) {
	if len(data) == 0 || c.tty.out == nil {
		return
	}
	if c.tty.buf == nil {
		c.tty.buf = make([]byte, 0, ttyBufferSize)
	}
	if len(c.tty.buf)+len(data) > ttyBufferSize {
		c.ttyFlush()
	}
	if len(data) > ttyBufferSize {
		if _, err := c.tty.out.Write(data); err != nil {
			c.logger.Warn("tty write failed", "error", err)
		}
		return
	}
	c.tty.buf = append(c.tty.buf, data...)
}

func (c *Console) ttyWriteString(s string) {
	c.ttyWrite([]byte(s))
}

// hideTTYCursor hides the terminal cursor if it is shown.
func (c *Console) hideTTYCursor() {
	if c.tty.cursorVisible {
		c.ttyWriteString("\x1b[25l")
		c.tty.cursorVisible = false
	}
}

// setTTYCursor moves the terminal cursor to (x, y) using the shortest
// sequence for the distance: nothing, CR, CR-LF, backspace, a horizontal
// move, or an absolute position.
func (c *Console) setTTYCursor(x, y int) {
	if c.tty.cursorX == x && c.tty.cursorY == y {
		return
	}

	switch {
	case x == 0 && y == c.tty.cursorY+1:
		c.ttyWriteString("\r\n")
	case x == 0 && y == c.tty.cursorY:
		c.ttyWriteString("\r")
	case y == c.tty.cursorY:
		if x+1 == c.tty.cursorX {
			c.ttyWriteString("\b")
		} else if x > c.tty.cursorX {
			c.ttyWriteString(fmt.Sprintf("\x1b[%dC", x-c.tty.cursorX))
		} else {
			c.ttyWriteString(fmt.Sprintf("\x1b[%dD", c.tty.cursorX-x))
		}
	case x != 0 || y != 0:
		c.hideTTYCursor()
		c.ttyWriteString(fmt.Sprintf("\x1b[%d;%dH", y+1, x+1))
	default:
		c.ttyWriteString("\x1b[H")
	}
	c.tty.cursorX = x
	c.tty.cursorY = y
}

// setTTYAttr emits SGR sequences for the nibbles of attr that differ from the
// belief and records attr as the new belief. Reverting the foreground to the
// default white uses a full SGR reset, which also resets the terminal's
// background; the background is emitted only when its nibble changed and attr
// is not 0x07, so a background set before such a reset is not re-emitted.
func (c *Console) setTTYAttr(attr uint16) {
	if attr&0x0f != c.tty.attr&0x0f {
		if attr&0x0f != 7 {
			n := 30
			if attr&condrv.ForegroundBlue != 0 {
				n += 4
			}
			if attr&condrv.ForegroundGreen != 0 {
				n += 2
			}
			if attr&condrv.ForegroundRed != 0 {
				n += 1
			}
			if attr&condrv.ForegroundIntensity != 0 {
				n += 60
			}
			c.ttyWriteString(fmt.Sprintf("\x1b[%dm", n))
		} else {
			c.ttyWriteString("\x1b[m")
		}
	}

	if attr&0xf0 != c.tty.attr&0xf0 && attr != 7 {
		n := 40
		if attr&condrv.BackgroundBlue != 0 {
			n += 4
		}
		if attr&condrv.BackgroundGreen != 0 {
			n += 2
		}
		if attr&condrv.BackgroundRed != 0 {
			n += 1
		}
		if attr&condrv.BackgroundIntensity != 0 {
			n += 60
		}
		c.ttyWriteString(fmt.Sprintf("\x1b[%dm", n))
	}

	c.tty.attr = attr
}

// ttySync converges the terminal cursor position and visibility to the
// active buffer's cursor and flushes the emission buffer.
func (c *Console) ttySync() {
	if c.tty.out == nil || c.active == nil {
		return
	}

	if c.active.cursor.Visible {
		c.setTTYCursor(c.active.cursor.X, c.active.cursor.Y)
		if !c.tty.cursorVisible {
			c.ttyWriteString("\x1b[?25h")
			c.tty.cursorVisible = true
		}
	} else if c.tty.cursorVisible {
		c.hideTTYCursor()
	}
	c.ttyFlush()
}

// initTTYOutput clears the terminal, applies the active buffer's default
// attribute, and homes the cursor. The bytes stay buffered until the first
// sync.
func (c *Console) initTTYOutput() {
	if c.tty.out == nil {
		return
	}
	c.ttyWriteString("\x1b[2J")
	if c.active != nil {
		c.setTTYAttr(c.active.attr)
	}
	c.ttyWriteString("\x1b[H")
	c.tty.cursorX = 0
	c.tty.cursorY = 0
	c.tty.cursorVisible = true
}

// cellRune converts a cell's UTF-16 code unit to the rune emitted for it.
// Lone surrogates render as the replacement character.
func cellRune(ch uint16) rune {
	if ch >= 0xd800 && ch <= 0xdfff {
		return utf8.RuneError
	}
	return rune(ch)
}

// updateOutput reconciles the terminal with the buffer inside the dirty
// rectangle. Rows ending in four or more blank default cells are finished
// with an erase-to-end-of-line instead of spaces. The cursor-x belief
// advances by each rune's display width; the terminal's own wrapping is
// never relied on.
func (c *Console) updateOutput(sb *ScreenBuffer, r rect) {
	if !c.isActive(sb) || c.tty.out == nil {
		return
	}

	c.hideTTYCursor()

	var encoded [utf8.UTFMax]byte
	for y := r.top; y <= r.bottom; y++ {
		trailingBlanks := 0
		for trailingBlanks < sb.width {
			if !isBlank(sb.cells[(y+1)*sb.width-trailingBlanks-1]) {
				break
			}
			trailingBlanks++
		}
		if trailingBlanks < 4 {
			trailingBlanks = 0
		}

		for x := r.left; x <= r.right; x++ {
			cell := sb.cells[y*sb.width+x]
			c.setTTYAttr(cell.Attr)
			c.setTTYCursor(x, y)

			if x+trailingBlanks >= sb.width {
				c.ttyWriteString("\x1b[K")
				break
			}

			cr := cellRune(cell.Ch)
			n := utf8.EncodeRune(encoded[:], cr)
			c.ttyWrite(encoded[:n])
			c.tty.cursorX += maxInt(uniwidth.RuneWidth(cr), 1)
		}
	}
}
