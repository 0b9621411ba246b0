package conhost

import (
	"testing"
)

func TestNewConsoleDefaults(t *testing.T) {
	c := New()

	if c.mode != defaultInputMode {
		t.Errorf("mode = %#x", c.mode)
	}
	if c.inputCP != DEFAULT_CODEPAGE || c.outputCP != DEFAULT_CODEPAGE {
		t.Errorf("codepages = %d/%d", c.inputCP, c.outputCP)
	}
	if c.history.Size() != DEFAULT_HISTORY_SIZE {
		t.Errorf("history size = %d", c.history.Size())
	}
	if c.defaultWidth != DEFAULT_WIDTH || c.defaultHeight != DEFAULT_HEIGHT {
		t.Errorf("default geometry = %dx%d", c.defaultWidth, c.defaultHeight)
	}
	if c.ActiveBuffer() != nil {
		t.Error("fresh console has an active buffer")
	}
}

func TestWithSizeRejectsNonPositive(t *testing.T) {
	c := New(WithSize(0, -3))
	if c.defaultWidth != DEFAULT_WIDTH || c.defaultHeight != DEFAULT_HEIGHT {
		t.Errorf("geometry = %dx%d", c.defaultWidth, c.defaultHeight)
	}
}

func TestInitCreatesActiveBuffer(t *testing.T) {
	c := New(WithSize(8, 4))
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	sb := c.ActiveBuffer()
	if sb == nil {
		t.Fatal("no active buffer after Init")
	}
	if sb.ID() != 1 {
		t.Errorf("initial buffer id = %d", sb.ID())
	}
	if w, h := sb.Size(); w != 8 || h != 4 {
		t.Errorf("initial buffer = %dx%d", w, h)
	}
	if c.Buffer(1) != sb {
		t.Error("buffer 1 not registered")
	}
}

func TestInitTwiceFails(t *testing.T) {
	c := New(WithSize(8, 4))
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	if err := c.Init(); err == nil {
		t.Error("second Init succeeded")
	}
}

func TestBufferInvariants(t *testing.T) {
	c := New(WithSize(8, 4))
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	for id, sb := range c.buffers {
		if sb.ID() != id {
			t.Errorf("map key %d holds buffer %d", id, sb.ID())
		}
		w, h := sb.Size()
		if len(sb.cells) != w*h {
			t.Errorf("buffer %d: %d cells for %dx%d", id, len(sb.cells), w, h)
		}
		cur := sb.CursorState()
		if cur.X < 0 || cur.X >= w || cur.Y < 0 || cur.Y >= h {
			t.Errorf("buffer %d: cursor (%d,%d) outside %dx%d", id, cur.X, cur.Y, w, h)
		}
		if sb.win.Left < 0 || int(sb.win.Right) >= w || sb.win.Top < 0 || int(sb.win.Bottom) >= h {
			t.Errorf("buffer %d: window %+v outside %dx%d", id, sb.win, w, h)
		}
	}
}
