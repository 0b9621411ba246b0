package conhost

import (
	"testing"
	"time"

	"github.com/creack/pty"

	"github.com/danielgatis/go-conhost/condrv"
)

// TestRendererWritesToRealPty drives the renderer through an actual pty pair
// and checks the bytes arrive on the master side.
func TestRendererWritesToRealPty(t *testing.T) {
	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer master.Close()
	defer slave.Close()

	c := New(WithTTY(slave), WithSize(4, 2))
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}

	params := condrv.OutputParams{X: 0, Y: 0, Mode: condrv.ModeText}
	if _, st := doRequest(c, condrv.WriteOutput, 1, params.Encode(encodeText("ok")), 4); st != condrv.StatusSuccess {
		t.Fatalf("write failed: %v", st)
	}
	c.ttyFlush()

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, err := master.Read(buf)
		if err != nil {
			done <- ""
			return
		}
		done <- string(buf[:n])
	}()

	select {
	case got := <-done:
		if got == "" {
			t.Fatal("no bytes reached the pty")
		}
		if !containsSubsequence(got, "ok") {
			t.Errorf("pty received %q, expected it to contain %q", got, "ok")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out reading from pty")
	}
}

func containsSubsequence(s, sub string) bool {
	i := 0
	for _, r := range s {
		if i < len(sub) && byte(r) == sub[i] {
			i++
		}
	}
	return i == len(sub)
}
