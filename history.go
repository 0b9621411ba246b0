package conhost

// historyRing is a bounded list of submitted command lines. The newest entry
// is last. Appending past capacity drops the oldest entry; shrinking the
// capacity keeps the newest entries.
type historyRing struct {
	lines []string
	size  int
}

func newHistoryRing(size int) *historyRing {
	if size < 0 {
		size = 0
	}
	return &historyRing{size: size}
}

// Append adds a line. With dedup set, a line equal to the newest entry is
// dropped.
func (h *historyRing) Append(line string, dedup bool) {
	if h.size == 0 {
		return
	}
	if dedup && len(h.lines) > 0 && h.lines[len(h.lines)-1] == line {
		return
	}
	if len(h.lines) == h.size {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:len(h.lines)-1]
	}
	h.lines = append(h.lines, line)
}

// Resize changes the capacity, discarding the oldest entries when shrinking.
func (h *historyRing) Resize(size int) {
	if size < 0 {
		size = 0
	}
	if drop := len(h.lines) - size; drop > 0 {
		h.lines = append([]string(nil), h.lines[drop:]...)
	}
	h.size = size
}

// Len returns the number of used entries.
func (h *historyRing) Len() int {
	return len(h.lines)
}

// Size returns the capacity.
func (h *historyRing) Size() int {
	return h.size
}

// Lines returns a copy of the entries, oldest first.
func (h *historyRing) Lines() []string {
	return append([]string(nil), h.lines...)
}
