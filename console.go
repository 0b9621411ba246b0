package conhost

import (
	"io"
	"log/slog"
	"sync"

	"github.com/danielgatis/go-conhost/condrv"
)

const (
	// DEFAULT_WIDTH is the screen-buffer width used when no geometry is given.
	DEFAULT_WIDTH = 80
	// DEFAULT_HEIGHT is the screen-buffer height used when no geometry is given.
	DEFAULT_HEIGHT = 150
	// DEFAULT_HISTORY_SIZE is the initial command-history capacity.
	DEFAULT_HISTORY_SIZE = 50
	// DEFAULT_CODEPAGE is the initial input and output codepage (OEM US).
	DEFAULT_CODEPAGE = 437
)

// defaultInputMode is the input mode a fresh console starts with.
const defaultInputMode = condrv.EnableProcessedInput | condrv.EnableLineInput |
	condrv.EnableEchoInput | condrv.EnableMouseInput | condrv.EnableInsertMode |
	condrv.EnableQuickEditMode | condrv.EnableExtendedFlags | condrv.EnableAutoPosition

// Console owns the whole state of one console: the screen-buffer map, the
// input record queue, the title and history, and the renderer's belief about
// the controlling terminal. A single Serve goroutine mutates it in response
// to requests; exported accessors take the read lock and may be called from
// anywhere.
type Console struct {
	mu sync.RWMutex

	mode    uint32
	active  *ScreenBuffer
	buffers map[uint32]*ScreenBuffer

	// Input queue and the size, in bytes, of a read parked until input
	// arrives. Zero means no read is parked.
	records     []condrv.InputRecord
	pendingRead int

	title   []uint16
	history *historyRing

	historyMode uint32
	editionMode uint32
	inputCP     uint32
	outputCP    uint32
	win         uint32

	defaultWidth  int
	defaultHeight int

	conn   condrv.Conn
	logger *slog.Logger

	tty ttyState
}

// Option configures a Console during construction.
type Option func(*Console)

// WithTTY sets the terminal output stream. Without it the console runs
// display-less: buffers are maintained but nothing is rendered.
func WithTTY(w io.Writer) Option {
	return func(c *Console) {
		c.tty.out = w
	}
}

// WithSize sets the dimensions used for the initial screen buffer and for
// buffers created while no buffer is active. Values <= 0 are replaced with
// the defaults (80x150).
func WithSize(width, height int) Option {
	if width <= 0 {
		width = DEFAULT_WIDTH
	}
	if height <= 0 {
		height = DEFAULT_HEIGHT
	}
	return func(c *Console) {
		c.defaultWidth = width
		c.defaultHeight = height
	}
}

// WithMode overrides the initial input mode mask.
func WithMode(mode uint32) Option {
	return func(c *Console) {
		c.mode = mode
	}
}

// WithHistorySize sets the initial command-history capacity.
func WithHistorySize(n int) Option {
	return func(c *Console) {
		c.history = newHistoryRing(n)
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) {
		c.logger = l
	}
}

// New creates a console with the given options. The console has no screen
// buffers yet; Init creates and activates the first one.
func New(opts ...Option) *Console {
	c := &Console{
		mode:          defaultInputMode,
		buffers:       make(map[uint32]*ScreenBuffer),
		inputCP:       DEFAULT_CODEPAGE,
		outputCP:      DEFAULT_CODEPAGE,
		defaultWidth:  DEFAULT_WIDTH,
		defaultHeight: DEFAULT_HEIGHT,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.history == nil {
		c.history = newHistoryRing(DEFAULT_HISTORY_SIZE)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.tty.cursorVisible = true
	return c
}

// Init creates screen buffer 1 at the default size, makes it active, and
// initializes the terminal (clear, default attribute, cursor home). Call once
// before Serve.
func (c *Console) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sb, st := c.createScreenBuffer(1, c.defaultWidth, c.defaultHeight)
	if st != condrv.StatusSuccess {
		return st.Err()
	}
	c.active = sb
	c.initTTYOutput()
	return nil
}

// Mode returns the input mode mask.
func (c *Console) Mode() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Title returns the console title.
func (c *Console) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return utf16String(c.title)
}

// ActiveBuffer returns the active screen buffer, or nil if none is active.
func (c *Console) ActiveBuffer() *ScreenBuffer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Buffer returns the screen buffer with the given id, or nil.
func (c *Console) Buffer(id uint32) *ScreenBuffer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buffers[id]
}

// InputCount returns the number of queued input records.
func (c *Console) InputCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// History returns a snapshot of the command history, oldest first.
func (c *Console) History() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.Lines()
}

// AppendHistory records a submitted command line. When history_mode is set,
// a line equal to the most recent entry is not duplicated. The oldest entry
// is dropped once the ring is full.
func (c *Console) AppendHistory(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Append(line, c.historyMode != 0)
}

// createScreenBuffer creates and registers a buffer. Caller holds the lock.
func (c *Console) createScreenBuffer(id uint32, width, height int) (*ScreenBuffer, condrv.Status) {
	if id == 0 || width < 1 || height < 1 {
		return nil, condrv.StatusInvalidParameter
	}
	if _, ok := c.buffers[id]; ok {
		c.logger.Error("screen buffer id already exists", "id", id)
		return nil, condrv.StatusInvalidParameter
	}
	sb := newScreenBuffer(id, width, height)
	c.buffers[id] = sb
	return sb, condrv.StatusSuccess
}

// destroyScreenBuffer removes a buffer from the map. If it was active, the
// console is left with no active buffer. Caller holds the lock.
func (c *Console) destroyScreenBuffer(sb *ScreenBuffer) {
	if c.active == sb {
		c.active = nil
	}
	delete(c.buffers, sb.id)
}

func (c *Console) isActive(sb *ScreenBuffer) bool {
	return sb == c.active
}
