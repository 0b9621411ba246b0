// Command conhost is a headless console host. It inherits a server
// descriptor from the process that spawned it, serves console requests
// forwarded on it, and renders the active screen buffer to stdout as VT
// escape sequences.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/danielgatis/go-conhost"
	"github.com/danielgatis/go-conhost/condrv"
)

type options struct {
	headless bool
	width    int
	height   int
	signalFd int
	serverFd int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "conhost",
		Short:         "Headless console host",
		Long:          "conhost maintains console screen buffers and an input queue on behalf of client programs, serving requests forwarded on an inherited server descriptor and rendering to the controlling terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run the tty back-end")
	cmd.Flags().IntVar(&opts.width, "width", 0, "initial screen buffer width")
	cmd.Flags().IntVar(&opts.height, "height", 0, "initial screen buffer height")
	cmd.Flags().IntVar(&opts.signalFd, "signal", -1, "shutdown signal descriptor")
	cmd.Flags().IntVar(&opts.serverFd, "server", -1, "console server descriptor")
	return cmd
}

// inheritFd turns an inherited descriptor into a file, forcing it into
// blocking mode first: the spawning process may have left it non-blocking.
func inheritFd(fd int, name string) (*os.File, error) {
	if err := unix.SetNonblock(fd, false); err != nil {
		return nil, fmt.Errorf("descriptor %d (%s): %w", fd, name, err)
	}
	return os.NewFile(uintptr(fd), name), nil
}

// defaultGeometry picks the initial buffer size: explicit flags win, then the
// controlling terminal's size, then 80x150.
func defaultGeometry(opts *options) (int, int) {
	width, height := opts.width, opts.height
	if width != 0 && height != 0 {
		return width, height
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if width == 0 {
				width = tw
			}
			if height == 0 {
				height = th
			}
		}
	}
	if width == 0 {
		width = conhost.DEFAULT_WIDTH
	}
	if height == 0 {
		height = conhost.DEFAULT_HEIGHT
	}
	return width, height
}

// watchSignal reads 2-byte signal ids from the signal descriptor and cancels
// the serve context when the stream ends.
func watchSignal(logger *slog.Logger, signal io.Reader, cancel context.CancelFunc) {
	defer cancel()
	var id [2]byte
	for {
		if _, err := io.ReadFull(signal, id[:]); err != nil {
			logger.Debug("signal stream closed", "error", err)
			return
		}
		logger.Warn("unimplemented signal", "id", uint16(id[0])|uint16(id[1])<<8)
	}
}

func run(cmd *cobra.Command, opts *options) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if !opts.headless {
		fmt.Fprintln(os.Stderr, "windowed mode not supported")
		return nil
	}

	if (opts.width != 0 && (opts.width < 1 || opts.width > 0xffff)) ||
		(opts.height != 0 && (opts.height < 1 || opts.height > 0xffff)) {
		return fmt.Errorf("invalid geometry %dx%d", opts.width, opts.height)
	}
	if opts.serverFd < 0 {
		return fmt.Errorf("no server descriptor")
	}

	server, err := inheritFd(opts.serverFd, "server")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.signalFd >= 0 {
		signal, err := inheritFd(opts.signalFd, "signal")
		if err != nil {
			return err
		}
		go watchSignal(logger, signal, cancel)
	}

	width, height := defaultGeometry(opts)
	console := conhost.New(
		conhost.WithTTY(os.Stdout),
		conhost.WithSize(width, height),
		conhost.WithLogger(logger),
	)
	if err := console.Init(); err != nil {
		return fmt.Errorf("create screen buffer: %w", err)
	}

	return console.Serve(ctx, condrv.NewPipeConn(server))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "conhost:", err)
		os.Exit(1)
	}
}
