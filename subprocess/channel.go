// Package subprocess owns the compiler child process: its stdin, stdout,
// and stderr pipes, a write path serialized by a mutex, and a read loop
// that decodes framed outbound envelopes and hands them to a dispatcher.
package subprocess

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/embedstyle/stylehost/dispatch"
	"github.com/embedstyle/stylehost/log"
	"github.com/embedstyle/stylehost/metrics"
	"github.com/embedstyle/stylehost/wire"
)

// ErrClosed is returned by Send once the channel has been closed, whether
// by explicit Close or by a fatal read/write error.
var ErrClosed = errors.New("subprocess: channel closed")

// Config configures a channel's child process launch.
type Config struct {
	// CompilerPath is the absolute, already-resolved path to the compiler
	// binary (see the launcher package).
	CompilerPath string
	// Args are additional arguments passed to the compiler binary.
	Args []string
	// Codec encodes inbound and decodes outbound envelopes.
	Codec wire.Codec
	// Dispatcher receives every decoded outbound message and every fatal
	// transport error.
	Dispatcher *dispatch.Dispatcher
	// Logger receives stderr lines and lifecycle diagnostics.
	Logger *log.Logger
	// Collector records transport-level metrics. May be nil.
	Collector *metrics.Collector
}

// Channel owns one compiler child process for the lifetime of a host.
// Send is safe for concurrent use; the write mutex guarantees frames on
// the wire are never interleaved across callers.
type Channel struct {
	codec      wire.Codec
	dispatcher *dispatch.Dispatcher
	logger     *log.Logger
	collector  *metrics.Collector

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	writeMu sync.Mutex
	writer  *wire.FrameWriter

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Start launches the compiler child process and begins the read loop and
// stderr pump. The returned Channel is ready for Send once Start returns
// without error.
func Start(ctx context.Context, cfg Config) (*Channel, error) {
	cmd := exec.CommandContext(ctx, cfg.CompilerPath, cfg.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("subprocess: start %s: %w", cfg.CompilerPath, err)
	}

	ch := &Channel{
		codec:      cfg.Codec,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		collector:  cfg.Collector,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		writer:     wire.NewFrameWriter(stdin),
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
	}

	go ch.readLoop()
	go ch.stderrPump()
	go ch.reap()

	return ch, nil
}

// Send encodes msg and writes it as a single frame, holding the write
// mutex for the duration so frames from concurrent callers are never
// interleaved on the wire.
func (c *Channel) Send(msg *wire.Inbound) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	payload, err := c.codec.EncodeInbound(msg)
	if err != nil {
		return fmt.Errorf("subprocess: encode: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	if err := c.writer.WriteFrame(payload); err != nil {
		c.fatal(&wire.TransportClosed{During: "send", Err: err})
		return ErrClosed
	}
	return nil
}

// Closed reports whether the channel has been closed, whether by explicit
// Close or by a fatal transport error.
func (c *Channel) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close is idempotent. It closes all three pipes, signals the read loop
// and stderr pump to stop, and waits for the child to be reaped.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.stdin.Close()
		_ = c.stdout.Close()
		_ = c.stderr.Close()
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		<-c.done
	})
	return err
}

// fatal reports a transport-ending error to the dispatcher as an
// unassociated protocol-style failure and closes the channel. Safe to
// call from any of the background goroutines; only the first call has
// effect on the dispatcher (closeOnce still runs Close's body once).
func (c *Channel) fatal(err error) {
	if c.Closed() {
		return
	}
	c.collector.IncTransportError()
	c.dispatcher.Notify(nil, err)
	go c.Close()
}

// readLoop repeatedly frame-reads stdout, decodes an outbound envelope,
// and hands it to the dispatcher. On EOF or decode failure it reports a
// fatal error and stops; this goroutine never touches the write path.
func (c *Channel) readLoop() {
	reader := wire.NewFrameReader(c.stdout)
	for {
		payload, err := reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.fatal(&wire.TransportClosed{During: "read", Err: io.EOF})
			} else {
				c.fatal(err)
			}
			return
		}

		msg, err := c.codec.DecodeOutbound(payload)
		if err != nil {
			c.fatal(fmt.Errorf("subprocess: decode: %w", err))
			return
		}

		c.dispatcher.Notify(msg, nil)
	}
}

// stderrPump copies the child's stderr line by line to the host logger.
// This never fails the channel on its own EOF (normal at process exit);
// a genuine I/O error is reported as fatal.
func (c *Channel) stderrPump() {
	scanner := bufio.NewScanner(c.stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.logger.Info("compiler stderr", map[string]any{"line": scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		c.fatal(fmt.Errorf("subprocess: stderr: %w", err))
	}
}

// reap waits for the child process to exit independently of Close,
// closing c.done once it has been reaped so Close can return. If the
// process exits before the channel was asked to close, that exit is
// unexpected: classify it via errors.As against *exec.ExitError and the
// platform wait status, and report it to the dispatcher as a fatal
// transport condition exactly like a read or write failure. If Close (or
// another fatal path) already closed the channel first, the exit is
// expected and nothing further is reported.
func (c *Channel) reap() {
	waitErr := c.cmd.Wait()
	close(c.done)

	if c.Closed() {
		return
	}

	exitCode := 0
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		exitCode = 0
	case errors.As(waitErr, &exitErr):
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			exitCode = status.ExitStatus()
		} else {
			exitCode = -1
		}
	default:
		exitCode = -1
	}

	classified := fmt.Errorf("compiler process exited unexpectedly with code %d", exitCode)
	if waitErr != nil {
		classified = fmt.Errorf("compiler process exited unexpectedly with code %d: %w", exitCode, waitErr)
	}
	c.fatal(&wire.TransportClosed{During: "exit", Err: classified})
}
