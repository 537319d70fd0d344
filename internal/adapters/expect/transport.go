// Package expect provides the PTY transport adapter for driving interactive
// subprocesses through prompt-synchronized exchanges.
package expect

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/jonboulle/clockwork"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports"
	"go.trai.ch/zerr"
)

// readChunkSize is the PTY read buffer size.
const readChunkSize = 4096

// Factory spawns subprocesses attached to a pseudo-terminal. The legacy
// programs detect whether they run interactively, so plain pipes are not
// enough.
type Factory struct {
	logger ports.Logger
	clock  clockwork.Clock
}

var _ ports.TransportFactory = (*Factory)(nil)

// NewFactory creates a PTY transport factory.
func NewFactory(logger ports.Logger, clock clockwork.Clock) *Factory {
	return &Factory{logger: logger, clock: clock}
}

// Spawn starts program under shell in workDir and returns a transport bound
// to its terminal.
func (f *Factory) Spawn(ctx context.Context, shell, program, workDir string) (ports.Transport, error) {
	cmd := exec.CommandContext(ctx, shell, "-c", program) //nolint:gosec // program comes from the run configuration
	cmd.Dir = workDir

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to start pty"), "program", program)
	}
	f.logger.Info("spawned " + program + " in " + workDir)

	t := &Transport{
		cmd:    cmd,
		ptmx:   ptmx,
		clock:  f.clock,
		chunks: make(chan []byte, 16),
	}
	go t.readLoop()

	return t, nil
}

// Transport is one live PTY connection. A reader goroutine streams output
// into a channel; Expect drains it while scanning for prompt patterns.
type Transport struct {
	cmd   *exec.Cmd
	ptmx  *os.File
	clock clockwork.Clock

	chunks chan []byte
	buf    []byte

	closeOnce sync.Once
	closeErr  error
}

var _ ports.Transport = (*Transport)(nil)

func (t *Transport) readLoop() {
	defer close(t.chunks)
	for {
		b := make([]byte, readChunkSize)
		n, err := t.ptmx.Read(b)
		if n > 0 {
			t.chunks <- b[:n]
		}
		if err != nil {
			return
		}
	}
}

// Send writes one line of input to the subprocess.
func (t *Transport) Send(line string) error {
	if _, err := t.ptmx.WriteString(line + "\n"); err != nil {
		return zerr.Wrap(err, domain.ErrSessionClosed.Error())
	}
	return nil
}

// Expect blocks until the earliest occurrence of any pattern appears in the
// subprocess output. It returns the index of the matched pattern and the
// text that preceded the match; the pattern itself is consumed from the
// stream. Timeouts are fatal to the transport.
func (t *Transport) Expect(ctx context.Context, timeout time.Duration, patterns ...string) (int, string, error) {
	deadline := t.clock.After(timeout)

	for {
		if idx, before, ok := t.scan(patterns); ok {
			return idx, before, nil
		}

		select {
		case chunk, ok := <-t.chunks:
			if !ok {
				return -1, string(t.buf), zerr.With(domain.ErrSessionClosed,
					"tail", tail(t.buf))
			}
			t.buf = append(t.buf, chunk...)
		case <-deadline:
			err := zerr.With(domain.ErrPromptTimeout, "timeout", timeout.String())
			return -1, string(t.buf), zerr.With(err, "tail", tail(t.buf))
		case <-ctx.Done():
			return -1, string(t.buf), zerr.Wrap(ctx.Err(), domain.ErrSessionClosed.Error())
		}
	}
}

// scan finds the earliest match of any pattern in the accumulated buffer.
// Ties at the same offset resolve to the lowest pattern index.
func (t *Transport) scan(patterns []string) (int, string, bool) {
	bestIdx := -1
	bestPos := -1
	bestLen := 0
	text := string(t.buf)

	for i, p := range patterns {
		pos := strings.Index(text, p)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			bestIdx = i
			bestPos = pos
			bestLen = len(p)
		}
	}
	if bestIdx < 0 {
		return -1, "", false
	}

	before := text[:bestPos]
	t.buf = []byte(text[bestPos+bestLen:])
	return bestIdx, before, true
}

// Close releases the PTY and reaps the subprocess. Safe to call more than
// once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		if err := t.ptmx.Close(); err != nil {
			t.closeErr = zerr.Wrap(err, "failed to close pty")
		}
		// Reap the child so it does not linger as a zombie. The exit
		// status is irrelevant once the terminal is gone.
		_ = t.cmd.Wait()
	})
	return t.closeErr
}

// tail returns the last portion of buffered output for error annotations.
func tail(buf []byte) string {
	const n = 256
	if len(buf) <= n {
		return string(buf)
	}
	return string(buf[len(buf)-n:])
}
