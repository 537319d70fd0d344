package ports

import (
	"context"
	"time"
)

// Transport is one live line-oriented connection to an interactive
// subprocess. Implementations own the subprocess exclusively; operations are
// strictly sequential.
//
//go:generate mockgen -source=transport.go -destination=mocks/mock_transport.go -package=mocks
type Transport interface {
	// Send writes one line of input to the subprocess.
	Send(line string) error

	// Expect blocks until the earliest occurrence of any pattern appears in
	// the subprocess output, then returns the index of the matched pattern
	// and the text that preceded the match. The matched pattern itself is
	// consumed. A timeout is fatal to the transport
	// (domain.ErrPromptTimeout); a closed stream yields
	// domain.ErrSessionClosed.
	Expect(ctx context.Context, timeout time.Duration, patterns ...string) (int, string, error)

	// Close releases the subprocess. Safe to call more than once.
	Close() error
}

// TransportFactory spawns interactive subprocesses.
type TransportFactory interface {
	// Spawn starts `shell -c "cd workDir; program"` and returns a transport
	// attached to its terminal.
	Spawn(ctx context.Context, shell, program, workDir string) (Transport, error)
}
