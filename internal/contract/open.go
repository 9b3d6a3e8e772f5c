package contract

import (
	"fmt"
	"log/slog"
	"time"
)

// Backend kinds accepted by Open.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Options selects and configures a backend. The zero value opens a file
// backend in ./smart_contracts with defaults.
type Options struct {
	Backend         string        // "file" (default) or "memory"
	Dir             string        // file backend: contracts directory
	LockWait        time.Duration // bounded wait for document locks
	StartingBalance float64       // balance credited to auto-created treasuries
	Logger          *slog.Logger
}

// Open builds the configured backend. Callers receive an explicit store
// handle to inject into the decision engine and HTTP layer; there is no
// process-global instance.
func Open(opts Options) (Backend, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryBackend(opts), nil
	case BackendFile, "":
		dir := opts.Dir
		if dir == "" {
			dir = "smart_contracts"
		}
		return NewFileBackend(dir, opts)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrValidation, opts.Backend)
	}
}
