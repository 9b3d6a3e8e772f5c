// Package syncutil provides a channel-based mutex that supports context
// cancellation, used to serialize read-modify-write cycles on ledger
// documents with a bounded wait.
package syncutil

import "context"

// Mutex is a mutex implemented via a buffered channel, allowing select{}
// against a context cancellation channel while waiting.
type Mutex struct {
	ch chan struct{}
}

// NewMutex creates an unlocked mutex.
func NewMutex() *Mutex {
	m := &Mutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{} // start unlocked
	return m
}

// Lock acquires the mutex, respecting context cancellation. On success it
// returns an unlock function and nil error; the caller MUST call the unlock
// function when done. If the context expires while waiting, Lock returns nil
// and the context error.
func (m *Mutex) Lock(ctx context.Context) (func(), error) {
	// An already-cancelled context never acquires, even if the mutex is free.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-m.ch:
		return func() { m.ch <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
