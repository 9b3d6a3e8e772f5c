package syncutil

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMutex_LockUnlock(t *testing.T) {
	m := NewMutex()

	unlock, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	unlock()

	// Reacquirable after unlock
	unlock, err = m.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	unlock()
}

func TestMutex_ContextTimeout(t *testing.T) {
	m := NewMutex()

	unlock, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.Lock(ctx); err != context.DeadlineExceeded {
		t.Errorf("Lock() with held mutex = %v, want DeadlineExceeded", err)
	}
}

func TestMutex_CancelledContextNeverAcquires(t *testing.T) {
	m := NewMutex()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Lock(ctx); err != context.Canceled {
		t.Errorf("Lock() with cancelled context = %v, want Canceled", err)
	}

	// The mutex must still be free
	unlock, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() after cancelled attempt error = %v", err)
	}
	unlock()
}

func TestMutex_MutualExclusion(t *testing.T) {
	m := NewMutex()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background())
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}
