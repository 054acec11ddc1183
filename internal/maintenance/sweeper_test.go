package maintenance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// mockSweeperStore implements SweeperStore for testing.
type mockSweeperStore struct {
	mu             sync.Mutex
	sessionCalls   int
	inviteCalls    int
	completedCount int64
	purgedCount    int64
	sessionErr     error
	inviteErr      error
}

func (m *mockSweeperStore) MarkPastSessionsCompleted(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCalls++
	if m.sessionErr != nil {
		return 0, m.sessionErr
	}
	return m.completedCount, nil
}

func (m *mockSweeperStore) DeleteExpiredInvitations(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inviteCalls++
	if m.inviteErr != nil {
		return 0, m.inviteErr
	}
	return m.purgedCount, nil
}

func (m *mockSweeperStore) getCalls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionCalls, m.inviteCalls
}

func TestNewSweeper(t *testing.T) {
	s := NewSweeper(&mockSweeperStore{}, zerolog.Nop())

	if s == nil {
		t.Fatal("expected non-nil sweeper")
	}
	if s.running {
		t.Error("expected sweeper to not be running initially")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	s := NewSweeper(&mockSweeperStore{}, zerolog.Nop())

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error starting sweeper: %v", err)
	}

	if !s.running {
		t.Error("expected sweeper to be running after Start()")
	}

	// Starting again should return an error
	if err := s.Start(); err == nil {
		t.Error("expected error when starting already-running sweeper")
	}

	s.Stop()

	if s.running {
		t.Error("expected sweeper to not be running after Stop()")
	}
}

func TestSweeper_StopWhenNotRunning(t *testing.T) {
	s := NewSweeper(&mockSweeperStore{}, zerolog.Nop())

	// Stopping without starting should not panic
	ctx := s.Stop()
	if ctx == nil {
		t.Error("expected non-nil context from Stop()")
	}
}

func TestSweeper_RunNow(t *testing.T) {
	store := &mockSweeperStore{completedCount: 3, purgedCount: 2}
	s := NewSweeper(store, zerolog.Nop())

	s.RunNow()

	sessionCalls, inviteCalls := store.getCalls()
	if sessionCalls != 1 {
		t.Errorf("expected 1 session sweep call, got %d", sessionCalls)
	}
	if inviteCalls != 1 {
		t.Errorf("expected 1 invitation sweep call, got %d", inviteCalls)
	}
}

func TestSweeper_RunNow_SessionErrorStillPurges(t *testing.T) {
	store := &mockSweeperStore{sessionErr: errors.New("db connection lost")}
	s := NewSweeper(store, zerolog.Nop())

	s.RunNow()

	sessionCalls, inviteCalls := store.getCalls()
	if sessionCalls != 1 {
		t.Errorf("expected 1 session sweep call, got %d", sessionCalls)
	}
	// A session sweep failure must not skip the invitation purge.
	if inviteCalls != 1 {
		t.Errorf("expected 1 invitation sweep call, got %d", inviteCalls)
	}
}

func TestSweeper_RunNow_InviteError(t *testing.T) {
	store := &mockSweeperStore{inviteErr: errors.New("db connection lost")}
	s := NewSweeper(store, zerolog.Nop())

	// Should not panic on error
	s.RunNow()
}

func TestSweeper_ConcurrentRunNow(t *testing.T) {
	store := &mockSweeperStore{completedCount: 1}
	s := NewSweeper(store, zerolog.Nop())

	var wg sync.WaitGroup
	var completed atomic.Int32

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RunNow()
			completed.Add(1)
		}()
	}

	wg.Wait()

	if completed.Load() != 10 {
		t.Errorf("expected 10 completions, got %d", completed.Load())
	}
	sessionCalls, _ := store.getCalls()
	if sessionCalls != 10 {
		t.Errorf("expected 10 calls, got %d", sessionCalls)
	}
}
