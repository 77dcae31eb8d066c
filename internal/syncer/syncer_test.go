package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"

	conf "github.com/bartek5186/erp2www/internal/config"
	"github.com/bartek5186/erp2www/internal/db"
	"github.com/bartek5186/erp2www/internal/erpnext"
	"github.com/bartek5186/erp2www/internal/netmon"
)

type fakeEngine struct {
	mu    sync.Mutex
	stale bool
	err   error
	calls int
}

func (f *fakeEngine) SyncCatalog(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.stale = false
	return 3, nil
}

func (f *fakeEngine) NeedsSync(window time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale
}

func (f *fakeEngine) syncCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDrainer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeDrainer) DrainPending(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 0, 0, nil
}

func (f *fakeDrainer) drainCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setup(t *testing.T, online, stale bool) (*Syncer, *fakeEngine, *fakeDrainer, *netmon.Monitor) {
	t.Helper()
	h, err := db.Open(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mon := netmon.New(zerolog.Nop())
	mon.Set(online)
	eng := &fakeEngine{stale: stale}
	dr := &fakeDrainer{}
	cfg := &conf.Config{FreshnessMinutes: 60}
	s := New(zerolog.Nop(), cfg, h, mon, eng, dr)
	return s, eng, dr, mon
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartOnlineStaleSyncs(t *testing.T) {
	s, eng, dr, _ := setup(t, true, true)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	waitFor(t, "startup sync", func() bool { return eng.syncCalls() == 1 })
	waitFor(t, "idle state", func() bool { return s.State() == StateIdle })
	if dr.drainCalls() != 0 {
		t.Errorf("startup must not drain, got %d", dr.drainCalls())
	}
}

func TestStartOnlineFreshSkipsSync(t *testing.T) {
	s, eng, _, _ := setup(t, true, false)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if eng.syncCalls() != 0 {
		t.Errorf("fresh catalog synced anyway: %d calls", eng.syncCalls())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestReconnectDrainsThenSyncs(t *testing.T) {
	s, eng, dr, mon := setup(t, false, true)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if eng.syncCalls() != 0 || dr.drainCalls() != 0 {
		t.Fatalf("offline start must do nothing: sync=%d drain=%d", eng.syncCalls(), dr.drainCalls())
	}

	mon.Set(true)
	waitFor(t, "drain on reconnect", func() bool { return dr.drainCalls() == 1 })
	waitFor(t, "sync on reconnect", func() bool { return eng.syncCalls() == 1 })

	// staying online produces no further work
	time.Sleep(50 * time.Millisecond)
	if dr.drainCalls() != 1 || eng.syncCalls() != 1 {
		t.Errorf("extra work without a reconnect edge: sync=%d drain=%d", eng.syncCalls(), dr.drainCalls())
	}
}

func TestRepeatedReconnectDrainsEachEdge(t *testing.T) {
	s, _, dr, mon := setup(t, false, false)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	mon.Set(true)
	waitFor(t, "first drain", func() bool { return dr.drainCalls() == 1 })
	mon.Set(false)
	time.Sleep(20 * time.Millisecond)
	mon.Set(true)
	waitFor(t, "second drain", func() bool { return dr.drainCalls() == 2 })
}

func TestSyncFailureSetsErrorStateWithoutRetry(t *testing.T) {
	s, eng, _, _ := setup(t, true, true)
	eng.err = erpnext.ErrFetchFailed
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	waitFor(t, "failed sync", func() bool { return eng.syncCalls() == 1 })
	waitFor(t, "error state", func() bool { return s.State() == StateError })

	// no retry loop: call count stays put
	time.Sleep(80 * time.Millisecond)
	if eng.syncCalls() != 1 {
		t.Errorf("sync retried automatically: %d calls", eng.syncCalls())
	}
}

func TestSyncNowReportsErrorToCaller(t *testing.T) {
	s, eng, _, _ := setup(t, true, false)
	eng.err = erpnext.ErrFetchFailed

	err := s.SyncNow(context.Background())
	if !errors.Is(err, erpnext.ErrFetchFailed) {
		t.Fatalf("manual sync must surface the error, got %v", err)
	}
	if s.State() != StateError {
		t.Errorf("state = %s, want error", s.State())
	}

	eng.err = nil
	if err := s.SyncNow(context.Background()); err != nil {
		t.Fatalf("manual sync: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestStartStopIdempotent(t *testing.T) {
	s, _, _, _ := setup(t, false, false)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.IsRunning() {
		t.Error("expected running")
	}
	s.Stop()
	s.Stop()
	if s.IsRunning() {
		t.Error("expected stopped")
	}
}
