package recon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jkleiven/rollcall/internal/debounce"
	"github.com/jkleiven/rollcall/internal/ledger"
	"github.com/jkleiven/rollcall/internal/models"
)

func testRunner(t *testing.T, cooldown, gap time.Duration) (*Runner, *ledger.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.NewStore(filepath.Join(dir, "Attendance_Log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRunner(store, NewEngine(gap), debounce.NewTracker(cooldown), logger, nil)
	t.Cleanup(r.Close)
	return r, store
}

func do(t *testing.T, r *Runner, identity string, at time.Time) Result {
	t.Helper()
	res, err := r.Do(context.Background(), models.IdentityEvent{Identity: identity, ObservedAt: at})
	if err != nil {
		t.Fatalf("Do(%s): %v", identity, err)
	}
	return res
}

func TestFullDayCycle(t *testing.T) {
	r, store := testRunner(t, 5*time.Second, 2*time.Hour)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

	// 09:00:00 — first event, checks in and creates the file.
	res := do(t, r, "Asha", day.Add(9*time.Hour))
	if res.Outcome != OutcomeCheckInAccepted {
		t.Fatalf("1: outcome = %s", res.Outcome)
	}

	// 09:00:02 — inside cooldown, suppressed, ledger untouched.
	res = do(t, r, "Asha", day.Add(9*time.Hour+2*time.Second))
	if res.Outcome != OutcomeSuppressed {
		t.Fatalf("2: outcome = %s", res.Outcome)
	}

	// 10:30:00 — cooldown over, gap not met, ledger untouched.
	res = do(t, r, "Asha", day.Add(10*time.Hour+30*time.Minute))
	if res.Outcome != OutcomeCheckOutRejectedGap {
		t.Fatalf("3: outcome = %s", res.Outcome)
	}

	// 11:05:00 — gap met, record closes.
	res = do(t, r, "Asha", day.Add(11*time.Hour+5*time.Minute))
	if res.Outcome != OutcomeCheckOutAccepted {
		t.Fatalf("4: outcome = %s", res.Outcome)
	}

	// 15:00:00 — cycle complete, no new row.
	res = do(t, r, "Asha", day.Add(15*time.Hour))
	if res.Outcome != OutcomeAlreadyClosed {
		t.Fatalf("5: outcome = %s", res.Outcome)
	}

	snap, err := store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(snap.Rows))
	}
	rec := snap.Rows[0].Record
	if rec.CheckIn != "09:00:00" || rec.CheckOut != "11:05:00" || rec.Status != models.StatusCheckedOut {
		t.Errorf("record = %+v", rec)
	}
}

func TestDebounceLimitsMutations(t *testing.T) {
	r, store := testRunner(t, 5*time.Second, 2*time.Hour)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)

	// A burst of recognitions a few hundred milliseconds apart, the way a
	// visible face hits every processed frame.
	for i := 0; i < 10; i++ {
		do(t, r, "Asha", base.Add(time.Duration(i)*300*time.Millisecond))
	}

	snap, err := store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Rows) != 1 {
		t.Errorf("rows = %d, want 1 after burst", len(snap.Rows))
	}
}

func TestGapRejectionArmsCooldown(t *testing.T) {
	r, _ := testRunner(t, 5*time.Second, 2*time.Hour)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)

	do(t, r, "Asha", base)
	res := do(t, r, "Asha", base.Add(10*time.Second))
	if res.Outcome != OutcomeCheckOutRejectedGap {
		t.Fatalf("outcome = %s", res.Outcome)
	}

	// The rejection itself armed the cooldown; the next frame is
	// suppressed instead of retrying the failed check-out.
	res = do(t, r, "Asha", base.Add(12*time.Second))
	if res.Outcome != OutcomeSuppressed {
		t.Errorf("outcome = %s, want suppressed", res.Outcome)
	}
}

func TestStoreFailureDoesNotArmCooldown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Attendance_Log.csv")
	// A directory at the ledger path makes every read fail.
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := ledger.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRunner(store, NewEngine(2*time.Hour), debounce.NewTracker(5*time.Second), logger, nil)
	defer r.Close()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	if _, err := r.Do(context.Background(), models.IdentityEvent{Identity: "Asha", ObservedAt: base}); err == nil {
		t.Fatal("expected store error")
	}

	// Fix the store: the very next event must not be suppressed.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	res, err := r.Do(context.Background(), models.IdentityEvent{Identity: "Asha", ObservedAt: base.Add(time.Second)})
	if err != nil {
		t.Fatalf("Do after fix: %v", err)
	}
	if res.Outcome != OutcomeCheckInAccepted {
		t.Errorf("outcome = %s, want checkin (failure must not arm cooldown)", res.Outcome)
	}
}

func TestSubmitProcessesAsync(t *testing.T) {
	r, store := testRunner(t, 5*time.Second, 2*time.Hour)

	if err := r.Submit(models.IdentityEvent{Identity: "Leo"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := store.LoadAll()
		if err == nil && len(snap.Rows) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("submitted event never reached the ledger")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitEmptyIdentity(t *testing.T) {
	r, _ := testRunner(t, 5*time.Second, 2*time.Hour)
	if err := r.Submit(models.IdentityEvent{}); err == nil {
		t.Error("empty identity should be rejected")
	}
}

func TestOutcomeCallbackFires(t *testing.T) {
	dir := t.TempDir()
	store, err := ledger.NewStore(filepath.Join(dir, "Attendance_Log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	got := make(chan Result, 1)
	r := NewRunner(store, NewEngine(2*time.Hour), debounce.NewTracker(5*time.Second), logger, func(res Result) {
		got <- res
	})
	defer r.Close()

	do(t, r, "Asha", time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local))

	select {
	case res := <-got:
		if res.Outcome != OutcomeCheckInAccepted {
			t.Errorf("callback outcome = %s", res.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}
