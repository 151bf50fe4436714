package recon

import (
	"testing"
	"time"

	"github.com/jkleiven/rollcall/internal/ledger"
	"github.com/jkleiven/rollcall/internal/models"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 1, hour, min, sec, 0, time.Local)
}

func openRecord(identity, checkIn string) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		Identity: identity, Date: "2024-01-01", CheckIn: checkIn, Status: models.StatusCheckedIn,
	}
}

func TestFirstEventChecksIn(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()

	res := e.Decide(snap, "Asha", at(9, 0, 0))
	if res.Outcome != OutcomeCheckInAccepted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !res.Mutated {
		t.Error("check-in should mutate")
	}
	if len(snap.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(snap.Rows))
	}
	rec := snap.Rows[0].Record
	if rec.Identity != "Asha" || rec.Date != "2024-01-01" || rec.CheckIn != "09:00:00" {
		t.Errorf("record = %+v", rec)
	}
	if rec.CheckOut != "" || rec.Status != models.StatusCheckedIn {
		t.Errorf("new record should be open, got %+v", rec)
	}
}

func TestGapNotMetRejectsCheckOut(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(openRecord("Asha", "09:00:00"))

	res := e.Decide(snap, "Asha", at(10, 30, 0))
	if res.Outcome != OutcomeCheckOutRejectedGap {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Mutated {
		t.Error("gap rejection must not mutate")
	}
	if want := 1*time.Hour + 30*time.Minute; res.Elapsed != want {
		t.Errorf("elapsed = %s, want %s", res.Elapsed, want)
	}
	if want := 30 * time.Minute; res.Shortfall != want {
		t.Errorf("shortfall = %s, want %s", res.Shortfall, want)
	}
	if snap.Rows[0].Record.CheckOut != "" {
		t.Error("record must stay open")
	}
}

func TestGapMetClosesRecord(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(openRecord("Asha", "09:00:00"))

	res := e.Decide(snap, "Asha", at(11, 5, 0))
	if res.Outcome != OutcomeCheckOutAccepted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if !res.Mutated {
		t.Error("check-out should mutate")
	}
	rec := snap.Rows[0].Record
	if rec.CheckOut != "11:05:00" || rec.Status != models.StatusCheckedOut {
		t.Errorf("record = %+v", rec)
	}
}

func TestGapBoundaryExactlyMet(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(openRecord("Asha", "09:00:00"))

	res := e.Decide(snap, "Asha", at(11, 0, 0))
	if res.Outcome != OutcomeCheckOutAccepted {
		t.Errorf("elapsed == gap should close, got %s", res.Outcome)
	}
}

func TestClosedDayDoesNotReopen(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(&models.AttendanceRecord{
		Identity: "Asha", Date: "2024-01-01",
		CheckIn: "09:00:00", CheckOut: "11:05:00", Status: models.StatusCheckedOut,
	})

	res := e.Decide(snap, "Asha", at(15, 0, 0))
	if res.Outcome != OutcomeAlreadyClosed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Mutated || len(snap.Rows) != 1 {
		t.Error("closed day must not grow a second record")
	}
}

func TestOtherIdentityUnaffected(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(openRecord("Asha", "09:00:00"))

	res := e.Decide(snap, "Leo", at(9, 30, 0))
	if res.Outcome != OutcomeCheckInAccepted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(snap.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(snap.Rows))
	}
}

func TestPreviousDayRecordIgnored(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(&models.AttendanceRecord{
		Identity: "Asha", Date: "2023-12-31", CheckIn: "09:00:00", Status: models.StatusCheckedIn,
	})

	// Yesterday's record stayed open (no midnight handling); today opens
	// a fresh cycle instead of closing it.
	res := e.Decide(snap, "Asha", at(9, 0, 0))
	if res.Outcome != OutcomeCheckInAccepted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if snap.Rows[0].Record.CheckOut != "" {
		t.Error("yesterday's record must not be touched")
	}
}

func TestMultipleOpenRecordsTieBreak(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(openRecord("Asha", "08:00:00"))
	snap.Append(openRecord("Asha", "09:00:00"))

	res := e.Decide(snap, "Asha", at(11, 30, 0))
	if res.Outcome != OutcomeCheckOutAccepted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	// The most recently appended open record is closed.
	if snap.Rows[1].Record.CheckOut != "11:30:00" {
		t.Errorf("second record check-out = %q", snap.Rows[1].Record.CheckOut)
	}
	// The earlier one stays untouched but is surfaced.
	if snap.Rows[0].Record.CheckOut != "" {
		t.Error("earlier open record must not be closed")
	}
	if len(res.Anomalies) != 1 || res.Anomalies[0].Line != snap.Rows[0].Line {
		t.Errorf("anomalies = %+v", res.Anomalies)
	}
}

func TestUntimeableOpenRecordSurfaced(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Append(&models.AttendanceRecord{
		Identity: "Asha", Date: "2024-01-01", CheckIn: "banana", Status: models.StatusCheckedIn,
	})

	res := e.Decide(snap, "Asha", at(11, 0, 0))
	if res.Outcome == OutcomeCheckOutAccepted {
		t.Fatalf("record without a readable check-in must not close, got %s", res.Outcome)
	}
	if res.Mutated {
		t.Error("must not mutate")
	}
	if len(res.Anomalies) != 1 || res.Anomalies[0].Line != snap.Rows[0].Line {
		t.Errorf("anomalies = %+v", res.Anomalies)
	}
	if snap.Rows[0].Record.CheckOut != "" {
		t.Error("record must stay open")
	}
}

func TestMalformedRowsIgnoredByDecision(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()
	snap.Rows = append(snap.Rows, ledger.Row{Raw: []string{"junk"}, Line: 1})

	res := e.Decide(snap, "Asha", at(9, 0, 0))
	if res.Outcome != OutcomeCheckInAccepted {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if len(snap.Rows) != 2 {
		t.Errorf("rows = %d, want 2 (junk preserved + new record)", len(snap.Rows))
	}
}

func TestSingleOpenInvariantAfterSequence(t *testing.T) {
	e := NewEngine(2 * time.Hour)
	snap := ledger.NewSnapshot()

	times := []time.Time{
		at(9, 0, 0), at(9, 30, 0), at(11, 0, 0), at(12, 0, 0), at(15, 0, 0),
	}
	for _, now := range times {
		e.Decide(snap, "Asha", now)
		open := 0
		for _, row := range snap.Rows {
			if row.Record != nil && row.Record.Open() {
				open++
			}
		}
		if open > 1 {
			t.Fatalf("more than one open record after event at %s", now)
		}
	}
	if len(snap.Rows) != 1 {
		t.Errorf("rows = %d, want exactly one cycle for the day", len(snap.Rows))
	}
}
