// Package recon decides, for each incoming identity event, whether to
// open a new attendance record, close an existing one, or leave the
// ledger untouched.
package recon

import (
	"time"

	"github.com/jkleiven/rollcall/internal/ledger"
	"github.com/jkleiven/rollcall/internal/models"
)

// Outcome classifies what a reconciliation attempt did.
type Outcome string

const (
	// OutcomeSuppressed — rejected by the debounce gate, nothing ran.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeCheckInAccepted — a new open record was appended.
	OutcomeCheckInAccepted Outcome = "checkin_accepted"
	// OutcomeCheckOutAccepted — the open record was closed.
	OutcomeCheckOutAccepted Outcome = "checkout_accepted"
	// OutcomeCheckOutRejectedGap — an open record exists but the minimum
	// gap since check-in has not elapsed; ledger unchanged.
	OutcomeCheckOutRejectedGap Outcome = "checkout_rejected_gap"
	// OutcomeAlreadyClosed — the day's cycle is complete; at most one
	// check-in/check-out pair is recorded per identity per day.
	OutcomeAlreadyClosed Outcome = "already_closed"
)

// Anomaly is a ledger irregularity the engine worked around but must not
// hide: an extra open record for the same identity and day.
type Anomaly struct {
	Line   int
	Reason string
}

// Result carries the decision plus everything observability needs.
type Result struct {
	Outcome   Outcome
	Identity  string
	At        time.Time
	Elapsed   time.Duration            // time since check-in, set when an open record was considered
	Shortfall time.Duration            // minimumGap - Elapsed, set for OutcomeCheckOutRejectedGap
	Record    *models.AttendanceRecord // row created or closed, when any
	Anomalies []Anomaly
	Mutated   bool
}

// Engine holds the check-out eligibility threshold.
type Engine struct {
	minimumGap time.Duration
}

// NewEngine creates an engine enforcing the given minimum gap between
// check-in and check-out.
func NewEngine(minimumGap time.Duration) *Engine {
	return &Engine{minimumGap: minimumGap}
}

// Decide runs the per-(identity, date) state machine against the loaded
// snapshot, mutating it in place when a transition fires. The caller
// persists the snapshot iff Result.Mutated and handles debounce state;
// Decide itself touches nothing outside the snapshot.
func (e *Engine) Decide(snap *ledger.Snapshot, identity string, now time.Time) Result {
	res := Result{Identity: identity, At: now}
	date := now.Format(models.DateLayout)

	// Collect today's open rows for this identity, with their parsed
	// check-in times. Malformed rows carry no identity and are never
	// considered here; an open row whose check-in will not parse (only a
	// hand-built record can get here, load validates times) cannot be
	// closed and is surfaced instead.
	type openRow struct {
		row     *ledger.Row
		checkIn time.Time
	}
	var open []openRow
	seen := false
	for i := range snap.Rows {
		row := &snap.Rows[i]
		rec := row.Record
		if rec == nil || rec.Identity != identity || rec.Date != date {
			continue
		}
		seen = true
		if !rec.Open() {
			continue
		}
		checkIn, err := rec.CheckInAt()
		if err != nil {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Line:   row.Line,
				Reason: "unparseable check-in time on open record",
			})
			continue
		}
		open = append(open, openRow{row: row, checkIn: checkIn})
	}

	if len(open) > 0 {
		// More than one open row violates the single-open invariant; a
		// manual file edit is the usual cause. Close the most recently
		// appended one and surface the rest.
		chosen := open[len(open)-1]
		for _, o := range open[:len(open)-1] {
			res.Anomalies = append(res.Anomalies, Anomaly{
				Line:   o.row.Line,
				Reason: "multiple open records for identity/date",
			})
		}

		res.Elapsed = now.Sub(chosen.checkIn)
		if res.Elapsed < e.minimumGap {
			res.Outcome = OutcomeCheckOutRejectedGap
			res.Shortfall = e.minimumGap - res.Elapsed
			res.Record = chosen.row.Record
			return res
		}

		chosen.row.Record.CheckOut = now.Format(models.TimeLayout)
		chosen.row.Record.Status = models.StatusCheckedOut
		res.Outcome = OutcomeCheckOutAccepted
		res.Record = chosen.row.Record
		res.Mutated = true
		return res
	}

	if seen {
		// A closed cycle already exists for today; it does not reopen.
		res.Outcome = OutcomeAlreadyClosed
		return res
	}

	rec := &models.AttendanceRecord{
		Identity: identity,
		Date:     date,
		CheckIn:  now.Format(models.TimeLayout),
		Status:   models.StatusCheckedIn,
	}
	snap.Append(rec)
	res.Outcome = OutcomeCheckInAccepted
	res.Record = rec
	res.Mutated = true
	return res
}
