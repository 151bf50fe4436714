// Package models defines the domain types for Rollcall.
package models

import (
	"fmt"
	"time"
)

// Date and time layouts used throughout the ledger.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Status marks whether an attendance record is still open.
type Status string

const (
	StatusCheckedIn  Status = "CheckedIn"
	StatusCheckedOut Status = "CheckedOut"
)

// IdentityEvent is a single recognition result: an opaque identity label
// plus the moment it was observed. A zero ObservedAt means "stamp on
// processing".
type IdentityEvent struct {
	Identity   string    `json:"identity"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
}

// AttendanceRecord is one check-in/check-out cycle for an identity on a
// given day. CheckOut stays empty while the record is open. Fields keep
// the ledger's string representation so rows survive a load/store round
// trip byte for byte.
type AttendanceRecord struct {
	Identity string `json:"identity"`
	Date     string `json:"date"`      // YYYY-MM-DD
	CheckIn  string `json:"check_in"`  // HH:MM:SS
	CheckOut string `json:"check_out"` // HH:MM:SS, empty while open
	Status   Status `json:"status"`
}

// Open reports whether the record has no check-out yet.
func (r *AttendanceRecord) Open() bool {
	return r.CheckOut == ""
}

// CheckInAt combines Date and CheckIn into a local time.
func (r *AttendanceRecord) CheckInAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.CheckIn, time.Local)
}

// WorkTime returns the elapsed duration between check-in and check-out.
// ok is false while the record is open.
func (r *AttendanceRecord) WorkTime() (d time.Duration, ok bool) {
	if r.Open() {
		return 0, false
	}
	in, err := r.CheckInAt()
	if err != nil {
		return 0, false
	}
	out, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.CheckOut, time.Local)
	if err != nil {
		return 0, false
	}
	return out.Sub(in), true
}

// FormatWorkTime renders a duration the way the report front end expects,
// e.g. "7h 04m 02s". Returns "" when the record is still open.
func (r *AttendanceRecord) FormatWorkTime() string {
	d, ok := r.WorkTime()
	if !ok {
		return ""
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%dh %02dm %02ds", total/3600, (total%3600)/60, total%60)
}
