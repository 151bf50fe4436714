package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jkleiven/rollcall/internal/apperr"
	"github.com/jkleiven/rollcall/internal/models"
)

// Header is the canonical column set consumed by the report front end.
var Header = []string{"Name", "Date", "Check_In_Time", "Check_Out_Time", "Status"}

// Row is one physical ledger line. Record is nil for rows that do not
// parse; those keep their raw fields and are written back verbatim.
type Row struct {
	Record *models.AttendanceRecord
	Raw    []string
	Line   int // 1-based position below the header
	Err    error
}

// Malformed reports whether the row was preserved without parsing.
func (r *Row) Malformed() bool {
	return r.Record == nil
}

// Snapshot is the full in-memory state of the ledger file. The header is
// preserved as found on disk, even when it drifts from the canonical one.
type Snapshot struct {
	Header []string
	Rows   []Row
}

// NewSnapshot returns an empty snapshot with the canonical header.
func NewSnapshot() *Snapshot {
	return &Snapshot{Header: append([]string(nil), Header...)}
}

// Append adds a new record at the end of the snapshot.
func (s *Snapshot) Append(rec *models.AttendanceRecord) {
	s.Rows = append(s.Rows, Row{Record: rec, Line: len(s.Rows) + 1})
}

// Malformed returns every preserved-but-unparseable row.
func (s *Snapshot) Malformed() []Row {
	var out []Row
	for _, r := range s.Rows {
		if r.Malformed() {
			out = append(out, r)
		}
	}
	return out
}

// decode parses raw CSV bytes into a snapshot. Rows that fail to parse
// are kept in place with their error attached; decoding only fails when
// the CSV structure itself is unreadable.
func decode(data []byte) (*Snapshot, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", apperr.ErrMalformedRecord, err)
	}
	if len(records) == 0 {
		return NewSnapshot(), nil
	}

	snap := &Snapshot{Header: records[0]}
	for i, fields := range records[1:] {
		row := Row{Raw: fields, Line: i + 1}
		rec, parseErr := parseRecord(fields)
		if parseErr != nil {
			row.Err = parseErr
		} else {
			row.Record = rec
		}
		snap.Rows = append(snap.Rows, row)
	}
	return snap, nil
}

// encode renders the snapshot back to CSV bytes. Parsed rows are written
// from their record (picking up any mutation), malformed rows verbatim.
func encode(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(snap.Header); err != nil {
		return nil, fmt.Errorf("ledger: encode header: %w", err)
	}
	for _, row := range snap.Rows {
		fields := row.Raw
		if rec := row.Record; rec != nil {
			fields = []string{rec.Identity, rec.Date, rec.CheckIn, rec.CheckOut, string(rec.Status)}
		}
		if err := w.Write(fields); err != nil {
			return nil, fmt.Errorf("ledger: encode row %d: %w", row.Line, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("ledger: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func parseRecord(fields []string) (*models.AttendanceRecord, error) {
	if len(fields) != len(Header) {
		return nil, fmt.Errorf("%w: %d columns, want %d", apperr.ErrMalformedRecord, len(fields), len(Header))
	}
	rec := &models.AttendanceRecord{
		Identity: fields[0],
		Date:     fields[1],
		CheckIn:  fields[2],
		CheckOut: fields[3],
		Status:   models.Status(fields[4]),
	}
	if rec.Identity == "" {
		return nil, fmt.Errorf("%w: empty identity", apperr.ErrMalformedRecord)
	}
	if _, err := time.ParseInLocation(models.DateLayout, rec.Date, time.Local); err != nil {
		return nil, fmt.Errorf("%w: date %q", apperr.ErrMalformedRecord, rec.Date)
	}
	if _, err := time.ParseInLocation(models.TimeLayout, rec.CheckIn, time.Local); err != nil {
		return nil, fmt.Errorf("%w: check-in time %q", apperr.ErrMalformedRecord, rec.CheckIn)
	}
	if rec.CheckOut != "" {
		if _, err := time.ParseInLocation(models.TimeLayout, rec.CheckOut, time.Local); err != nil {
			return nil, fmt.Errorf("%w: check-out time %q", apperr.ErrMalformedRecord, rec.CheckOut)
		}
	}
	if rec.Status != models.StatusCheckedIn && rec.Status != models.StatusCheckedOut {
		return nil, fmt.Errorf("%w: status %q", apperr.ErrMalformedRecord, fields[4])
	}
	return rec, nil
}
