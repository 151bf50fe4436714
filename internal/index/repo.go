package index

import (
	"database/sql"
	"fmt"

	"github.com/jkleiven/rollcall/internal/models"
)

const metaChecksumKey = "ledger_checksum"

// Filter narrows a record listing. Zero values mean "no constraint".
type Filter struct {
	Identity string
	Date     string // YYYY-MM-DD
	Limit    int
	Offset   int
}

// ReplaceAll swaps the indexed row set for the given records inside one
// transaction and stores the ledger checksum they were built from.
// Records keep their ledger position so listings can fall back to file
// order.
func (db *DB) ReplaceAll(records []models.AttendanceRecord, checksum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM attendance`); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO attendance (position, identity, date, check_in, check_out, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.Exec(i, rec.Identity, rec.Date, rec.CheckIn, rec.CheckOut, string(rec.Status)); err != nil {
			return fmt.Errorf("index: insert row %d: %w", i, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaChecksumKey, checksum)
	if err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

// LedgerChecksum returns the checksum the index was last built from, or
// empty string when it has never been synced.
func (db *DB) LedgerChecksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaChecksumKey).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// ListRecords returns records matching the filter, newest first (date
// descending, then check-in descending — the order the report renders),
// plus the total match count before pagination.
func (db *DB) ListRecords(f Filter) ([]models.AttendanceRecord, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if f.Identity != "" {
		where += ` AND identity = ?`
		args = append(args, f.Identity)
	}
	if f.Date != "" {
		where += ` AND date = ?`
		args = append(args, f.Date)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM attendance`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT identity, date, check_in, check_out, status
		FROM attendance` + where + `
		ORDER BY date DESC, check_in DESC, position DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		var status string
		if err := rows.Scan(&rec.Identity, &rec.Date, &rec.CheckIn, &rec.CheckOut, &status); err != nil {
			return nil, 0, err
		}
		rec.Status = models.Status(status)
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

// DailySummary returns one row per identity seen on the given date, in
// check-in order.
func (db *DB) DailySummary(date string) ([]models.AttendanceRecord, error) {
	rows, err := db.conn.Query(`
		SELECT identity, date, check_in, check_out, status
		FROM attendance
		WHERE date = ?
		ORDER BY check_in ASC, position ASC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("index: summary: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		var status string
		if err := rows.Scan(&rec.Identity, &rec.Date, &rec.CheckIn, &rec.CheckOut, &status); err != nil {
			return nil, err
		}
		rec.Status = models.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
