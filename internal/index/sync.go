package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/jkleiven/rollcall/internal/ledger"
	"github.com/jkleiven/rollcall/internal/models"
)

// Resync rebuilds the index from the ledger file. It is a no-op when the
// file checksum matches the last build, so it is cheap to call after
// every write and on every watcher event.
func Resync(db *DB, store *ledger.Store, logger *slog.Logger) error {
	raw, err := store.Raw()
	if err != nil {
		return err
	}
	cs := sum(raw)

	prev, err := db.LedgerChecksum()
	if err != nil {
		return err
	}
	if prev == cs {
		return nil
	}

	snap, err := store.LoadAll()
	if err != nil {
		return err
	}

	var records []models.AttendanceRecord
	for _, row := range snap.Rows {
		if row.Malformed() {
			logger.Warn("resync: skipping malformed row",
				slog.Int("line", row.Line),
				slog.String("error", row.Err.Error()))
			continue
		}
		records = append(records, *row.Record)
	}

	if err := db.ReplaceAll(records, cs); err != nil {
		return err
	}
	logger.Debug("resync: index rebuilt", slog.Int("records", len(records)))
	return nil
}

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
