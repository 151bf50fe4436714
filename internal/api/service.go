package api

import (
	"time"

	"github.com/jkleiven/rollcall/internal/index"
	"github.com/jkleiven/rollcall/internal/models"
	"github.com/jkleiven/rollcall/internal/recon"
)

// Service coordinates the read index and the reconciliation runner for
// the API layer.
type Service struct {
	db     *index.DB
	runner *recon.Runner
}

// NewService creates a new API service.
func NewService(db *index.DB, runner *recon.Runner) *Service {
	return &Service{db: db, runner: runner}
}

// SubmitEvent enqueues an identity event for reconciliation.
func (s *Service) SubmitEvent(identity string, observedAt time.Time) error {
	return s.runner.Submit(models.IdentityEvent{Identity: identity, ObservedAt: observedAt})
}

// ListRecords returns attendance rows matching the filter, newest first,
// each with the rendered work time.
func (s *Service) ListRecords(f index.Filter) ([]RecordItem, int, error) {
	recs, total, err := s.db.ListRecords(f)
	if err != nil {
		return nil, 0, err
	}
	items := make([]RecordItem, len(recs))
	for i, rec := range recs {
		items[i] = toRecordItem(rec)
	}
	return items, total, nil
}

// DailySummary returns one row per identity for the given date.
func (s *Service) DailySummary(date string) ([]RecordItem, error) {
	recs, err := s.db.DailySummary(date)
	if err != nil {
		return nil, err
	}
	items := make([]RecordItem, len(recs))
	for i, rec := range recs {
		items[i] = toRecordItem(rec)
	}
	return items, nil
}

func toRecordItem(rec models.AttendanceRecord) RecordItem {
	return RecordItem{
		Identity: rec.Identity,
		Date:     rec.Date,
		CheckIn:  rec.CheckIn,
		CheckOut: rec.CheckOut,
		Status:   string(rec.Status),
		WorkTime: rec.FormatWorkTime(),
	}
}
