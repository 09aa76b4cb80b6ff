package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-assessment/internal/models"
	"github.com/noah-isme/gema-assessment/internal/repository"
)

// Slot is a candidate schedule window for an assessment plan.
type Slot struct {
	Date  string
	Start models.TimeOfDay
	End   models.TimeOfDay
}

// Window returns the slot's time range.
func (s Slot) Window() models.Window {
	return models.Window{Start: s.Start, End: s.End}
}

type slotProbe struct {
	dayOffset int
	window    models.Window
}

// probe order: default day window, early morning, evening, next day
var slotProbes = []slotProbe{
	{0, models.Window{Start: models.Clock(9, 0, 0), End: models.Clock(17, 0, 0)}},
	{0, models.Window{Start: models.Clock(6, 0, 0), End: models.Clock(8, 0, 0)}},
	{0, models.Window{Start: models.Clock(18, 0, 0), End: models.Clock(20, 0, 0)}},
	{1, models.Window{Start: models.Clock(9, 0, 0), End: models.Clock(17, 0, 0)}},
}

// ScheduleConflictResolver proposes a schedule slot for a group.
type ScheduleConflictResolver interface {
	FindSlot(ctx context.Context, groupID uint, candidateDate string) (Slot, error)
}

type scheduleConflictResolver struct {
	schedules repository.ScheduleRepository
	logger    zerolog.Logger
}

// NewScheduleConflictResolver constructs the resolver.
func NewScheduleConflictResolver(schedules repository.ScheduleRepository, logger zerolog.Logger) ScheduleConflictResolver {
	return &scheduleConflictResolver{
		schedules: schedules,
		logger:    logger.With().Str("component", "schedule_conflict_resolver").Logger(),
	}
}

// FindSlot returns the first free probe window. When every probe conflicts the
// last one is returned anyway and finalization decides.
func (r *scheduleConflictResolver) FindSlot(ctx context.Context, groupID uint, candidateDate string) (Slot, error) {
	baseDate, err := models.ShiftDate(candidateDate, 0)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %v", ErrSubmissionInvalid, err)
	}

	occupiedByDate := make(map[string][]models.Window)
	var slot Slot
	for i, probe := range slotProbes {
		date, err := models.ShiftDate(baseDate, probe.dayOffset)
		if err != nil {
			return Slot{}, fmt.Errorf("%w: %v", ErrSubmissionInvalid, err)
		}

		occupied, ok := occupiedByDate[date]
		if !ok {
			occupied, err = r.schedules.ListOccupied(ctx, groupID, date, 0)
			if err != nil {
				return Slot{}, storeError("list occupied windows", err)
			}
			occupiedByDate[date] = occupied
		}

		slot = Slot{Date: date, Start: probe.window.Start, End: probe.window.End}
		if !overlapsAny(probe.window, occupied) {
			if i > 0 {
				r.logger.Debug().
					Uint("student_group_id", groupID).
					Str("date", date).
					Str("window", probe.window.String()).
					Msg("default assessment window occupied, using fallback")
			}
			return slot, nil
		}
	}

	r.logger.Warn().
		Uint("student_group_id", groupID).
		Str("date", slot.Date).
		Msg("every probe window conflicts, returning last candidate")
	return slot, nil
}

func overlapsAny(window models.Window, occupied []models.Window) bool {
	for _, other := range occupied {
		if window.Overlaps(other) {
			return true
		}
	}
	return false
}
