package memory

import (
	"context"

	"github.com/personalagent/runtime/internal/domain"
)

// GetSchedule implements domain.ScheduleStore.
func (s *Store) GetSchedule(_ context.Context, scheduleID string) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getScheduleLocked(scheduleID)
}

func (s *Store) getScheduleLocked(scheduleID string) (domain.Schedule, error) {
	sc, ok := s.schedules[scheduleID]
	if !ok {
		return domain.Schedule{}, &domain.ClusterEntityError{EntityType: "Schedule", Reason: "not found: " + scheduleID}
	}
	return sc, nil
}

// ListSchedules implements domain.ScheduleStore.
func (s *Store) ListSchedules(_ context.Context) ([]domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSchedulesLocked(), nil
}

func (s *Store) listSchedulesLocked() []domain.Schedule {
	out := make([]domain.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		out = append(out, sc)
	}
	return out
}

// InsertSchedule implements domain.ScheduleStore.
func (s *Store) InsertSchedule(_ context.Context, sc domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertScheduleLocked(sc)
	return nil
}

func (s *Store) insertScheduleLocked(sc domain.Schedule) {
	s.schedules[sc.ScheduleID] = sc
}

// ApplyScheduleDelta implements domain.ScheduleStore.
func (s *Store) ApplyScheduleDelta(_ context.Context, scheduleID string, delta domain.ScheduleDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyScheduleDeltaLocked(scheduleID, delta)
}

func (s *Store) applyScheduleDeltaLocked(scheduleID string, delta domain.ScheduleDelta) error {
	sc, err := s.getScheduleLocked(scheduleID)
	if err != nil {
		return err
	}
	sc.NextExecutionAt = delta.NextExecutionAt
	if delta.LastExecutionAt != nil {
		sc.LastExecutionAt = delta.LastExecutionAt
	}
	sc.ScheduleStatus = delta.ScheduleStatus
	s.schedules[scheduleID] = sc
	return nil
}
