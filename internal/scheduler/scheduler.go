// Package scheduler is the Scheduler Dispatch Loop from spec.md §4.3: a
// ticker-driven loop that claims due tickets from the Scheduler Runtime,
// dispatches each through the Action Executor, and submits the outcome to
// the Scheduler Command Lane.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/personalagent/runtime/internal/clock"
	"github.com/personalagent/runtime/internal/domain"
	"github.com/personalagent/runtime/internal/events"
	"github.com/personalagent/runtime/internal/schedcmd"
	"github.com/personalagent/runtime/internal/schedulerrt"
)

const defaultTickInterval = 10 * time.Second

var errScheduleNotFound = errors.New("scheduler: schedule not found mid-tick")

// Executor dispatches one ExecutionTicket and returns its outcome. It must
// never return an error for a ticket's own failure — those fold into the
// returned ExecutionOutcome (spec.md §4.3 step 2a).
type Executor interface {
	Execute(ctx context.Context, ticket domain.ExecutionTicket) domain.ExecutionOutcome
}

// Options configures the dispatch loop.
type Options struct {
	TickInterval time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
	Hub          *events.Hub
}

// Service runs the dispatch loop on a ticker.
type Service struct {
	schedules domain.ScheduleStore
	runtime   *schedulerrt.Runtime
	executor  Executor
	lane      *schedcmd.Lane
	clock     clock.Clock
	logger    *slog.Logger
	hub       *events.Hub

	opts      Options
	startOnce sync.Once
	stopOnce  sync.Once
	stopFn    context.CancelFunc
	doneCh    chan struct{}
}

// New constructs a dispatch loop Service. schedules supplies the due-window
// candidate list; lane is the command lane every dispatched ticket's
// outcome is submitted to.
func New(schedules domain.ScheduleStore, executor Executor, lane *schedcmd.Lane, opts Options) *Service {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		schedules: schedules,
		runtime:   schedulerrt.New(),
		executor:  executor,
		lane:      lane,
		clock:     opts.Clock,
		logger:    opts.Logger,
		hub:       opts.Hub,
		opts:      opts,
	}
}

// Start begins the tick loop in a background goroutine. Calling it more
// than once has no effect beyond the first call.
func (s *Service) Start(parent context.Context) {
	if s == nil {
		return
	}
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.stopFn = cancel
		s.doneCh = make(chan struct{})

		go func() {
			defer close(s.doneCh)

			ticker := time.NewTicker(s.opts.TickInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.tick(ctx)
				}
			}
		}()
	})
}

// Stop cancels the tick loop and waits for the in-flight tick to finish,
// bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		if s.stopFn != nil {
			s.stopFn()
		}
		if s.doneCh == nil {
			return
		}
		select {
		case <-s.doneCh:
		case <-ctx.Done():
		}
	})
}

// tick implements spec.md §4.3: claim due tickets, dispatch each through
// the executor, submit the outcome to the command lane, and emit a
// {claimed, dispatched, accepted} log line. Any failure within a tick is
// logged and never stops the ticker.
func (s *Service) tick(ctx context.Context) {
	now := s.clock.Now()

	schedules, err := s.schedules.ListSchedules(ctx)
	if err != nil {
		s.logger.Warn("dispatch loop: list schedules failed", "err", err)
		return
	}

	tickets := s.runtime.ClaimDue(schedules, now)
	claimed := len(tickets)
	dispatched := 0
	accepted := 0

	for _, ticket := range tickets {
		dispatched++

		sc, lookupErr := s.findSchedule(schedules, ticket.ScheduleID)
		if lookupErr != nil {
			s.logger.Warn("dispatch loop: schedule vanished mid-tick", "scheduleId", ticket.ScheduleID)
			continue
		}

		outcome := s.executor.Execute(ctx, ticket)
		endedAt := s.clock.Now()

		delta := schedulerrt.CompleteExecution(sc, ticket, outcome, endedAt)
		result, err := s.lane.Execute(ctx, schedcmd.Payload{
			OwnerAgentID: ticket.OwnerAgentID,
			Execution: domain.ScheduledExecution{
				ExecutionID:   ticket.ExecutionID,
				ScheduleID:    ticket.ScheduleID,
				DueAt:         ticket.DueAt,
				TriggerSource: ticket.TriggerSource,
				Outcome:       outcome,
				StartedAt:     ticket.StartedAt,
				EndedAt:       &endedAt,
				CreatedAt:     ticket.StartedAt,
			},
			Delta: delta,
		})
		if err != nil {
			s.logger.Warn("dispatch loop: command lane submit failed", "executionId", ticket.ExecutionID, "err", err)
			continue
		}
		if result.Accepted {
			accepted++
			s.publishScheduleUpdated(sc.ScheduleID, outcome)
		}
	}

	s.logger.Info("dispatch tick", "claimed", claimed, "dispatched", dispatched, "accepted", accepted)
}

func (s *Service) publishScheduleUpdated(scheduleID string, outcome domain.ExecutionOutcome) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(events.NewEvent(events.TypeScheduleUpdated, map[string]any{
		"scheduleId": scheduleID,
		"outcome":    string(outcome),
	}))
}

// Running reports whether the dispatch loop's tick goroutine is active,
// for /runtime/status (SPEC_FULL.md §6.F).
func (s *Service) Running() bool {
	if s == nil || s.doneCh == nil {
		return false
	}
	select {
	case <-s.doneCh:
		return false
	default:
		return true
	}
}

func (s *Service) findSchedule(schedules []domain.Schedule, scheduleID string) (domain.Schedule, error) {
	for _, sc := range schedules {
		if sc.ScheduleID == scheduleID {
			return sc, nil
		}
	}
	return domain.Schedule{}, errScheduleNotFound
}
