package actionexec

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/personalagent/runtime/internal/domain"
)

type stubPolicy struct {
	result domain.PolicyResult
	err    error
}

func (s stubPolicy) EvaluatePolicy(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error) {
	return s.result, s.err
}

type stubHealth struct {
	err error
}

func (s stubHealth) Ping(ctx context.Context) error { return s.err }

func allowPolicy() stubPolicy {
	return stubPolicy{result: domain.PolicyResult{Decision: domain.Allow, Reason: "mvp_default_allow"}}
}

func TestExecute_PolicyErrorIsFailed(t *testing.T) {
	e := New(stubPolicy{err: errors.New("governance unavailable")}, nil, slog.Default())
	outcome := e.Execute(context.Background(), domain.ExecutionTicket{ScheduleID: "s1", OwnerAgentID: "a1", ActionRef: "action:log"})
	require.Equal(t, domain.Failed, outcome)
}

func TestExecute_PolicyDenyIsSkipped(t *testing.T) {
	e := New(stubPolicy{result: domain.PolicyResult{Decision: domain.Deny, Reason: "blocked"}}, nil, slog.Default())
	outcome := e.Execute(context.Background(), domain.ExecutionTicket{ScheduleID: "s1", OwnerAgentID: "a1", ActionRef: "action:log"})
	require.Equal(t, domain.Skipped, outcome)
}

func TestExecute_ActionLogSucceeds(t *testing.T) {
	e := New(allowPolicy(), nil, slog.Default())
	outcome := e.Execute(context.Background(), domain.ExecutionTicket{ScheduleID: "s1", OwnerAgentID: "a1", ActionRef: "action:log"})
	require.Equal(t, domain.Succeeded, outcome)
}

func TestExecute_HealthCheckSucceedsWithNilChecker(t *testing.T) {
	e := New(allowPolicy(), nil, slog.Default())
	outcome := e.Execute(context.Background(), domain.ExecutionTicket{ScheduleID: "s1", OwnerAgentID: "a1", ActionRef: "action:health_check"})
	require.Equal(t, domain.Succeeded, outcome)
}

func TestExecute_HealthCheckFailurePropagates(t *testing.T) {
	e := New(allowPolicy(), stubHealth{err: errors.New("store unreachable")}, slog.Default())
	outcome := e.Execute(context.Background(), domain.ExecutionTicket{ScheduleID: "s1", OwnerAgentID: "a1", ActionRef: "action:health_check"})
	require.Equal(t, domain.Failed, outcome)
}

func TestExecute_UnknownActionRefIsPermissiveSucceeded(t *testing.T) {
	e := New(allowPolicy(), nil, slog.Default())
	outcome := e.Execute(context.Background(), domain.ExecutionTicket{ScheduleID: "s1", OwnerAgentID: "a1", ActionRef: "action:does_not_exist"})
	require.Equal(t, domain.Succeeded, outcome)
}
