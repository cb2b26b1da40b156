// Package domain holds the core entity types and storage port interfaces
// shared by every other package in the runtime.
package domain

import "time"

// PermissionMode controls how much an agent is allowed to act without
// explicit approval.
type PermissionMode string

const (
	PermissionPermissive  PermissionMode = "Permissive"
	PermissionStandard    PermissionMode = "Standard"
	PermissionRestrictive PermissionMode = "Restrictive"
)

// QuotaPeriod is the rotation window for an agent's token budget.
type QuotaPeriod string

const (
	QuotaDaily     QuotaPeriod = "Daily"
	QuotaMonthly   QuotaPeriod = "Monthly"
	QuotaYearly    QuotaPeriod = "Yearly"
	QuotaLifetime  QuotaPeriod = "Lifetime"
)

// Agent is a configured persona with a token budget and permission posture.
type Agent struct {
	AgentID         string
	PermissionMode  PermissionMode
	TokenBudget     int64
	QuotaPeriod     QuotaPeriod
	TokensConsumed  int64
	BudgetResetAt   *time.Time
}

// AdvanceQuotaPeriod returns the instant one quota period after from.
// Daily is exercised by tests; Monthly/Yearly are implemented with
// time.AddDate and left otherwise unexercised per the open question in
// SPEC_FULL.md §9. Lifetime has no period of its own and, like any
// unrecognised value, advances by one day; the stores call this for every
// period once budgetResetAt has passed.
func (p QuotaPeriod) AdvanceQuotaPeriod(from time.Time) time.Time {
	switch p {
	case QuotaDaily:
		return from.AddDate(0, 0, 1)
	case QuotaMonthly:
		return from.AddDate(0, 1, 0)
	case QuotaYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}
