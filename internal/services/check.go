package services

import (
	"context"
	"time"
)

// ProposedAction is a check's suggested action before the engine assigns
// it an ID and run, judges it against the auto-approve threshold and
// persists it. Immutable once returned.
type ProposedAction struct {
	Type        string
	CheckModule string
	Title       string
	Description string
	Confidence  float64
	Metadata    map[string]interface{}
}

// CheckEnv carries the dependencies a check may use during one cycle:
// the storage port, the owning run's ID and the cycle clock. Checks must
// not mutate run or action records; they communicate upward only through
// returned ProposedAction values.
type CheckEnv struct {
	Store Store
	RunID uint
	Now   time.Time
}

// CheckModule is a pluggable unit the engine invokes once per cycle.
// Implementations must be safe to call repeatedly: externally visible
// side effects (flags, patterns, history) have to be idempotent. New
// check types register with the engine; the engine itself never changes.
type CheckModule interface {
	Name() string
	Enabled() bool
	Run(ctx context.Context, env *CheckEnv) ([]ProposedAction, error)
}
