// Package scheduler registers named triggers and runs the weather job when
// they fire.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-notifier/internal/job"
)

// Policy decides what a registration does when the name is already taken.
type Policy int

const (
	// PolicyKeep leaves an existing registration untouched.
	PolicyKeep Policy = iota
	// PolicyReplace cancels the existing registration and creates a new one.
	PolicyReplace
	// PolicyUpdate keeps the registration identity and swaps in the new trigger and constraints.
	PolicyUpdate
)

func (p Policy) String() string {
	switch p {
	case PolicyKeep:
		return "keep"
	case PolicyReplace:
		return "replace"
	case PolicyUpdate:
		return "update"
	default:
		return "unknown"
	}
}

type Kind string

const (
	KindPeriodic Kind = "periodic"
	KindOneShot  Kind = "one_shot"
)

type PeriodicSpec struct {
	Interval        time.Duration
	InitialDelay    time.Duration
	RequiresNetwork bool
	Input           job.Input
}

type OneShotSpec struct {
	Delay time.Duration
	Input job.Input
}

// Registration is the scheduler's record of one named trigger.
type Registration struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Kind            Kind          `json:"kind"`
	Policy          string        `json:"policy"`
	Interval        time.Duration `json:"interval,omitempty"`
	InitialDelay    time.Duration `json:"initialDelay"`
	RequiresNetwork bool          `json:"requiresNetwork"`
	Input           job.Input     `json:"input"`
	RegisteredAt    time.Time     `json:"registeredAt"`
	NextRun         time.Time     `json:"nextRun"`
}

// Scheduler is the platform job registry. Registration calls are keyed by
// name; at most one registration exists per name.
type Scheduler interface {
	RegisterPeriodic(ctx context.Context, name string, policy Policy, spec PeriodicSpec) (Registration, error)
	RegisterOneShot(ctx context.Context, name string, policy Policy, spec OneShotSpec) (Registration, error)
	Registrations() []Registration
}

// Runner executes one job run. *job.WeatherJob implements it.
type Runner interface {
	Run(ctx context.Context, in job.Input) job.Outcome
}

// resolve applies policy to a registration request. It returns the
// registration that ends up active and whether next was installed.
func resolve(existing *Registration, policy Policy, next Registration) (Registration, bool) {
	if existing == nil {
		next.ID = uuid.New()
		return next, true
	}
	switch policy {
	case PolicyKeep:
		return *existing, false
	case PolicyUpdate:
		if existing.Kind == next.Kind {
			next.ID = existing.ID
			return next, true
		}
	}
	next.ID = uuid.New()
	return next, true
}

func periodicRegistration(name string, policy Policy, spec PeriodicSpec, now time.Time) Registration {
	return Registration{
		Name:            name,
		Kind:            KindPeriodic,
		Policy:          policy.String(),
		Interval:        spec.Interval,
		InitialDelay:    spec.InitialDelay,
		RequiresNetwork: spec.RequiresNetwork,
		Input:           spec.Input,
		RegisteredAt:    now,
		NextRun:         now.Add(spec.InitialDelay),
	}
}

func oneShotRegistration(name string, policy Policy, spec OneShotSpec, now time.Time) Registration {
	return Registration{
		Name:         name,
		Kind:         KindOneShot,
		Policy:       policy.String(),
		InitialDelay: spec.Delay,
		Input:        spec.Input,
		RegisteredAt: now,
		NextRun:      now.Add(spec.Delay),
	}
}
