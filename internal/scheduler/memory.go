package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-notifier/internal/metrics"
)

// MemoryScheduler records registrations without ever firing them.
type MemoryScheduler struct {
	mu      sync.Mutex
	now     func() time.Time
	active  map[string]Registration
	history []Registration
	err     error
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{
		now:    time.Now,
		active: make(map[string]Registration),
	}
}

// FailWith makes subsequent registrations fail with err (nil to recover).
func (m *MemoryScheduler) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MemoryScheduler) register(ctx context.Context, policy Policy, next Registration) (Registration, error) {
	if err := ctx.Err(); err != nil {
		return Registration{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Registration{}, m.err
	}

	var existing *Registration
	if cur, ok := m.active[next.Name]; ok {
		existing = &cur
	}
	reg, installed := resolve(existing, policy, next)
	if installed {
		m.active[reg.Name] = reg
		metrics.Registrations.WithLabelValues(reg.Name, policy.String()).Inc()
	}
	m.history = append(m.history, reg)
	return reg, nil
}

func (m *MemoryScheduler) RegisterPeriodic(ctx context.Context, name string, policy Policy, spec PeriodicSpec) (Registration, error) {
	return m.register(ctx, policy, periodicRegistration(name, policy, spec, m.now()))
}

func (m *MemoryScheduler) RegisterOneShot(ctx context.Context, name string, policy Policy, spec OneShotSpec) (Registration, error) {
	return m.register(ctx, policy, oneShotRegistration(name, policy, spec, m.now()))
}

// Registrations returns the active registrations ordered by name.
func (m *MemoryScheduler) Registrations() []Registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Registration, 0, len(m.active))
	for _, r := range m.active {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *MemoryScheduler) Get(name string) (Registration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.active[name]
	return r, ok
}

// History returns every registration call result in call order.
func (m *MemoryScheduler) History() []Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Registration(nil), m.history...)
}
