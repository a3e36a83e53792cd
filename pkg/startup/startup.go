// Package startup brings service dependencies up in declared order and
// tears the started set down in reverse.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable unit in the boot graph.
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Manager starts dependencies in registration order, honoring DependsOn
// edges. Failed boots retry whole-graph up to maxAttempts with Fibonacci
// backoff; dependencies that already started are not restarted on retry.
type Manager struct {
	logger      ectologger.Logger
	maxAttempts int
	deps        []Dependency
	byName      map[string]Dependency
	state       map[string]status
	started     []string
	backoff     func(attempt int) time.Duration
}

func NewManager(logger ectologger.Logger, maxAttempts int) *Manager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Manager{
		logger:      logger,
		maxAttempts: maxAttempts,
		byName:      make(map[string]Dependency),
		state:       make(map[string]status),
		backoff:     fibonacciBackoff(),
	}
}

func (m *Manager) AddDependency(d Dependency) {
	m.deps = append(m.deps, d)
	m.byName[d.GetName()] = d
}

func (m *Manager) Start(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		lastErr = nil
		for _, d := range m.deps {
			if err := m.start(ctx, d); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == m.maxAttempts {
			break
		}

		wait := m.backoff(attempt)
		m.logger.WithError(lastErr).Warnf("Startup attempt %d/%d failed, retrying in %v", attempt, m.maxAttempts, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("startup failed after %d attempts: %w", m.maxAttempts, lastErr)
}

func (m *Manager) start(ctx context.Context, d Dependency) error {
	name := d.GetName()
	if m.state[name] == statusStarted {
		return nil
	}

	for _, upstream := range d.DependsOn() {
		dep, ok := m.byName[upstream]
		if !ok {
			return fmt.Errorf("dependency %q requires unknown dependency %q", name, upstream)
		}
		if err := m.start(ctx, dep); err != nil {
			return err
		}
	}

	m.logger.Infof("Starting %s", name)
	if err := d.Start(ctx); err != nil {
		m.state[name] = statusFailed
		m.logger.WithError(err).Errorf("Failed to start %s", name)
		return err
	}
	m.state[name] = statusStarted
	m.started = append(m.started, name)
	return nil
}

// Stop tears down every started dependency in reverse start order. All
// stops run even when one fails; the first failure is returned.
func (m *Manager) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(m.started) - 1; i >= 0; i-- {
		name := m.started[i]
		if m.state[name] != statusStarted {
			continue
		}
		m.logger.Infof("Stopping %s", name)
		if err := m.byName[name].Stop(ctx); err != nil {
			m.logger.WithError(err).Errorf("Failed to stop %s", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.state[name] = statusStopped
	}
	return firstErr
}

func fibonacciBackoff() func(int) time.Duration {
	a, b := 1, 1
	return func(int) time.Duration {
		wait := time.Duration(a) * time.Second
		a, b = b, a+b
		return wait
	}
}
