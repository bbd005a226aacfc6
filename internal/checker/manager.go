package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"verifhir/internal/ig"
	"verifhir/internal/llm"
	"verifhir/internal/logger"
	"verifhir/internal/report"
)

// ErrDomainMismatch flags a checker emitting a check outside its domain.
var ErrDomainMismatch = errors.New("check domain does not match checker domain")

// Manager runs registered checkers in registration order.
type Manager struct {
	log      *slog.Logger
	checkers []Checker
}

// NewManager returns a manager with no checkers.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{log: log}
}

// Register appends checkers.
func (m *Manager) Register(checkers ...Checker) {
	m.checkers = append(m.checkers, checkers...)
}

// Checkers returns the registered checkers in run order.
func (m *Manager) Checkers() []Checker {
	return append([]Checker(nil), m.checkers...)
}

// Run executes every checker and gathers their checks into one report. The
// first checker error stops the run.
func (m *Manager) Run(ctx context.Context, g *ig.Guide) (*report.Report, error) {
	r := report.New()
	for _, c := range m.checkers {
		start := time.Now()
		m.log.Info("running checker", "checker", c.Name())
		checks, err := c.Check(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("checker %s: %w", c.Name(), err)
		}
		for _, check := range checks {
			if check.Domain != c.Domain() {
				return nil, fmt.Errorf("checker %s: %w: %q", c.Name(), ErrDomainMismatch, check.Domain)
			}
			m.log.Debug("check", "checker", c.Name(), "name", check.Name, "value", check.Value.String(), "proof", check.Proof.String())
		}
		r.Add(checks...)
		m.log.Info("checker finished", "checker", c.Name(), "checks", len(checks), "duration_ms", time.Since(start).Milliseconds())
	}
	return r, nil
}

// Options configures the standard checker set.
type Options struct {
	BatchSize int
}

// Standard returns the full audit checklist in its canonical order.
func Standard(log *slog.Logger, client llm.Client, opts Options) []Checker {
	return []Checker{
		NewPageType(log, client),
		NewCompleteness(log, client, opts.BatchSize),
		NewNarrative(log, client, opts.BatchSize),
		NewFieldPresence(log),
	}
}
