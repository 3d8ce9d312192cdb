package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// Saga collects the inverse of every step a workflow has completed so far.
// Compensate runs them newest first.
type Saga struct {
	name  string
	log   *slog.Logger
	steps []compensation
}

func newSaga(name string, log *slog.Logger) *Saga {
	return &Saga{name: name, log: log}
}

// Push registers the inverse of a step that just succeeded.
func (s *Saga) Push(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

func (s *Saga) Len() int { return len(s.steps) }

// Compensate runs every registered inverse in reverse order. It keeps going
// past failures and returns them joined. The caller's cancellation does not
// stop compensation.
func (s *Saga) Compensate(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var failed []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			s.log.Error("compensation failed", "saga", s.name, "step", step.name, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		s.log.Info("compensation applied", "saga", s.name, "step", step.name)
	}
	s.steps = nil
	return errors.Join(failed...)
}
