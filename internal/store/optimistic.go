package store

import (
	"context"

	"moodboard/internal/models"
	"moodboard/internal/observability"
)

// runOptimistic applies a local mutation, issues the remote write, and
// restores the captured slice of state if the write fails. mutate runs under
// the state lock and returns the restore function for exactly the state it
// touched; restore runs under the same lock. Observers fire after the
// mutation and again after a rollback, so the state visible once the
// operation settles either includes the change or is identical to the state
// before the operation started.
func (s *Store) runOptimistic(ctx context.Context, mutate func() func(), remote func(context.Context) error) error {
	s.mu.Lock()
	restore := mutate()
	s.mu.Unlock()
	s.notify()

	if err := remote(ctx); err != nil {
		s.mu.Lock()
		restore()
		s.mu.Unlock()
		s.notify()
		observability.OptimisticRollbacks.Inc()
		return models.NewRemoteError(err)
	}
	return nil
}
