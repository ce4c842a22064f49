package observability

import (
	"context"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Readiness reports ready only when every checker does. The first failure is
// returned.
type Readiness []sharedobs.ReadinessChecker

// AllReady combines readiness checkers for the /readyz handler.
func AllReady(checkers ...sharedobs.ReadinessChecker) Readiness {
	return Readiness(checkers)
}

func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
