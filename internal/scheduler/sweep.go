package scheduler

import (
	"context"
	"fmt"
)

// RunExceptionSweep expires every active exception whose end date has passed.
// The compliance service owns the lifecycle transition, the assignment
// recalculation, and the notification to the exception's creator; the sweep
// only finds the work.
func (r *Runner) RunExceptionSweep(ctx context.Context) (Result, error) {
	return r.run(ctx, JobExceptionSweep, func(ctx context.Context, st *runState) error {
		expired, err := r.exceptions.ListActiveExpired(ctx, r.now())
		if err != nil {
			return fmt.Errorf("list expired exceptions: %w", err)
		}
		for _, exception := range expired {
			if err := r.compliance.ExpireException(ctx, exception.ID, JobExceptionSweep); err != nil {
				st.errorf("exception %s: %v", exception.ID, err)
				continue
			}
			st.processed++
		}
		return nil
	})
}
