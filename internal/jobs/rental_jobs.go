package jobs

import (
	"context"

	"toolrent-backend/internal/logger"
)

// MarkOverdueLoans re-derives the standing of every customer holding a loan
// past its due date. Customers flip to RESTRICTED as soon as time passes a
// due date, without waiting for the return.
func (jr *JobRunner) MarkOverdueLoans() {
	_ = jr.runMarkOverdueLoans()
}

func (jr *JobRunner) runMarkOverdueLoans() error {
	return jr.runWithRecovery("MarkOverdueLoans", func(ctx context.Context) error {
		flipped, err := jr.services.Customers.RefreshOverdue(ctx)
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "Marked customers with overdue loans", "count", len(flipped))
		for _, c := range flipped {
			logger.DebugContext(ctx, "Customer restricted for overdue loan",
				"customer_id", c.ID,
				"national_id", c.NationalID,
				"status", c.Status)
		}
		return nil
	})
}
