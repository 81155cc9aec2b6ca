package jobs

import (
	"context"
	"fmt"
	"time"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/notification"
)

// SendOverdueReminders emails every customer holding overdue loans, one
// message per customer listing all of them.
func (jr *JobRunner) SendOverdueReminders() {
	_ = jr.runSendOverdueReminders()
}

func (jr *JobRunner) runSendOverdueReminders() error {
	return jr.runWithRecovery("SendOverdueReminders", func(ctx context.Context) error {
		active, err := jr.services.Reports.ActiveLoans(ctx, time.Time{}, time.Time{})
		if err != nil {
			return err
		}

		byCustomer := make(map[int32][]domain.ActiveLoanView)
		var order []int32
		for _, l := range active {
			if !l.Overdue {
				continue
			}
			if _, seen := byCustomer[l.CustomerID]; !seen {
				order = append(order, l.CustomerID)
			}
			byCustomer[l.CustomerID] = append(byCustomer[l.CustomerID], l)
		}

		now := jr.now()
		count, failed := 0, 0
		for _, customerID := range order {
			c, err := jr.services.Customers.GetCustomer(ctx, customerID)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to load customer for reminder", "customer_id", customerID, "error", err)
				failed++
				continue
			}
			if err := jr.notifier.Send(ctx, notification.OverdueReminder(c, byCustomer[customerID], now)); err != nil {
				logger.ErrorContext(ctx, "Failed to send overdue reminder",
					"customer_id", customerID,
					"email", c.Email,
					"error", err)
				failed++
				continue
			}
			count++
			logger.DebugContext(ctx, "Sent overdue reminder",
				"customer_id", customerID,
				"email", c.Email,
				"loans", len(byCustomer[customerID]))
		}

		logger.InfoContext(ctx, "Sent overdue reminders", "count", count, "failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d overdue reminders failed", failed, len(order))
		}
		return nil
	})
}
