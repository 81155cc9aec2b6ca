package service

import (
	"context"
	"errors"
	"fmt"

	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/repository"
)

// lookup translates a repository miss into a NotFound naming the entity.
// Other errors are storage failures and are wrapped as such.
func lookup(err error, entity string, id int32) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	if domain.IsBusiness(err) {
		return err
	}
	return fmt.Errorf("load %s %d: %w", entity, id, err)
}

// storeErr wraps a failed write unless it is already a business error.
func storeErr(err error, what string) error {
	if err == nil || domain.IsBusiness(err) {
		return err
	}
	return fmt.Errorf("%s: %w", what, err)
}

// track logs the outcome of an engine operation and counts it.
func track(ctx context.Context, m *metrics.Metrics, method string, err error, args ...any) {
	m.ObserveOperation(method, err)
	if err != nil {
		logger.ExitMethodWithError(ctx, method, err, args...)
		return
	}
	logger.ExitMethod(ctx, method, args...)
}
