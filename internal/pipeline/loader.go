package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
)

// MultiLoader loads every batch into each of its loaders in order, stopping
// at the first failure.
type MultiLoader []BatchLoader

// LoadBatch implements BatchLoader.
func (m MultiLoader) LoadBatch(ctx context.Context, results []domain.ExposureResult) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, results); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
