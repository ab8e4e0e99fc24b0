package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/fireroute/internal/core/domain"
	"github.com/samirrijal/fireroute/internal/core/usecases"
)

// WarmActivities holds the activity implementations for the warm-up workflow.
type WarmActivities struct {
	Perimeters *usecases.PerimeterService
}

// WarmRegion refreshes the perimeter cache entry covering one region.
// Provider failures are returned as-is so Temporal retries them.
func (a *WarmActivities) WarmRegion(ctx context.Context, req domain.WarmRequest) error {
	err := a.Perimeters.Warm(ctx, &req)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		// A bad box never succeeds on retry.
		return temporal.NewNonRetryableApplicationError(verr.Error(), "ValidationError", err)
	}
	return err
}
