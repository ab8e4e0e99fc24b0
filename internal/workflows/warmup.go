package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// WarmInput is the input for the warm-up workflow.
type WarmInput struct {
	Regions []domain.WarmRequest
}

// WarmResult reports which regions were refreshed.
type WarmResult struct {
	Warmed []string
	Failed []string
}

// WarmPerimetersWorkflow refreshes the perimeter cache for every configured
// region in parallel. One failing region does not stop the others; the run
// only fails when no region could be warmed.
func WarmPerimetersWorkflow(ctx workflow.Context, input WarmInput) (*WarmResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting perimeter warm-up", "regions", len(input.Regions))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, len(input.Regions))
	for i, region := range input.Regions {
		futures[i] = workflow.ExecuteActivity(ctx, "WarmRegion", region)
	}

	result := &WarmResult{}
	for i, f := range futures {
		name := input.Regions[i].Name
		if err := f.Get(ctx, nil); err != nil {
			logger.Warn("region warm-up failed", "region", name, "error", err)
			result.Failed = append(result.Failed, name)
			continue
		}
		result.Warmed = append(result.Warmed, name)
	}

	if len(input.Regions) > 0 && len(result.Warmed) == 0 {
		return result, temporal.NewApplicationError("no region could be warmed", "WarmupFailed", result.Failed)
	}

	logger.Info("Perimeter warm-up finished", "warmed", len(result.Warmed), "failed", len(result.Failed))
	return result, nil
}
