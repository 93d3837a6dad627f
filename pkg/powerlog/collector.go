package powerlog

import (
	"context"

	"power-monitor/internal/tasks"
)

// CollectorOptions re-exposes tasks.Options for external callers.
type CollectorOptions = tasks.Options

// RunCollector loads the YAML config and runs the collector daemon until ctx
// is cancelled.
func RunCollector(ctx context.Context, opts CollectorOptions) error {
	return tasks.InitAndRunCollector(ctx, opts)
}
