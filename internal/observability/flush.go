package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes telemetry buffers before process exit. Prometheus is pull-based,
// so this only syncs logs. Call after in-flight requests have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
