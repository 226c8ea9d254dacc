package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/cexll/checklist-gate/internal/waitfor"
)

// Watch waits until the surface reports at least one merge control, then
// calls apply exactly once. It returns when apply returns or ctx is done.
func Watch(ctx context.Context, surface Surface, interval time.Duration, apply func(context.Context) error) error {
	_, err := waitfor.Until(ctx, interval, func(ctx context.Context) ([]Control, bool, error) {
		controls, err := surface.Controls(ctx)
		if err != nil {
			return nil, false, err
		}
		return controls, len(controls) > 0, nil
	})
	if err != nil {
		return fmt.Errorf("wait for merge controls: %w", err)
	}
	return apply(ctx)
}
