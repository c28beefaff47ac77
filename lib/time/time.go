package time

import (
	"context"
	"time"

	"oss.terrastruct.com/canvasglue/lib/env"
)

// WithTimeout returns context.WithTimeout(ctx, timeout) but timeout is overridden with
// $CANVASGLUE_TIMEOUT if set. A timeout of zero or less means none.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if t, ok := env.Timeout(); ok {
		timeout = t
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
