package fallback

import (
	"context"
	"errors"
	"fmt"

	"replaces-backend/internal/components/telemetry"
)

const report_fallback = "fallback"

// ErrForced is the error of the primary operation when it was skipped by `force`.
var ErrForced = errors.New("fallback forced")

// ErrNoFallback is returned when the primary operation failed and no fallback value exists.
var ErrNoFallback = errors.New("no fallback value available")

// Wrap returns an operation that calls `primary` and returns `fallback` instead of an error
// if `primary` fails. With `force` the primary operation is not called at all. A nil
// `fallback` means there is nothing to fall back to, the returned error then wraps
// both ErrNoFallback and the error of the primary operation.
func Wrap[T any](
	tel telemetry.API,
	primary func(ctx context.Context) (T, error),
	fallback *T,
	force bool,
) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var (
			value T
			err   error
		)
		if force {
			err = ErrForced
		} else {
			value, err = primary(ctx)
		}
		if err == nil {
			return value, nil
		}

		if fallback == nil {
			var zero T
			return zero, fmt.Errorf("%w: %w", ErrNoFallback, err)
		}
		tel.ReportWarning(report_fallback, err, telemetry.KV{Key: "fallback", Value: *fallback})
		return *fallback, nil
	}
}
