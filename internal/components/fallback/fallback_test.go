package fallback

import (
	"context"
	"errors"
	"testing"

	"replaces-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	errPrimary := errors.New("primary failed")
	cached := "cached"

	succeeds := func(context.Context) (string, error) { return "fresh", nil }
	fails := func(context.Context) (string, error) { return "", errPrimary }

	table := []struct {
		name     string
		primary  func(context.Context) (string, error)
		fallback *string
		force    bool
		expected string
		err      error
	}{
		{name: "primary", primary: succeeds, fallback: &cached, expected: "fresh"},
		{name: "primary without fallback", primary: succeeds, expected: "fresh"},
		{name: "fallback", primary: fails, fallback: &cached, expected: "cached"},
		{name: "no fallback", primary: fails, err: errPrimary},
		{name: "forced", primary: succeeds, fallback: &cached, force: true, expected: "cached"},
		{name: "forced without fallback", primary: succeeds, force: true, err: ErrForced},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			rec := telemetry.NewRecorder()
			value, err := Wrap(rec, row.primary, row.fallback, row.force)(context.Background())
			if row.err != nil {
				require.ErrorIs(t, err, row.err)
				require.ErrorIs(t, err, ErrNoFallback)
				return
			}
			require.NoError(t, err)
			require.Equal(t, row.expected, value)
			require.Equal(t, row.expected == "cached", rec.Has(telemetry.KindWarning, report_fallback))
		})
	}
}
