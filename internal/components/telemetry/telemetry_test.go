package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("parser", NewScopedAPI("replaces", rec))

	scoped.ReportWarning("parse-section", errors.New("bad section"))
	scoped.ReportBroken("parse", "no table")
	scoped.ReportCount("groups", 3)

	reports := rec.Reports()
	require.Len(t, reports, 3)
	require.Equal(t, "replaces: parser: parse-section", reports[0].ID)
	require.Equal(t, KindBroken, reports[1].Kind)
	require.Equal(t, int64(3), reports[2].Count)

	require.True(t, rec.Has(KindWarning, "parse-section"))
	require.False(t, rec.Has(KindBroken, "parse-section"))
	require.Equal(t, 1, rec.Count(KindBroken, "parse"))
}

func TestSlogFormatParams(t *testing.T) {
	var out []any
	SlogAPI{}.formatParams(&out, []any{
		"first",
		KV{Key: "hash", Value: "abc"},
		errors.New("boom"),
	})
	require.Equal(t, []any{
		"params.0", "first",
		"hash", "abc",
		"params.2", "boom",
	}, out)
}
