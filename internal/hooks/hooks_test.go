package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/history"
	"replaces-backend/internal/replaces"
	"replaces-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

var (
	group304 = testutil.Section{Name: "304", Rows: [][]string{
		{"1", "Математика", "Иванов И.И.", "Физика", "305"},
	}}
	group304Changed = testutil.Section{Name: "304", Rows: [][]string{
		{"1", "Математика", "Петров П.П.", "Физика", "305"},
	}}
	group121 = testutil.Section{Name: "121(1)", Rows: [][]string{
		{"2", "История", "Сидорова А.А.", "Биология"},
	}}
)

type failingStore struct{}

func (failingStore) Latest(context.Context) (history.Record, bool, error) {
	return history.Record{}, false, errors.New("database is gone")
}

func setup(t *testing.T) (history.Store, Deduplicator, replaces.Parser, *telemetry.Recorder) {
	res := testutil.SetupStorage(t)
	store := history.NewStore(res.DB, res.Time, res.Tel)
	return store, NewDeduplicator(store, res.Tel), replaces.NewParser(res.Tel), res.Tel
}

func parse(t *testing.T, parser replaces.Parser, page []byte) *replaces.Replaces {
	doc, err := parser.Parse(page)
	require.NoError(t, err)
	return doc
}

func store(t *testing.T, s history.Store, page []byte) {
	require.NoError(t, s.Append(context.Background(), page, history.Hash(page), time.Time{}))
}

func TestIsDuplicate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty history", func(t *testing.T) {
		_, dedup, parser, _ := setup(t)
		doc := parse(t, parser, testutil.ReplacesPage("A", group304))
		require.False(t, dedup.IsDuplicate(ctx, 304, doc))
	})

	t.Run("same header and group", func(t *testing.T) {
		s, dedup, parser, _ := setup(t)
		store(t, s, testutil.ReplacesPage("A", group304))
		// another group changed, 304 did not
		doc := parse(t, parser, testutil.ReplacesPage("A", group304, group121))
		require.True(t, dedup.IsDuplicate(ctx, 304, doc))
		require.False(t, dedup.IsDuplicate(ctx, 121, doc))
	})

	t.Run("different header", func(t *testing.T) {
		s, dedup, parser, _ := setup(t)
		store(t, s, testutil.ReplacesPage("A", group304))
		doc := parse(t, parser, testutil.ReplacesPage("B", group304))
		require.False(t, dedup.IsDuplicate(ctx, 304, doc))
	})

	t.Run("group changed", func(t *testing.T) {
		s, dedup, parser, _ := setup(t)
		store(t, s, testutil.ReplacesPage("A", group304))
		doc := parse(t, parser, testutil.ReplacesPage("A", group304Changed))
		require.False(t, dedup.IsDuplicate(ctx, 304, doc))
	})

	t.Run("group absent in both", func(t *testing.T) {
		s, dedup, parser, _ := setup(t)
		store(t, s, testutil.ReplacesPage("A", group121))
		doc := parse(t, parser, testutil.ReplacesPage("A"))
		require.True(t, dedup.IsDuplicate(ctx, 304, doc))
	})

	t.Run("previous page unparsable", func(t *testing.T) {
		s, dedup, parser, rec := setup(t)
		store(t, s, []byte("<html>no table here</html>"))
		doc := parse(t, parser, testutil.ReplacesPage("A", group304))
		require.False(t, dedup.IsDuplicate(ctx, 304, doc))
		require.True(t, rec.Has(telemetry.KindWarning, report_dedup_reparse))
	})

	t.Run("store failure", func(t *testing.T) {
		rec := telemetry.NewRecorder()
		dedup := NewDeduplicator(failingStore{}, rec)
		doc := parse(t, replaces.NewParser(rec), testutil.ReplacesPage("A", group304))
		require.False(t, dedup.IsDuplicate(ctx, 304, doc))
		require.True(t, rec.Has(telemetry.KindWarning, report_dedup_latest))
	})
}

func TestGroupHook(t *testing.T) {
	ctx := context.Background()
	s, dedup, parser, rec := setup(t)

	hook := NewGroupHook(304, dedup, rec)
	require.Equal(t, "group(304)", hook.Name())

	first := parse(t, parser, testutil.ReplacesPage("Замены Пятница", group304))
	msg, ok, err := hook.Update(ctx, first)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Замены Пятница\n304\n1\tМатематика -> (Иванов И.И. - Физика - 305)\n", msg)

	store(t, s, testutil.ReplacesPage("Замены Пятница", group304))
	_, ok, err = hook.Update(ctx, parse(t, parser, testutil.ReplacesPage("Замены Пятница", group304, group121)))
	require.NoError(t, err)
	require.False(t, ok)

	msg, ok, err = hook.Update(ctx, parse(t, parser, testutil.ReplacesPage("Замены Суббота", group121)))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Замены Суббота\n304 Замен нет", msg)

	_, _, err = hook.Update(ctx, nil)
	require.ErrorIs(t, err, ErrHook)
}
