package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"replaces-backend/internal/components/chrono"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
	"replaces-backend/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	page := []byte("<table></table>")
	require.Equal(t, Hash(page), Hash([]byte("<table></table>")))
	require.NotEqual(t, Hash(page), Hash([]byte("<table> </table>")))
	require.Len(t, Hash(page), 64)
	// sha256 of the empty string
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
}

func TestStore(t *testing.T) {
	setup := testutil.SetupStorage(t)
	store := NewStore(setup.DB, setup.Time, setup.Tel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, ok, err := store.Latest(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	}

	pageA := []byte("page a")
	pageB := []byte("page b")

	{
		exists, err := store.HasHash(ctx, Hash(pageA))
		require.NoError(t, err)
		require.False(t, exists)

		err = store.Append(ctx, pageA, Hash(pageA), time.Time{})
		require.NoError(t, err)

		exists, err = store.HasHash(ctx, Hash(pageA))
		require.NoError(t, err)
		require.True(t, exists)
	}
	{
		latest, ok, err := store.Latest(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, pageA, latest.Content)
		require.Equal(t, Hash(pageA), latest.Hash)
		require.Equal(t, setup.Time.Now(), latest.Time)
	}
	{
		// an explicit timestamp older than the latest record does not become latest
		err := store.Append(ctx, pageB, Hash(pageB), setup.Time.Now().Add(-time.Hour))
		require.NoError(t, err)

		latest, _, err := store.Latest(ctx)
		require.NoError(t, err)
		require.Equal(t, Hash(pageA), latest.Hash)
	}
	{
		// duplicates are a valid input
		setup.Time.Advance(time.Minute)
		err := store.Append(ctx, pageA, Hash(pageA), time.Time{})
		require.NoError(t, err)

		records, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, Hash(pageA), records[0].Hash)
		require.Equal(t, Hash(pageB), records[2].Hash)
		require.Equal(t, int64(len(pageA)), records[0].Size)
	}
}

func TestStoreAppendIfAbsent(t *testing.T) {
	setup := testutil.SetupStorage(t)
	store := NewStore(setup.DB, setup.Time, setup.Tel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	page := []byte("page")

	appended, err := store.AppendIfAbsent(ctx, page, Hash(page))
	require.NoError(t, err)
	require.True(t, appended)

	appended, err = store.AppendIfAbsent(ctx, page, Hash(page))
	require.NoError(t, err)
	require.False(t, appended)

	records, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestStoreAppendIfAbsentConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replaces.db")
	clock := &chrono.FixedTime{At: time.Date(2022, 11, 18, 6, 0, 0, 0, time.UTC)}
	tel := telemetry.NewRecorder()

	// one handle per writer, each as if it were a separate process
	const writers = 4
	stores := make([]Store, writers)
	for i := range stores {
		database, err := db.OpenDB(db.Config{File: path})
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		stores[i] = NewStore(database, clock, tel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	page := []byte("page")
	hash := Hash(page)

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		errs     = make([]error, writers)
		appended = make([]bool, writers)
	)
	for i, store := range stores {
		wg.Add(1)
		go func(i int, store Store) {
			defer wg.Done()
			<-start
			appended[i], errs[i] = store.AppendIfAbsent(ctx, page, hash)
		}(i, store)
	}
	close(start)
	wg.Wait()

	count := 0
	for i := range stores {
		require.NoError(t, errs[i])
		if appended[i] {
			count++
		}
	}
	require.Equal(t, 1, count)

	records, err := stores[0].List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, hash, records[0].Hash)
}
