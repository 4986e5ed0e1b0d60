package testutil

import (
	"database/sql"
	"testing"
	"time"

	"replaces-backend/internal/components/chrono"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
)

type Setup struct {
	DB   *sql.DB
	Time *chrono.FixedTime
	Tel  *telemetry.Recorder
}

// SetupStorage opens an in-memory database with the schema applied, a fixed clock
// and a telemetry recorder. The database is closed when the test ends.
func SetupStorage(t testing.TB) Setup {
	t.Helper()

	database, err := db.OpenDB(db.Config{File: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	return Setup{
		DB:   database,
		Time: &chrono.FixedTime{At: time.Date(2022, 11, 18, 6, 0, 0, 0, time.UTC)},
		Tel:  telemetry.NewRecorder(),
	}
}
