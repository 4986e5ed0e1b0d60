package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"replaces-backend/internal/components/assert"
	"replaces-backend/internal/components/chrono"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
)

const (
	report_db_query = "db.query"
)

// Record is a replacements page as it was fetched at a point in time.
type Record struct {
	ID      int64
	Time    time.Time
	Content []byte
	Hash    string
}

// RecordInfo is a Record without its content.
type RecordInfo struct {
	ID   int64
	Time time.Time
	Hash string
	Size int64
}

// Store is the append-only log of fetched replacements pages.
type Store struct {
	db     *db.Queries
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewStore(database *sql.DB, time chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		db:     db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("history", tel),
	}
}

// HasHash returns true if a page with the given content hash was ever appended.
func (s Store) HasHash(ctx context.Context, hash string) (bool, error) {
	exists, err := s.db.HistoryHashExists(ctx, hash)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "HistoryHashExists", hash)
		return false, err
	}
	return exists, nil
}

// Append inserts a record, a zero `at` means now. Appending a hash that is
// already present is allowed and creates another record.
func (s Store) Append(ctx context.Context, content []byte, hash string, at time.Time) error {
	if at.IsZero() {
		at = s.time.Now()
	}
	param := db.CreateHistoryRecordParams{
		GotAt:       at.UTC().UnixNano(),
		Content:     content,
		ContentHash: hash,
	}
	err := s.db.CreateHistoryRecord(ctx, param)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CreateHistoryRecord", hash)
		return err
	}
	return nil
}

// AppendIfAbsent checks for the hash and appends the record within a single
// write transaction, so that two processes handling the same page cannot both
// append it. It returns false if the hash was already present.
func (s Store) AppendIfAbsent(ctx context.Context, content []byte, hash string) (bool, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return false, err
	}
	defer discard()

	exists, err := tx.HistoryHashExists(ctx, hash)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "HistoryHashExists", hash)
		return false, err
	}
	if exists {
		s.tel.ReportDebug("hash appended concurrently, skipping", hash)
		return false, nil
	}

	err = tx.CreateHistoryRecord(ctx, db.CreateHistoryRecordParams{
		GotAt:       s.time.Now().UTC().UnixNano(),
		Content:     content,
		ContentHash: hash,
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CreateHistoryRecord", hash)
		return false, err
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err))
		return false, err
	}
	return true, nil
}

// Latest returns the record with the highest timestamp, ok is false if the log is empty.
func (s Store) Latest(ctx context.Context) (record Record, ok bool, err error) {
	row, err := s.db.GetLatestHistoryRecord(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetLatestHistoryRecord")
		return Record{}, false, err
	}
	return Record{
		ID:      row.ID,
		Time:    time.Unix(0, row.GotAt).UTC(),
		Content: row.Content,
		Hash:    row.ContentHash,
	}, true, nil
}

// List returns the most recent `limit` records, newest first.
func (s Store) List(ctx context.Context, limit int) ([]RecordInfo, error) {
	rows, err := s.db.ListHistoryRecords(ctx, int64(limit))
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListHistoryRecords", limit)
		return nil, err
	}
	out := make([]RecordInfo, len(rows))
	for i, r := range rows {
		out[i] = RecordInfo{
			ID:   r.ID,
			Time: time.Unix(0, r.GotAt).UTC(),
			Hash: r.ContentHash,
			Size: r.Size,
		}
	}
	return out, nil
}
