package db

import (
	"context"
)

const getCacheValue = `select value from cache where key = ?`

func (q *Queries) GetCacheValue(ctx context.Context, key CacheKey) (string, error) {
	row := q.db.QueryRowContext(ctx, getCacheValue, string(key))
	var value string
	err := row.Scan(&value)
	return value, err
}

const setCacheValue = `insert into cache (key, value) values (?, ?)`

type SetCacheValueParams struct {
	Key   CacheKey
	Value string
}

func (q *Queries) SetCacheValue(ctx context.Context, arg SetCacheValueParams) error {
	_, err := q.db.ExecContext(ctx, setCacheValue, string(arg.Key), arg.Value)
	return err
}

const upsertCacheValue = `insert into cache (key, value) values (?, ?)
on conflict (key) do update set value = excluded.value`

type UpsertCacheValueParams struct {
	Key   CacheKey
	Value string
}

func (q *Queries) UpsertCacheValue(ctx context.Context, arg UpsertCacheValueParams) error {
	_, err := q.db.ExecContext(ctx, upsertCacheValue, string(arg.Key), arg.Value)
	return err
}

const deleteCacheValue = `delete from cache where key = ?`

func (q *Queries) DeleteCacheValue(ctx context.Context, key CacheKey) error {
	_, err := q.db.ExecContext(ctx, deleteCacheValue, string(key))
	return err
}

const historyHashExists = `select exists(select 1 from replaces_history where content_hash = ?)`

func (q *Queries) HistoryHashExists(ctx context.Context, contentHash string) (bool, error) {
	row := q.db.QueryRowContext(ctx, historyHashExists, contentHash)
	var exists int64
	err := row.Scan(&exists)
	return exists != 0, err
}

const createHistoryRecord = `insert into replaces_history (got_at, content, content_hash) values (?, ?, ?)`

type CreateHistoryRecordParams struct {
	GotAt       int64
	Content     []byte
	ContentHash string
}

func (q *Queries) CreateHistoryRecord(ctx context.Context, arg CreateHistoryRecordParams) error {
	_, err := q.db.ExecContext(ctx, createHistoryRecord, arg.GotAt, arg.Content, arg.ContentHash)
	return err
}

const getLatestHistoryRecord = `select id, got_at, content, content_hash from replaces_history
order by got_at desc, id desc
limit 1`

func (q *Queries) GetLatestHistoryRecord(ctx context.Context) (ReplacesHistory, error) {
	row := q.db.QueryRowContext(ctx, getLatestHistoryRecord)
	var i ReplacesHistory
	err := row.Scan(
		&i.ID,
		&i.GotAt,
		&i.Content,
		&i.ContentHash,
	)
	return i, err
}

const listHistoryRecords = `select id, got_at, content_hash, length(content) as size from replaces_history
order by got_at desc, id desc
limit ?`

type ListHistoryRecordsRow struct {
	ID          int64
	GotAt       int64
	ContentHash string
	Size        int64
}

func (q *Queries) ListHistoryRecords(ctx context.Context, limit int64) ([]ListHistoryRecordsRow, error) {
	rows, err := q.db.QueryContext(ctx, listHistoryRecords, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListHistoryRecordsRow
	for rows.Next() {
		var i ListHistoryRecordsRow
		if err := rows.Scan(
			&i.ID,
			&i.GotAt,
			&i.ContentHash,
			&i.Size,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
