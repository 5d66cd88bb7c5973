package db

import (
	"context"
	"database/sql"
)

const getLastContent = `-- name: GetLastContent :one
select content from capture
where content is not null
order by captured_at desc, id desc
limit 1
`

func (q *Queries) GetLastContent(ctx context.Context) (sql.NullString, error) {
	row := q.db.QueryRowContext(ctx, getLastContent)
	var content sql.NullString
	err := row.Scan(&content)
	return content, err
}

const insertCapture = `-- name: InsertCapture :exec
insert into capture(cycle_id, path, captured_at, content)
values (?, ?, ?, ?)
`

type InsertCaptureParams struct {
	CycleID    string
	Path       string
	CapturedAt int64
	Content    sql.NullString
}

func (q *Queries) InsertCapture(ctx context.Context, arg InsertCaptureParams) error {
	_, err := q.db.ExecContext(ctx, insertCapture,
		arg.CycleID,
		arg.Path,
		arg.CapturedAt,
		arg.Content,
	)
	return err
}

const listCaptures = `-- name: ListCaptures :many
select id, cycle_id, path, captured_at, content from capture
order by captured_at desc, id desc
limit ?
`

func (q *Queries) ListCaptures(ctx context.Context, limit int64) ([]Capture, error) {
	rows, err := q.db.QueryContext(ctx, listCaptures, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Capture
	for rows.Next() {
		var i Capture
		if err := rows.Scan(
			&i.ID,
			&i.CycleID,
			&i.Path,
			&i.CapturedAt,
			&i.Content,
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
