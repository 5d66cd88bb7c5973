package db

import (
	"database/sql"
)

type Capture struct {
	ID         int64
	CycleID    string
	Path       string
	CapturedAt int64
	Content    sql.NullString
}
