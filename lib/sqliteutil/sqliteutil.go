package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects either a local sqlite file or a remote libsql database.
type Config struct {
	File      string `json:"file" yaml:"file"`
	Url       string `json:"url" yaml:"url"`
	AuthToken string `json:"auth_token" yaml:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the database described by config and applies schema to it.
func (config Config) OpenDB(schema string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if config.Url != "" {
		db, err = openRemote(config.Url, config.AuthToken)
	} else {
		db, err = openFile(config.File)
	}
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

func openRemote(link, authToken string) (*sql.DB, error) {
	if authToken != "" {
		parsed, err := url.Parse(link)
		if err != nil {
			return nil, err
		}
		query := parsed.Query()
		query.Set("authToken", authToken)
		parsed.RawQuery = query.Encode()
		link = parsed.String()
	}
	return sql.Open("libsql", link)
}

func openFile(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
