package db

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Config struct {
	// File is a path to a local sqlite database, ":memory:" is allowed.
	File string `json:"file" default:"replaces.db"`
	// Url is a libsql/turso url (libsql://...), if set it takes priority over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the configured database and applies the schema.
//
// Local sqlite databases are limited to one open connection with immediate
// write transactions, so that writers from this process are serialized and
// writers from other processes wait on the busy timeout instead of racing.
func OpenDB(config Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch {
	case config.Url != "":
		db, err = openLibsql(config)
	case config.File != "":
		db, err = openSqlite(config.File)
	default:
		return nil, fmt.Errorf("a database path or url was not specified")
	}
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func openLibsql(config Config) (*sql.DB, error) {
	link, err := url.Parse(config.Url)
	if err != nil {
		return nil, err
	}
	if config.AuthToken != "" {
		query := link.Query()
		query.Set("authToken", config.AuthToken)
		link.RawQuery = query.Encode()
	}
	return sql.Open("libsql", link.String())
}

func openSqlite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		query := url.Values{}
		query.Add("_pragma", "busy_timeout(5000)")
		query.Add("_pragma", "journal_mode(WAL)")
		query.Set("_txlock", "immediate")
		dsn = fmt.Sprintf("file:%s?%s", path, query.Encode())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a second connection to ":memory:" would be a different database
	db.SetMaxOpenConns(1)
	return db, nil
}
