package config

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"
)

// InitDBConnection opens and pings the Postgres database backing the
// versions store.
func InitDBConnection(settings DBSettings) (*sql.DB, error) {
	if !settings.Configured() {
		return nil, fmt.Errorf("[DATABASE] DB_HOST, DB_PORT, DB_USER and DB_NAME are required")
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.PathEscape(settings.User), url.PathEscape(settings.Password), settings.Host, settings.Port, settings.Name)

	dataBase, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("[DATABASE] connection: %w", err)
	}

	err = dataBase.Ping()
	if err != nil {
		dataBase.Close()
		return nil, fmt.Errorf("[DATABASE] could not ping %s: %w", settings.Name, err)
	}

	return dataBase, nil
}
