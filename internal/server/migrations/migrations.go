// Package migrations embeds the server schema for goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

var gooseLogger goose.Logger = goose.NopLogger()

// SetLogger sends goose progress lines to l at debug level. Until it is
// called they are discarded.
func SetLogger(l logging.Logger) {
	gooseLogger = logging.NewPrintfLogger(l)
}

// Up applies every pending migration to db.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(gooseLogger)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
