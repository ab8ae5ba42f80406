package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jinxingedu/kindersync/internal/dbx"
	"github.com/jinxingedu/kindersync/internal/storage/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// UpdateTx runs fn against a transactional view of the store, so updates
// spanning several documents land or roll back together.
func UpdateTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, s Store) error) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLiteStore(tx))
	})
}

// Open opens (creating if needed) the local cache database at dsn and brings
// the schema up to date. The caller is expected to have registered a sqlite
// driver (the CLI imports modernc.org/sqlite).
func Open(ctx context.Context, dsn string) (*sql.DB, *SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, NewSQLiteStore(db), nil
}
