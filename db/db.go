package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"stash/config"
)

// Database wraps the connection pool and implements the transaction
// runner the write-back engine flushes through.
type Database struct {
	Pool *sqlx.DB
}

func connectionDetails(cfg config.DatabaseDefinition) (driver, dsn, migrateUrl, sourceUrl string, err error) {
	switch cfg.Driver {
	case "", "sqlite", "sqlite3":
		driver = "sqlite3"
		dsn = cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"
		migrateUrl = "sqlite3://" + cfg.Path
		sourceUrl = "file://sql/sqlite"
	case "mysql":
		driver = "mysql"
		mysqlConfig := mysql.Config{
			User:                 cfg.User,
			Passwd:               cfg.Password,
			Net:                  "tcp",
			Addr:                 cfg.Addr,
			DBName:               cfg.Db,
			AllowNativePasswords: true,
		}
		dsn = mysqlConfig.FormatDSN()
		migrateUrl = "mysql://" + dsn + "?multiStatements=true"
		sourceUrl = "file://sql/mysql"
	default:
		err = fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	return
}

func runMigrations(sourceUrl, migrateUrl string) error {
	log.Infof("Starting migration check")
	m, err := migrate.New(sourceUrl, migrateUrl)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return srcErr
	}
	if dbErr != nil {
		return dbErr
	}
	log.Infof("Migration check complete")
	return nil
}

// Open migrates the schema and opens the pool described by cfg.
func Open(cfg config.DatabaseDefinition) (*Database, error) {
	driver, dsn, migrateUrl, sourceUrl, err := connectionDetails(cfg)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(sourceUrl, migrateUrl); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("Opening %s database, max pool = %d", driver, cfg.MaxPool)
	pool, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	pool.SetConnMaxLifetime(time.Minute * 3)
	pool.SetMaxOpenConns(cfg.MaxPool)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxIdleTime(time.Minute)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Database{Pool: pool}, nil
}

// RunInTransaction executes fn inside a single transaction, rolling
// back if fn returns an error.
func (d *Database) RunInTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.Pool.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *Database) Close() error {
	return d.Pool.Close()
}
