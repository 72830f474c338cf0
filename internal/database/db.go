package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/config"
)

// Pool sizes a connection pool.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

var (
	// LockerPool serves the locker's own tables: codes, windows, door
	// commands, order actions and operator sessions.
	LockerPool = Pool{
		MaxOpen:     config.DBMaxOpenConns,
		MaxIdle:     config.DBMaxIdleConns,
		MaxLifetime: config.DBConnMaxLifetime,
	}

	// BookingPool serves the shop's booking database.
	BookingPool = Pool{
		MaxOpen:     config.BookingDBMaxOpenConns,
		MaxIdle:     config.BookingDBMaxIdleConns,
		MaxLifetime: config.DBConnMaxLifetime,
	}
)

// DB is a Postgres handle labelled with the database it points at, so log
// lines and errors say whether the locker or the booking side failed.
type DB struct {
	*sqlx.DB
	name string
}

// Connect opens a pool for databaseURL and pings it before returning.
func Connect(ctx context.Context, name, databaseURL string, pool Pool) (*DB, error) {
	conn, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", name, err)
	}
	conn.SetMaxOpenConns(pool.MaxOpen)
	conn.SetMaxIdleConns(pool.MaxIdle)
	conn.SetConnMaxLifetime(pool.MaxLifetime)

	db := &DB{DB: conn, name: name}

	pingCtx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().
		Str("database", name).
		Int("maxOpenConns", pool.MaxOpen).
		Msg("database connected")
	return db, nil
}

func (db *DB) Name() string {
	return db.name
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s database: %w", db.name, err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// WithTx runs fn in a transaction, committing when it returns nil and rolling
// back on error or panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", db.name, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback %s transaction: %v (cause: %w)", db.name, rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", db.name, err)
	}
	return nil
}
