package config

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	DB   *sql.DB
	dbMu sync.Mutex
)

// ConnectDB opens the shared MySQL pool sized from env. The booking store
// cannot run without it, so open and ping failures are fatal.
func ConnectDB(env Env) *sql.DB {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		return DB
	}

	db, err := openPool(env)
	if err != nil {
		log.Fatalf("[DB] open failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), env.DBPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Fatalf("[DB] ping failed: %v", err)
	}

	DB = db
	log.Printf("[DB] connected to MySQL (max_open=%d max_idle=%d)", env.DBMaxOpenConns, env.DBMaxIdleConns)
	return DB
}

// openPool returns an unpinged pool. sql.Open does not dial.
func openPool(env Env) (*sql.DB, error) {
	db, err := sql.Open("mysql", env.DBDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(env.DBMaxOpenConns)
	db.SetMaxIdleConns(env.DBMaxIdleConns)
	db.SetConnMaxLifetime(env.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(env.DBConnMaxIdleTime)
	return db, nil
}

// PingDB reports whether the shared connection is usable.
func PingDB(ctx context.Context) error {
	dbMu.Lock()
	db := DB
	dbMu.Unlock()

	if db == nil {
		return sql.ErrConnDone
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		_ = DB.Close()
		DB = nil
	}
}
