package config

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestOpenPoolAppliesEnvLimits(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}

	db, err := openPool(env)
	if err != nil {
		t.Fatalf("openPool returned error: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected max open 7, got %d", got)
	}
}

func TestPingDBWithoutConnection(t *testing.T) {
	CloseDB()
	if err := PingDB(context.Background()); !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("expected ErrConnDone, got %v", err)
	}
}
