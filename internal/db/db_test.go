package db

import (
	"context"
	"errors"
	"os"
	"resourcerush/internal/records"
	"resourcerush/internal/records/recordstest"
	"testing"
	"time"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	database.conn.Exec("DELETE FROM rooms")
	t.Cleanup(func() {
		database.conn.Exec("DELETE FROM rooms")
		database.Close()
	})
	return database
}

func TestConnect(t *testing.T) {
	database := getTestDB(t)
	if err := database.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	database := getTestDB(t)

	var exists bool
	err := database.conn.QueryRow(`
		SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)
	`, "rooms").Scan(&exists)
	if err != nil {
		t.Fatalf("checking table rooms: %v", err)
	}
	if !exists {
		t.Error("table rooms does not exist")
	}

	// Migrations are idempotent.
	if err := database.Migrate(); err != nil {
		t.Errorf("second Migrate() error: %v", err)
	}
}

func TestGatewayConformance(t *testing.T) {
	database := getTestDB(t)
	recordstest.Run(t, database, time.Sleep)
}

func TestCreateDuplicate(t *testing.T) {
	database := getTestDB(t)
	ctx := context.Background()

	if _, err := database.Create(ctx, recordstest.Sample("DUPL00001")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := database.Create(ctx, recordstest.Sample("DUPL00001")); err == nil {
		t.Error("Create() should fail for an existing room id")
	}
}

func TestUpdateSnapshotMissing(t *testing.T) {
	database := getTestDB(t)

	err := database.UpdateSnapshot(context.Background(), "MISSING00", []byte(`{}`))
	if !errors.Is(err, records.ErrNotFound) {
		t.Errorf("UpdateSnapshot() error = %v, want ErrNotFound", err)
	}
}
