package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "clinic.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDatabaseIntegration checks that migrations create the schema
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"users", "sessions", "patients", "consultations", "appointments"}
	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	insert := "INSERT INTO users (email, password_hash, full_name, role) VALUES (?, ?, ?, ?)"

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecReturningID(ctx, insert, "doc@example.com", "hash", "Doc", "doctor")
		return err
	})
	if err != nil {
		t.Fatalf("committed transaction failed: %v", err)
	}

	rollbackErr := errors.New("abort")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "other@example.com", "hash", "Other", "doctor"); err != nil {
			return err
		}
		return rollbackErr
	})
	if !errors.Is(err, rollbackErr) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after rollback, got %d", count)
	}
}

func TestUniqueViolationDetected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	insert := "INSERT INTO users (email, password_hash, full_name, role) VALUES (?, ?, ?, ?)"
	if _, err := db.ExecReturningID(ctx, insert, "dup@example.com", "hash", "Dup", "doctor"); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := db.ExecReturningID(ctx, insert, "dup@example.com", "hash", "Dup", "doctor")
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO users (email, password_hash, full_name, role) VALUES (?, ?, ?, ?)",
		"concurrent@example.com", "hashedpass", "Concurrent", "doctor")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var name string
			err := db.QueryRowContext(ctx, "SELECT full_name FROM users WHERE email = ?", "concurrent@example.com").Scan(&name)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			if name != "Concurrent" {
				t.Errorf("Expected name 'Concurrent', got '%s'", name)
			}
		}()
	}
	wg.Wait()
}
