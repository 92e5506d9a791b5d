package database

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestDialectDrivers(t *testing.T) {
	tests := []struct {
		name         string
		dialect      Dialect
		driver       string
		goose        string
		subdir       string
		lastInsertID bool
	}{
		{"sqlite", NewSQLiteDialect(), "sqlite3", "sqlite3", "sqlite", true},
		{"postgres", NewPostgresDialect(), "postgres", "postgres", "postgres", false},
		{"pgx", NewPgxDialect(), "pgx", "postgres", "postgres", false},
		{"mysql", NewMySQLDialect(), "mysql", "mysql", "mysql", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.GooseDialect(); got != tt.goose {
				t.Errorf("GooseDialect() = %v, want %v", got, tt.goose)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.subdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.subdir)
			}
			if got := tt.dialect.SupportsLastInsertId(); got != tt.lastInsertID {
				t.Errorf("SupportsLastInsertId() = %v, want %v", got, tt.lastInsertID)
			}
		})
	}
}

func TestRewritePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{
			name:     "sqlite keeps question marks",
			dialect:  NewSQLiteDialect(),
			input:    "SELECT * FROM sessions WHERE id = ? AND expires_at > ?",
			expected: "SELECT * FROM sessions WHERE id = ? AND expires_at > ?",
		},
		{
			name:     "postgres numbers placeholders",
			dialect:  NewPostgresDialect(),
			input:    "SELECT * FROM sessions WHERE id = ? AND expires_at > ?",
			expected: "SELECT * FROM sessions WHERE id = $1 AND expires_at > $2",
		},
		{
			name:     "pgx numbers placeholders",
			dialect:  NewPgxDialect(),
			input:    "UPDATE users SET email = ?, full_name = ? WHERE id = ?",
			expected: "UPDATE users SET email = $1, full_name = $2 WHERE id = $3",
		},
		{
			name:     "mysql keeps question marks",
			dialect:  NewMySQLDialect(),
			input:    "DELETE FROM sessions WHERE id = ?",
			expected: "DELETE FROM sessions WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.RewriteQuery(tt.input); got != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"sqlite unique", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite foreign key", NewSQLiteDialect(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, false},
		{"pq unique", NewPostgresDialect(), &pq.Error{Code: "23505"}, true},
		{"pq other", NewPostgresDialect(), &pq.Error{Code: "23503"}, false},
		{"pgx unique", NewPgxDialect(), &pgconn.PgError{Code: "23505"}, true},
		{"mysql duplicate", NewMySQLDialect(), &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", NewMySQLDialect(), &mysql.MySQLError{Number: 1452}, false},
		{"plain error", NewSQLiteDialect(), errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn := NewMySQLDialect().DSN(DialectConfig{URL: "clinic:secret@tcp(localhost:3306)/clinic"})

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN() error = %v", err)
	}
	if !cfg.ParseTime {
		t.Error("expected parseTime to be enabled")
	}
	if !cfg.ClientFoundRows {
		t.Error("expected clientFoundRows to be enabled")
	}
}

func TestSQLiteDSNAddsPragmas(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"./clinic.db", "./clinic.db?_busy_timeout=5000&_foreign_keys=on"},
		{"file:clinic.db?cache=shared", "file:clinic.db?cache=shared&_busy_timeout=5000&_foreign_keys=on"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NewSQLiteDialect().DSN(DialectConfig{Path: tt.path}); got != tt.want {
				t.Errorf("DSN() = %v, want %v", got, tt.want)
			}
		})
	}
}
