package db

import (
	"errors"
	"testing"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/spf13/viper"
)

func TestParseSQLCode(t *testing.T) {
	tests := []struct {
		msg      string
		expected string
		valid    bool
	}{
		{"ERROR: duplicate key value violates unique constraint \"planets_slot\" (SQLSTATE 23505)", "23505", true},
		{"FATAL: deadlock detected (SQLSTATE 40P01)", "40P01", true},
		{"connection refused", "", false},
		{"weird (SQLSTATE 123)", "", false},
	}

	for _, test := range tests {
		code, err := parseSQLCode(test.msg)
		if test.valid != (err == nil) || code != test.expected {
			t.Fatalf("Unexpected code \"%s\" for \"%s\" (err: %v)", code, test.msg, err)
		}
	}
}

func TestFormatError_Message(t *testing.T) {
	err := errors.New("ERROR: canceling statement due to conflict (SQLSTATE 40001)")
	if !IsTransient(err) {
		t.Fatalf("Serialization failures should be transient")
	}

	dup := errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)")
	if !IsDuplicate(dup, "") || IsTransient(dup) {
		t.Fatalf("Expected a duplicate element")
	}

	if FormatError(nil) != nil {
		t.Fatalf("Formatting no error should give no error")
	}

	plain := errors.New("boom")
	if FormatError(plain) != plain || IsTransient(plain) {
		t.Fatalf("Errors without code should be kept as is")
	}
}

func TestOpenSQLite_Duplicate(t *testing.T) {
	dbase, err := OpenSQLite("", logger.NewNullLogger())
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	defer dbase.Close()

	if dbase.Driver() != SQLite {
		t.Fatalf("Unexpected driver \"%s\"", dbase.Driver())
	}

	h := dbase.Handle()
	if _, err := h.Exec("CREATE TABLE slots (id TEXT PRIMARY KEY, x INTEGER NOT NULL, CONSTRAINT slots_x UNIQUE (x))"); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if _, err := h.Exec(h.Rebind("INSERT INTO slots (id, x) VALUES (?, ?)"), "a", 1); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	_, err = h.Exec(h.Rebind("INSERT INTO slots (id, x) VALUES (?, ?)"), "b", 1)
	if !IsDuplicate(err, "slots.x") {
		t.Fatalf("Expected duplicate on slots.x, got %v", err)
	}
	if IsDuplicate(err, "planets") {
		t.Fatalf("Duplicate should be restricted to the constraint")
	}

	var count int
	if err := h.Get(&count, "SELECT COUNT(*) FROM slots"); err != nil || count != 1 {
		t.Fatalf("Expected a single row, got %d (err: %v)", count, err)
	}
}

func TestNewPool_Configuration(t *testing.T) {
	defer viper.Reset()

	viper.Set("Database.Driver", "oracle")
	if _, err := NewPool(logger.NewNullLogger()); err == nil {
		t.Fatalf("Unknown driver should be rejected")
	}

	viper.Set("Database.Driver", "postgres")
	if _, err := NewPool(logger.NewNullLogger()); err == nil {
		t.Fatalf("Missing name should be rejected")
	}

	viper.Set("Database.Driver", "sqlite")
	dbase, err := NewPool(logger.NewNullLogger())
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	dbase.Close()
}
