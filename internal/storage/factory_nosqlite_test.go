//go:build !sqlite

package storage

import (
	"errors"
	"testing"
)

func TestNewStoreSQLiteUnavailableWithoutTag(t *testing.T) {
	_, err := NewStore("sqlite", "summaries.db")
	if !errors.Is(err, ErrSQLiteUnavailable) {
		t.Fatalf("expected sqlite unavailable error, got %v", err)
	}
}
