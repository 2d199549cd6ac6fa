package kv

import (
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	if err := s.Set("k", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("k", "v2"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}

	v, ok, err := s.Get("k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("Get(k) = %q, %v, %v", v, ok, err)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("expected key to be deleted")
	}

	if err := s.Delete("never-set"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := s.Set("mutumwa_current_session", "s1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	v, ok, err := s.Get("mutumwa_current_session")
	if err != nil || !ok || v != "s1" {
		t.Errorf("expected persisted value s1, got %q, %v, %v", v, ok, err)
	}
}
