package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLock_LockUnlock(t *testing.T) {
	dir := t.TempDir()
	fl := NewFileLock(dir)

	if err := fl.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	// Reusable after unlock.
	if err := fl.Lock(); err != nil {
		t.Fatalf("second Lock: %v", err)
	}
	if err := fl.Unlock(); err != nil {
		t.Fatalf("second Unlock: %v", err)
	}
}

func TestFileLock_UnlockWithoutLock(t *testing.T) {
	fl := NewFileLock(t.TempDir())
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock without Lock should not error: %v", err)
	}
}

func TestFileLock_ExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	first := NewFileLock(dir)
	if err := first.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// flock(2) locks belong to the open file description, so a second
	// FileLock on the same directory is excluded even in this process.
	second := NewFileLock(dir)
	acquired, err := second.TryLock()
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if acquired {
		second.Unlock()
		t.Fatal("second holder acquired a held lock")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	acquired, err = second.TryLock()
	if err != nil || !acquired {
		t.Fatalf("TryLock after release = %v, %v", acquired, err)
	}
	second.Unlock()
}

func TestFileLock_InvalidDir(t *testing.T) {
	fl := NewFileLock("/nonexistent/dir/path")
	if err := fl.Lock(); err == nil {
		t.Error("Lock should fail for nonexistent directory")
	}
	if _, err := fl.TryLock(); err == nil {
		t.Error("TryLock should fail for nonexistent directory")
	}
}
