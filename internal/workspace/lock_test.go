package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(dir, lockFileName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Error("lock file should exist while held")
	}

	lock.Release()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
}

func TestAcquire_BlocksConcurrentRuns(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("failed to acquire first lock: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir)
	if err == nil {
		second.Release()
		t.Fatal("second lock on the same tree should have failed")
	}
}

func TestAcquire_AllowsAfterRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("failed to acquire first lock: %v", err)
	}
	first.Release()

	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("failed to re-acquire after release: %v", err)
	}
	second.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	lock.Release()
	lock.Release()
	lock.Release()
}
