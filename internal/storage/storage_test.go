package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFileKey(t *testing.T) {
	key := FileKey("user-1", ".wav")
	if !regexp.MustCompile(`^user-1_[0-9a-f]{32}\.wav$`).MatchString(key) {
		t.Errorf("Expected user_hex.ext, got %q", key)
	}
	if FileKey("u", ".webm") == FileKey("u", ".webm") {
		t.Error("Expected unique keys")
	}
}

func TestLocalStorage_Save(t *testing.T) {
	ls, err := NewLocalStorage(filepath.Join(t.TempDir(), "uploads"), 1024)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	n, err := ls.Save("a.webm", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5 bytes, got %d", n)
	}
	data, err := os.ReadFile(ls.Path("a.webm"))
	if err != nil || string(data) != "hello" {
		t.Errorf("Expected stored content, got %q (%v)", data, err)
	}
}

func TestLocalStorage_SaveTooLarge(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), 100*1024)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	_, err = ls.Save("big.webm", bytes.NewReader(make([]byte, 200*1024)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
	if _, statErr := os.Stat(ls.Path("big.webm")); !os.IsNotExist(statErr) {
		t.Error("Expected partial file to be removed")
	}
}

func TestLocalStorage_PathStaysInDir(t *testing.T) {
	ls, _ := NewLocalStorage(t.TempDir(), 0)
	if got := ls.Path("../../etc/passwd"); filepath.Dir(got) != ls.Dir() {
		t.Errorf("Expected path inside upload dir, got %q", got)
	}
}

func TestLocalStorage_DeleteMissing(t *testing.T) {
	ls, _ := NewLocalStorage(t.TempDir(), 0)
	if err := ls.Delete("nope.webm"); err != nil {
		t.Errorf("Expected nil for missing file, got %v", err)
	}
}

func TestScheduler_CleanOldFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.webm")
	newFile := filepath.Join(dir, "new.webm")
	for _, p := range []string{oldFile, newFile} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-5 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(dir, time.Hour, 2*time.Hour, zerolog.Nop())
	if got := s.CleanOldFiles(); got != 1 {
		t.Errorf("Expected 1 deletion, got %d", got)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Expected old file to be removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Error("Expected recent file to remain")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(t.TempDir(), 10*time.Millisecond, time.Hour, zerolog.Nop())
	s.Start()
	time.Sleep(25 * time.Millisecond)
	s.Stop()
}
