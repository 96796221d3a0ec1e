package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenStorage(t *testing.T) {
	tmpDir := t.TempDir()
	tokenPath := filepath.Join(tmpDir, "token.json")

	storage, err := NewTokenStorage(tokenPath)
	if err != nil {
		t.Fatalf("NewTokenStorage() error = %v", err)
	}

	if storage.Exists() {
		t.Error("Exists() = true, want false for new storage")
	}

	token, err := storage.Load()
	if err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if token != nil {
		t.Error("Load() should return nil for non-existent token")
	}

	testToken := &Token{
		AccessToken:  "access_123",
		TokenType:    "Bearer",
		Scope:        "user-read-private",
		ExpiresIn:    3600,
		RefreshToken: "refresh_456",
		ExpiresAt:    time.Now().Add(1 * time.Hour),
	}

	if err := storage.Save(testToken); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !storage.Exists() {
		t.Error("Exists() = false after save, want true")
	}

	loaded, err := storage.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AccessToken != testToken.AccessToken {
		t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, testToken.AccessToken)
	}
	if loaded.RefreshToken != testToken.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", loaded.RefreshToken, testToken.RefreshToken)
	}

	info, err := os.Stat(tokenPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("File permissions = %o, want 0600", mode)
	}
}

func TestTokenStorageOverwriteLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewTokenStorage(filepath.Join(tmpDir, "token.json"))
	if err != nil {
		t.Fatalf("NewTokenStorage() error = %v", err)
	}

	for _, access := range []string{"first", "second"} {
		if err := storage.Save(&Token{AccessToken: access}); err != nil {
			t.Fatalf("Save(%s) error = %v", access, err)
		}
	}

	loaded, err := storage.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AccessToken != "second" {
		t.Errorf("AccessToken = %q, want second", loaded.AccessToken)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the token file", len(entries))
	}
}

func TestTokenStorageNestedDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	tokenPath := filepath.Join(tmpDir, "nested", "dir", "token.json")

	storage, err := NewTokenStorage(tokenPath)
	if err != nil {
		t.Fatalf("NewTokenStorage() error = %v", err)
	}

	if err := storage.Save(&Token{AccessToken: "test"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !storage.Exists() {
		t.Error("Token file not created in nested directory")
	}
}

func TestTokenStorageCorruptFile(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(tokenPath, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	storage, _ := NewTokenStorage(tokenPath)
	if _, err := storage.Load(); err == nil {
		t.Error("Load() of corrupt file error = nil")
	}
}

func TestTokenStoragePath(t *testing.T) {
	path := "/custom/path/token.json"
	storage, err := NewTokenStorage(path)
	if err != nil {
		t.Fatalf("NewTokenStorage() error = %v", err)
	}

	if storage.Path() != path {
		t.Errorf("Path() = %q, want %q", storage.Path(), path)
	}
}
