package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	write := func(data string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	write("[autofade]\nduration = 8.0\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before the first write.
	time.Sleep(50 * time.Millisecond)

	// An invalid file is skipped.
	write("[autofade]\ncurve = \"exponential\"\n")
	select {
	case c := <-changes:
		t.Fatalf("onChange called with invalid config %+v", c.AutoFade)
	case <-time.After(400 * time.Millisecond):
	}

	write("[autofade]\nduration = 12.0\ncurve = \"power\"\n")
	select {
	case c := <-changes:
		if c.AutoFade.Duration != 12 || c.AutoFade.Curve != "power" {
			t.Errorf("reloaded autofade = %+v, want duration 12 curve power", c.AutoFade)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onChange not called after a valid write")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch() did not return after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.toml")
	if err := Watch(context.Background(), path, nil, func(*Config) {}); err == nil {
		t.Error("Watch() on missing directory error = nil")
	}
}
