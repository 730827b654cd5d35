package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fps: 60\nverbose: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FPS != 60 {
		t.Errorf("fps: expected 60, got %d", cfg.FPS)
	}
	if !cfg.Verbose {
		t.Error("verbose: expected true")
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("unset size must default to 1280x720, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Background != "#000000" {
		t.Errorf("unset background must default to black, got %q", cfg.Background)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	want := Default()
	want.Width = 1920
	want.Height = 1080
	want.CacheBudgetMB = 256

	if err := Write(want, path); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("round trip: expected %+v, got %+v", want, got)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
