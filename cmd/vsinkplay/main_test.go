package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/vsink/config"
)

func settingsCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := newSettingsCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestLoadSettingsDefaults(t *testing.T) {
	cfgFile = ""
	t.Chdir(t.TempDir())

	s, err := loadSettings(settingsCmd(t))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s != config.Default() {
		t.Errorf("settings = %+v, want defaults", s)
	}
}

func TestLoadSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sink.toml")
	body := "title = \"from file\"\nmsaa = \"4x\"\nbuffer_count = 4\n\n[orientation]\nmethod = \"90r\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	t.Setenv("VSINK_MSAA", "2x")

	s, err := loadSettings(settingsCmd(t, "--buffer-count", "5"))
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Title != "from file" {
		t.Errorf("Title = %q, want file value", s.Title)
	}
	if s.MSAA != "2x" {
		t.Errorf("MSAA = %q, want environment value", s.MSAA)
	}
	if s.BufferCount != 5 {
		t.Errorf("BufferCount = %d, want flag value", s.BufferCount)
	}
	if s.Orientation.Method != "90r" || s.Orientation.FOV != 90 {
		t.Errorf("Orientation = %+v, want file method and default fov", s.Orientation)
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	cfgFile = ""
	t.Chdir(t.TempDir())

	if _, err := loadSettings(settingsCmd(t, "--msaa", "3x")); err == nil {
		t.Fatal("loadSettings accepted msaa 3x")
	}
}

func TestSettingsCommand(t *testing.T) {
	cfgFile = ""
	t.Chdir(t.TempDir())

	cmd := newSettingsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "toml", "--title", "demo"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s, err := config.Decode(&out, config.FormatTOML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Title != "demo" {
		t.Errorf("Title = %q, want demo", s.Title)
	}
}

func TestPlayHeadless(t *testing.T) {
	f := playFlags{display: "headless", width: 64, height: 36, fps: 200, frames: 5, counter: true}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := play(ctx, f, config.Default()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("play did not finish before the timeout")
	}
}

func TestPlayRejectsRate(t *testing.T) {
	err := play(context.Background(), playFlags{display: "headless", width: 8, height: 8}, config.Default())
	if err == nil || !strings.Contains(err.Error(), "fps") {
		t.Fatalf("play = %v, want fps error", err)
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := parseLevel("debug"); err != nil {
		t.Errorf("parseLevel(debug): %v", err)
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("parseLevel accepted loud")
	}
}
