package appdirs

import (
	"path/filepath"
	"testing"
)

func TestDataDirOverride(t *testing.T) {
	t.Setenv("REDLINE_DATA_DIR", "/tmp/redline-test")
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if dir != "/tmp/redline-test" {
		t.Fatalf("dir = %q", dir)
	}
}

func TestDataDirDefaultsUnderUserConfig(t *testing.T) {
	t.Setenv("REDLINE_DATA_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if filepath.Base(dir) != appDirName {
		t.Fatalf("dir = %q", dir)
	}
}

func TestSettingsPath(t *testing.T) {
	if got := SettingsPath("/data"); got != filepath.Join("/data", "settings.json") {
		t.Fatalf("settings path = %q", got)
	}
}
