package envfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnv(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPathSetsVariables(t *testing.T) {
	path := writeEnv(t, t.TempDir(), "REDLINE_TEST_A=hello\nexport REDLINE_TEST_B=\"quoted value\"\n# comment\n\nREDLINE_TEST_C='single'\n")
	t.Setenv("REDLINE_TEST_A", "")
	os.Unsetenv("REDLINE_TEST_A")
	t.Setenv("REDLINE_TEST_B", "")
	os.Unsetenv("REDLINE_TEST_B")
	t.Setenv("REDLINE_TEST_C", "")
	os.Unsetenv("REDLINE_TEST_C")

	res := LoadPath(path)
	if res.Err != nil || !res.Loaded {
		t.Fatalf("result = %+v", res)
	}
	if res.Keys != 3 {
		t.Fatalf("keys = %d", res.Keys)
	}
	if os.Getenv("REDLINE_TEST_A") != "hello" {
		t.Fatalf("A = %q", os.Getenv("REDLINE_TEST_A"))
	}
	if os.Getenv("REDLINE_TEST_B") != "quoted value" {
		t.Fatalf("B = %q", os.Getenv("REDLINE_TEST_B"))
	}
	if os.Getenv("REDLINE_TEST_C") != "single" {
		t.Fatalf("C = %q", os.Getenv("REDLINE_TEST_C"))
	}
}

func TestLoadPathExistingEnvWins(t *testing.T) {
	path := writeEnv(t, t.TempDir(), "REDLINE_TEST_KEEP=from_file\n")
	t.Setenv("REDLINE_TEST_KEEP", "from_env")

	res := LoadPath(path)
	if res.Err != nil {
		t.Fatalf("err = %v", res.Err)
	}
	if os.Getenv("REDLINE_TEST_KEEP") != "from_env" {
		t.Fatalf("existing value was overwritten")
	}
	if res.Keys != 0 {
		t.Fatalf("keys = %d", res.Keys)
	}
}

func TestLoadPathMissingFile(t *testing.T) {
	res := LoadPath(filepath.Join(t.TempDir(), ".env"))
	if res.Err == nil || res.Loaded {
		t.Fatalf("result = %+v", res)
	}
}

func TestLoadHonorsOverridePath(t *testing.T) {
	path := writeEnv(t, t.TempDir(), "REDLINE_TEST_OVERRIDE=yes\n")
	t.Setenv("REDLINE_ENV_PATH", path)
	t.Setenv("REDLINE_TEST_OVERRIDE", "")
	os.Unsetenv("REDLINE_TEST_OVERRIDE")

	res := Load()
	if !res.Loaded || res.Path != path {
		t.Fatalf("result = %+v", res)
	}
	if os.Getenv("REDLINE_TEST_OVERRIDE") != "yes" {
		t.Fatalf("override file not loaded")
	}
}

func TestFindUpwards(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := writeEnv(t, root, "X=1\n")
	if got := findUpwards(nested, ".env"); got != want {
		t.Fatalf("findUpwards = %q, want %q", got, want)
	}
	if got := findUpwards(t.TempDir(), ".env.nothere"); got != "" {
		t.Fatalf("findUpwards = %q, want empty", got)
	}
}
