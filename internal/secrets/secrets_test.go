package secrets

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func testStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return s, path
}

func TestSetGetRoundTrip(t *testing.T) {
	s, _ := testStore(t)

	if _, ok := s.Get("llm.anthropic.apiKey"); ok {
		t.Fatal("fresh store should have no keys")
	}
	if err := s.Set("llm.anthropic.apiKey", "sk-test-123"); err != nil {
		t.Fatal(err)
	}
	v, ok := s.Get("llm.anthropic.apiKey")
	if !ok || v != "sk-test-123" {
		t.Errorf("Get = %q, %v", v, ok)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, path := testStore(t)
	if err := s.Set(KeyVaultDir, "~/Documents/Vault"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("llm.openai.apiKey", "sk-abc"); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := reopened.Get(KeyVaultDir); !ok || v != "~/Documents/Vault" {
		t.Errorf("vault dir after reopen = %q, %v", v, ok)
	}
	if v, ok := reopened.Get("llm.openai.apiKey"); !ok || v != "sk-abc" {
		t.Errorf("api key after reopen = %q, %v", v, ok)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s, path := testStore(t)
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}

	// Empty value clears.
	if err := s.Set("k", ""); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("k"); ok {
		t.Error("Set empty should clear the key")
	}

	// Clearing again, by either path, stays a no-op.
	if err := s.Set("k", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("never-set"); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reopened.Get("k"); ok {
		t.Error("cleared key resurrected after reopen")
	}
}

func TestFileModeRestricted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	s, path := testStore(t)
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets file mode = %o, want 0600", perm)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("corrupt store should fail to open")
	}
}
