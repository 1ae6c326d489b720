package integrations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvFileUpsertPreservesUnrelatedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("# a comment\nOTHER_KEY=untouched\n"), 0o600); err != nil {
		t.Fatalf("setup write: %v", err)
	}
	defer os.Unsetenv("ENVFILE_TEST_KEY")

	f := newEnvFile(path)
	if err := f.Upsert(map[string]string{"ENVFILE_TEST_KEY": "value1"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# a comment") {
		t.Fatalf("expected the comment line preserved, got:\n%s", content)
	}
	if !strings.Contains(content, "OTHER_KEY=untouched") {
		t.Fatalf("expected the unrelated key preserved, got:\n%s", content)
	}
	if !strings.Contains(content, "ENVFILE_TEST_KEY=value1") {
		t.Fatalf("expected the new key written, got:\n%s", content)
	}
	if os.Getenv("ENVFILE_TEST_KEY") != "value1" {
		t.Fatal("expected the live process environment updated")
	}
}

func TestEnvFileUpsertReplacesExistingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ENVFILE_TEST_KEY=old\n"), 0o600); err != nil {
		t.Fatalf("setup write: %v", err)
	}
	defer os.Unsetenv("ENVFILE_TEST_KEY")

	f := newEnvFile(path)
	if err := f.Upsert(map[string]string{"ENVFILE_TEST_KEY": "new"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "ENVFILE_TEST_KEY=old") {
		t.Fatalf("expected the old value replaced, got:\n%s", content)
	}
	if !strings.Contains(content, "ENVFILE_TEST_KEY=new") {
		t.Fatalf("expected the new value written, got:\n%s", content)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	count := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "ENVFILE_TEST_KEY=") {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one line for the key, found %d", count)
	}
}

func TestEnvFileUpsertCreatesFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist-yet.env")
	defer os.Unsetenv("ENVFILE_TEST_KEY")

	f := newEnvFile(path)
	if err := f.Upsert(map[string]string{"ENVFILE_TEST_KEY": "value1"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the env file to be created, stat error = %v", err)
	}
}
