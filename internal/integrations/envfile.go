package integrations

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// envFile persists credential values as KEY=VALUE lines to a file on disk,
// preserving any unrelated lines already present, and mirrors every write
// into the live process environment. Reads go straight to the live
// environment — the file is write-only state for surviving a restart.
type envFile struct {
	mu   sync.Mutex
	path string
}

func newEnvFile(path string) *envFile {
	return &envFile{path: path}
}

// Getenv returns key's current live value, empty if unset.
func (f *envFile) Getenv(key string) string {
	return os.Getenv(key)
}

// Upsert writes every key in values into the env file, replacing any
// existing KEY= line for that key and leaving every other line untouched,
// then sets each key in the live process environment.
func (f *envFile) Upsert(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.path == "" {
		for key, value := range values {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("integrations: setenv %q: %w", key, err)
			}
		}
		return nil
	}

	lines, err := readLines(f.path)
	if err != nil {
		return fmt.Errorf("integrations: read env file: %w", err)
	}

	remaining := make(map[string]string, len(values))
	for key, value := range values {
		remaining[key] = value
	}

	for i, line := range lines {
		key, _, ok := splitEnvLine(line)
		if !ok {
			continue
		}
		if value, pending := remaining[key]; pending {
			lines[i] = key + "=" + value
			delete(remaining, key)
		}
	}
	for key, value := range remaining {
		lines = append(lines, key+"="+value)
	}

	if err := os.WriteFile(f.path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		return fmt.Errorf("integrations: write env file: %w", err)
	}

	for key, value := range values {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("integrations: setenv %q: %w", key, err)
		}
	}
	return nil
}

// readLines returns path's lines, or an empty slice if path doesn't exist
// yet — an integration's first configured credential creates the file.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

// splitEnvLine reports whether line is a KEY=VALUE assignment (not a
// comment or blank line) and, if so, its key.
func splitEnvLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	idx := strings.IndexByte(trimmed, '=')
	if idx < 0 {
		return "", "", false
	}
	return trimmed[:idx], trimmed[idx+1:], true
}
