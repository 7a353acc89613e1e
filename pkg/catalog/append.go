package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Append adds entry at the end of the fixture file at path, creating the
// file when it does not exist yet.
func Append(path string, entry Entry) error {
	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("catalog: invalid entry: %w", err)
	}

	var entries []Entry
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("catalog: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("catalog: decode %s: %w", path, err)
		}
	}

	for _, existing := range entries {
		if existing.Name == entry.Name {
			return fmt.Errorf("%w: %q in %s", ErrCaseExists, entry.Name, path)
		}
	}
	entries = append(entries, entry)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("catalog: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("catalog: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", path, err)
	}
	return nil
}
