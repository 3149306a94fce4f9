// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubfetch/pkg/types"
)

// WriteJSON writes pubs as a two-space indented JSON array. Non-ASCII text
// and HTML characters are written literally. The file is replaced atomically.
func WriteJSON(path string, pubs []types.Publication) error {
	if pubs == nil {
		pubs = []types.Publication{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pubs); err != nil {
		return fmt.Errorf("encoding publications: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// WriteYAML writes pubs as a YAML sequence, suitable as a static-site data
// file. The file is replaced atomically.
func WriteYAML(path string, pubs []types.Publication) error {
	if pubs == nil {
		pubs = []types.Publication{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(pubs); err != nil {
		return fmt.Errorf("encoding publications as YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding publications as YAML: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// writeFile writes data to a temp file beside path and renames it into place.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".pubfetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
