// Package store persists workflow state to disk as full snapshots. The
// file extension selects the format (JSON or YAML).
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fabricworks/fabric"
	"github.com/goccy/go-yaml"
)

// Save writes a complete snapshot of the workflow to the given path. The
// write goes through a temporary file in the same directory and a rename,
// so a crash never leaves a truncated snapshot behind. The workflow's
// dirty flag is cleared on success.
func Save(wf *fabric.WorkflowState, path string) error {
	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(wf, "", "  ")
	case ".yml", ".yaml":
		data, err = yaml.Marshal(wf)
	default:
		return fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write workflow: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace workflow file: %w", err)
	}
	wf.Dirty = false
	return nil
}

// Load reads a workflow snapshot from the given path.
func Load(path string) (*fabric.WorkflowState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	wf := &fabric.WorkflowState{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, wf)
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, wf)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if wf.GlobalInputs == nil {
		wf.GlobalInputs = map[string]string{}
	}
	return wf, nil
}
