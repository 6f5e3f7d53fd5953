package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"league-digest/internal/model"
)

// SaveDump writes raw activity groups as indented JSON, creating parent directories.
func SaveDump(path string, groups []model.RawActivityGroup) error {
	if groups == nil {
		groups = []model.RawActivityGroup{}
	}
	b, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dump: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadDump reads a file written by SaveDump. Numbers decode as json.Number so bids
// and ids keep their integer form.
func LoadDump(path string) ([]model.RawActivityGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var groups []model.RawActivityGroup
	if err := dec.Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode dump %s: %w", path, err)
	}
	return groups, nil
}
