package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DeafMist/bills-enricher/internal/models"
)

// LoadSourceBills reads the JSON array of source bill records.
func LoadSourceBills(path string) ([]models.SourceBill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bill list: %w", err)
	}
	var records []models.SourceBill
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse bill list %s: %w", path, err)
	}
	return records, nil
}

// File writes the bills as one JSON object keyed by bill id.
type File struct {
	Path string
}

func (f *File) Name() string { return "file" }

// Persist replaces the output file atomically: the JSON is written to a
// temporary file in the same directory and renamed over the target.
func (f *File) Persist(_ context.Context, bills models.Bills) error {
	data, err := json.Marshal(bills)
	if err != nil {
		return fmt.Errorf("marshal bills: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}
