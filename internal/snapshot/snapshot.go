// Package snapshot persists named datasets under a base directory, one
// subdirectory per snapshot holding snapshot.json and data.csv.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/utils"
)

const (
	metaFileName = "snapshot.json"
	dataFileName = "data.csv"
)

var (
	ErrExists      = errors.New("snapshot already exists")
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidName = errors.New("invalid snapshot name")

	validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// Snapshot is the metadata of a saved dataset.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Size        int       `json:"size"`
	Seed        int64     `json:"seed"`
	CreatedAt   time.Time `json:"created_at"`

	rootDir string
}

// Create writes records as a new snapshot under baseDir/name. It refuses to
// replace an existing snapshot.
func Create(baseDir, name, description string, seed int64, records []dataset.Record) (*Snapshot, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	s := &Snapshot{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Size:        len(records),
		Seed:        seed,
		CreatedAt:   time.Now().UTC(),
		rootDir:     filepath.Join(baseDir, name),
	}
	if utils.Exists(filepath.Join(s.rootDir, metaFileName)) {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, records); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	if err := utils.SafeWriteFile(filepath.Join(s.rootDir, dataFileName), buf.Bytes()); err != nil {
		return nil, err
	}
	meta, err := utils.PrettyJSON(s)
	if err != nil {
		return nil, err
	}
	// metadata last: a directory without snapshot.json is not a snapshot
	if err := utils.SafeWriteFile(filepath.Join(s.rootDir, metaFileName), meta); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the metadata of baseDir/name.
func Load(baseDir, name string) (*Snapshot, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	dir := filepath.Join(baseDir, name)
	b, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", name, err)
	}
	s.rootDir = dir
	return &s, nil
}

// Dir returns the snapshot's directory.
func (s *Snapshot) Dir() string { return s.rootDir }

// DataPath returns the location of the snapshot's CSV.
func (s *Snapshot) DataPath() string { return filepath.Join(s.rootDir, dataFileName) }

// Records reads the stored dataset back.
func (s *Snapshot) Records() ([]dataset.Record, error) {
	f, err := os.Open(s.DataPath())
	if err != nil {
		return nil, fmt.Errorf("open snapshot data: %w", err)
	}
	defer f.Close()
	records, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.Name, err)
	}
	return records, nil
}

// List returns every snapshot in baseDir, oldest first. A missing baseDir
// yields an empty list.
func List(baseDir string) ([]*Snapshot, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var out []*Snapshot
	for _, e := range entries {
		if !e.IsDir() || !utils.Exists(filepath.Join(baseDir, e.Name(), metaFileName)) {
			continue
		}
		s, err := Load(baseDir, e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
