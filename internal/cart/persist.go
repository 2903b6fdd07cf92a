package cart

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotVersion guards the on-disk format. A mismatched version is
// treated the same as a corrupted file: the cart starts empty.
const snapshotVersion = 1

type snapshot struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

type persister interface {
	save(lines []Line) error
	load() ([]Line, error)
}

// filePersister writes the cart snapshot atomically: a temp file in
// the same directory is renamed over the target.
type filePersister struct {
	path string
}

func (p *filePersister) save(lines []Line) error {
	data, err := json.Marshal(snapshot{Version: snapshotVersion, Lines: lines})
	if err != nil {
		return fmt.Errorf("encoding cart snapshot: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *filePersister) load() ([]Line, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cart snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing cart snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported cart snapshot version %d", snap.Version)
	}
	return snap.Lines, nil
}
