package gamestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FilePersister keeps the collection as a single JSON blob on disk, the
// local-storage analog for a process that restarts.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Load(_ context.Context) (Collection, error) {
	raw, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return make(Collection), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var games Collection
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return games, nil
}

func (p *FilePersister) Save(_ context.Context, games Collection) error {
	raw, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(p.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	// Write-then-rename so a crash mid-write never truncates the snapshot.
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
