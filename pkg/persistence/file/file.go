// Package file provides a persistence implementation that keeps the store in memory and
// writes it to a JSON file under a root directory on every commit.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/wirecat/pkg/persistence/memory"
)

// StoreFile is the name of the snapshot file inside the root directory.
const StoreFile = "wirecat.json"

// Persistence implements persistence.Persistence on top of a snapshot file.
type Persistence struct {
	*memory.Persistence

	root   string
	path   string
	logger *slog.Logger
}

// NewPersistence opens the store kept in root, creating the directory when missing.
// root may carry a file:// prefix.
func NewPersistence(ctx context.Context, logger *slog.Logger, root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	err := os.MkdirAll(cleanRoot, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", cleanRoot, err)
	}

	fp := &Persistence{
		root:   cleanRoot,
		path:   filepath.Join(cleanRoot, StoreFile),
		logger: logger.With("module", "file_persistence"),
	}

	snapshot, err := fp.load()
	if err != nil {
		return nil, err
	}

	fp.Persistence = memory.NewPersistence(memory.WithSnapshot(snapshot), memory.WithCommitHook(fp.write))

	fp.logger.InfoContext(ctx, "Loaded store", "path", fp.path, "workflows", len(snapshot.Workflows))

	return fp, nil
}

func (fp *Persistence) load() (memory.Snapshot, error) {
	var snapshot memory.Snapshot

	body, err := os.ReadFile(filepath.Clean(fp.path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snapshot, nil
		}

		return snapshot, fmt.Errorf("failed to read store %s: %w", fp.path, err)
	}

	err = json.Unmarshal(body, &snapshot)
	if err != nil {
		return snapshot, fmt.Errorf("failed to unmarshal store %s: %w", fp.path, err)
	}

	return snapshot, nil
}

// write replaces the store file through a rename so readers never see a partial file.
func (fp *Persistence) write(_ context.Context, snapshot memory.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(fp.root, StoreFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}

	err = os.Rename(tmp.Name(), fp.path)
	if err != nil {
		return fmt.Errorf("failed to replace store file %s: %w", fp.path, err)
	}

	return nil
}

// HealthCheck checks that the root directory still exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	_, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}

	return nil
}
