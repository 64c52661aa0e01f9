package state

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"
)

// FileStore keeps the state in a JSON file.
type FileStore struct {
	path string
	log  *logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by path
func NewFileStore(path string, log *logger.Logger) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{path: path, log: log}
}

// Load treats a missing, unreadable or corrupt file as an empty state.
func (f *FileStore) Load(ctx context.Context) (*SeenState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("State file unreadable, starting empty")
		}
		return New(), nil
	}

	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("State file corrupt, starting empty")
		return New(), nil
	}
	return s, nil
}

// Save writes the state through a temporary file renamed over the target,
// so a crash never leaves a truncated file behind.
func (f *FileStore) Save(ctx context.Context, s *SeenState) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return relayerrors.NewState("failed to encode state", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return relayerrors.NewState("failed to create temp state file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return relayerrors.NewState("failed to write state", err)
	}
	if err := tmp.Close(); err != nil {
		return relayerrors.NewState("failed to write state", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return relayerrors.NewState("failed to replace state file", err)
	}
	return nil
}
