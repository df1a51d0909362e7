package state

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lysyi3m/mp-comb/app/database"
	"github.com/lysyi3m/mp-comb/app/dataset"
)

// Backend persists the read flags of one dataset. Save always replaces the
// whole map.
type Backend interface {
	Load(ctx context.Context) (map[string]bool, error)
	Save(ctx context.Context, state map[string]bool) error
}

// FileBackend keeps the flags in <dataDir>/<name>.state.json.
type FileBackend struct {
	path string
}

func NewFileBackend(dataDir, name string) *FileBackend {
	return &FileBackend{path: filepath.Join(dataDir, name+".state.json")}
}

func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Load(ctx context.Context) (map[string]bool, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: b.path, Err: err}
	}

	state := map[string]bool{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &PersistenceError{Op: "decode", Path: b.path, Err: err}
	}
	return state, nil
}

func (b *FileBackend) Save(ctx context.Context, state map[string]bool) error {
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return &PersistenceError{Op: "encode", Path: b.path, Err: err}
	}

	if err := dataset.WriteFileAtomic(b.path, data); err != nil {
		return &PersistenceError{Op: "write", Path: b.path, Err: err}
	}
	return nil
}

// SQLiteBackend keeps the flags of every dataset in the read_state table.
type SQLiteBackend struct {
	repo    *database.ReadStateRepository
	dataset string
}

func NewSQLiteBackend(repo *database.ReadStateRepository, datasetName string) *SQLiteBackend {
	return &SQLiteBackend{repo: repo, dataset: datasetName}
}

func (b *SQLiteBackend) Load(ctx context.Context) (map[string]bool, error) {
	state, err := b.repo.GetReadState(ctx, b.dataset)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: "read_state/" + b.dataset, Err: err}
	}
	return state, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, state map[string]bool) error {
	if err := b.repo.ReplaceReadState(ctx, b.dataset, state); err != nil {
		return &PersistenceError{Op: "save", Path: "read_state/" + b.dataset, Err: err}
	}
	return nil
}
