// Package dataset persists the filtered result of a crawl as a JSON list of
// {title, link, create_time} records, one file per source.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lysyi3m/mp-comb/app/source"
)

// Item is one matched article. Link is its stable identifier.
type Item struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	CreateTime int64  `json:"create_time"`
}

func FromRaw(raw source.RawItem) Item {
	return Item{Title: raw.Title, Link: raw.Link, CreateTime: raw.CreateTime}
}

// PersistenceError reports a failed read or write of a data file. A failed
// write never leaves a partial file in place.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Aggregator collects matched items in arrival order. It is safe for
// concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	items []Item
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add appends a page's items, keeping their order within the page.
func (a *Aggregator) Add(items ...Item) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, items...)
}

func (a *Aggregator) Items() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Item, len(a.items))
	copy(out, a.items)
	return out
}

func Path(dataDir, name string) string {
	return filepath.Join(dataDir, name+".json")
}

// Write replaces the dataset at path with items.
func Write(path string, items []Item) error {
	if items == nil {
		items = []Item{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(items); err != nil {
		return &PersistenceError{Op: "encode", Path: path, Err: err}
	}

	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Read loads the dataset at path. A missing file is reported as an error
// matching os.ErrNotExist.
func Read(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &PersistenceError{Op: "decode", Path: path, Err: err}
	}
	return items, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// over path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
