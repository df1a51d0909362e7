package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/lysyi3m/mp-comb/app/dataset"
	"github.com/lysyi3m/mp-comb/app/metrics"
)

var ErrNoDataset = errors.New("no dataset, run a crawl first")

type BackendFactory func(name string) Backend

// Manager opens stores for datasets on demand. Toggles on the same dataset are
// serialized so concurrent callers never overwrite each other's flags.
type Manager struct {
	dataDir    string
	newBackend BackendFactory
	metrics    *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(dataDir string, newBackend BackendFactory, m *metrics.Metrics) *Manager {
	return &Manager{
		dataDir:    dataDir,
		newBackend: newBackend,
		metrics:    m,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Open reads the current dataset of name and its read flags.
func (m *Manager) Open(ctx context.Context, name string) (*Store, error) {
	items, err := dataset.Read(dataset.Path(m.dataDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNoDataset)
	}
	if err != nil {
		return nil, err
	}

	return Open(ctx, name, items, m.newBackend(name), m.metrics)
}

func (m *Manager) Toggle(ctx context.Context, name, link string) (View, error) {
	lock := m.lock(name)
	lock.Lock()
	defer lock.Unlock()

	store, err := m.Open(ctx, name)
	if err != nil {
		return View{}, err
	}
	return store.Toggle(ctx, link)
}

func (m *Manager) lock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}
