package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lysyi3m/mp-comb/app/dataset"
	"github.com/lysyi3m/mp-comb/app/metrics"
)

// Store is the viewer's state for one dataset. It is safe for concurrent use.
type Store struct {
	name    string
	backend Backend
	metrics *metrics.Metrics

	mu    sync.RWMutex
	items []ReadableItem
}

// Open loads the persisted flags and reconciles them with items. Nothing is
// written until the first toggle.
func Open(ctx context.Context, name string, items []dataset.Item, backend Backend, m *metrics.Metrics) (*Store, error) {
	flags, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &Store{
		name:    name,
		backend: backend,
		metrics: m,
		items:   Reconcile(items, flags),
	}, nil
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Items() []ReadableItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ReadableItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewView(s.items)
}

func (s *Store) ListUnread() []ReadableItem {
	return s.View().Unread
}

func (s *Store) ListRead() []ReadableItem {
	return s.View().Read
}

// Toggle flips the read flag of link and persists the full state. When the
// save fails the in-memory state is left as it was.
func (s *Store) Toggle(ctx context.Context, link string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := Toggle(s.items, link)
	if !ok {
		return NewView(s.items), ErrUnknownLink
	}

	if err := s.backend.Save(ctx, Snapshot(next)); err != nil {
		slog.Error("Failed to save read state", "source", s.name, "link", link, "error", err)
		return NewView(s.items), err
	}

	s.items = next

	var read bool
	for _, item := range next {
		if item.Link == link {
			read = item.Read
			break
		}
	}
	s.metrics.IncToggle(s.name, read)
	slog.Debug("Read state toggled", "source", s.name, "link", link, "read", read)

	return NewView(s.items), nil
}
