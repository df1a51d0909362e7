package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lysyi3m/mp-comb/app/dataset"
)

func TestManagerMissingDataset(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, func(name string) Backend { return NewFileBackend(dir, name) }, nil)

	_, err := m.Open(context.Background(), "tech")
	if !errors.Is(err, ErrNoDataset) {
		t.Errorf("Expected ErrNoDataset, got %v", err)
	}
}

func TestManagerConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	items := testItems(20)
	if err := dataset.Write(dataset.Path(dir, "tech"), items); err != nil {
		t.Fatal(err)
	}

	m := NewManager(dir, func(name string) Backend { return NewFileBackend(dir, name) }, nil)

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(link string) {
			defer wg.Done()
			if _, err := m.Toggle(ctx, "tech", link); err != nil {
				t.Errorf("Toggle %s failed: %v", link, err)
			}
		}(item.Link)
	}
	wg.Wait()

	store, err := m.Open(ctx, "tech")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(store.ListRead()); got != len(items) {
		t.Errorf("Expected all %d toggles to persist, got %d read", len(items), got)
	}
}
