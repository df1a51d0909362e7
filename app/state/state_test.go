package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/mp-comb/app/database"
	"github.com/lysyi3m/mp-comb/app/dataset"
)

func testItems(n int) []dataset.Item {
	items := make([]dataset.Item, n)
	for i := range items {
		items[i] = dataset.Item{
			Title:      fmt.Sprintf("Article %d", i),
			Link:       fmt.Sprintf("https://mp.weixin.qq.com/s/%d", i),
			CreateTime: int64(1700000000 + i),
		}
	}
	return items
}

type failingBackend struct {
	state   map[string]bool
	saveErr error
	saves   int
}

func (b *failingBackend) Load(context.Context) (map[string]bool, error) {
	return b.state, nil
}

func (b *failingBackend) Save(_ context.Context, state map[string]bool) error {
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.state = state
	return nil
}

func TestReconcile(t *testing.T) {
	items := testItems(3)
	flags := map[string]bool{
		items[0].Link:       true,
		"https://stale/one": true,
	}

	got := Reconcile(items, flags)
	if len(got) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(got))
	}
	if !got[0].Read || got[1].Read || got[2].Read {
		t.Errorf("Expected only first item read, got %+v", got)
	}
	if len(flags) != 2 {
		t.Errorf("Expected state map untouched, got %v", flags)
	}

	again := Reconcile(items, Snapshot(got))
	for i := range got {
		if again[i] != got[i] {
			t.Errorf("Expected reconcile of own snapshot to be stable at %d: %+v vs %+v", i, again[i], got[i])
		}
	}

	snap := Snapshot(got)
	if _, ok := snap["https://stale/one"]; ok {
		t.Error("Expected snapshot to drop links not in the dataset")
	}
}

func TestToggleIsPure(t *testing.T) {
	items := Reconcile(testItems(2), nil)

	next, ok := Toggle(items, items[1].Link)
	if !ok {
		t.Fatal("Expected toggle of known link to succeed")
	}
	if items[1].Read {
		t.Error("Expected original slice to stay unchanged")
	}
	if !next[1].Read {
		t.Error("Expected toggled item to be read")
	}

	back, _ := Toggle(next, items[1].Link)
	if back[1].Read {
		t.Error("Expected second toggle to restore unread")
	}

	same, ok := Toggle(items, "https://unknown")
	if ok {
		t.Error("Expected toggle of unknown link to report false")
	}
	if len(Snapshot(same)) != 2 {
		t.Error("Expected unknown link not to add a key")
	}
}

func TestPaginate(t *testing.T) {
	items := Reconcile(testItems(23), nil)

	tests := []struct {
		page        int
		wantLen     int
		wantCurrent int
	}{
		{1, 10, 1},
		{2, 10, 2},
		{3, 3, 3},
		{4, 3, 3},
		{0, 10, 1},
		{-5, 10, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			got, current, total := Paginate(items, tt.page, 10)
			if len(got) != tt.wantLen || current != tt.wantCurrent || total != 3 {
				t.Errorf("Expected %d items on page %d of 3, got %d on %d of %d", tt.wantLen, tt.wantCurrent, len(got), current, total)
			}
		})
	}

	got, current, total := Paginate(nil, 1, 10)
	if len(got) != 0 || current != 1 || total != 1 {
		t.Errorf("Expected one empty page, got %d items on %d of %d", len(got), current, total)
	}
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFileBackend(dir, "tech")

	state, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Expected missing file to load as empty, got %v", err)
	}
	if len(state) != 0 {
		t.Errorf("Expected empty state, got %v", state)
	}

	want := map[string]bool{"https://a": true, "https://b": false}
	if err := b.Save(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got["https://a"] || got["https://b"] {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if err := os.WriteFile(b.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = b.Load(ctx)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("Expected PersistenceError for corrupt file, got %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	b := NewSQLiteBackend(database.NewReadStateRepository(db), "tech")

	state, err := b.Load(ctx)
	if err != nil || len(state) != 0 {
		t.Fatalf("Expected empty state, got %v (%v)", state, err)
	}

	if err := b.Save(ctx, map[string]bool{"https://a": true}); err != nil {
		t.Fatal(err)
	}
	state, err = b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !state["https://a"] {
		t.Errorf("Expected saved flag, got %v", state)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	items := testItems(5)

	store, err := Open(ctx, "tech", items, NewFileBackend(dir, "tech"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.ListUnread()) != 5 || len(store.ListRead()) != 0 {
		t.Fatal("Expected all items unread on first open")
	}

	view, err := store.Toggle(ctx, items[2].Link)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Unread) != 4 || len(view.Read) != 1 || view.Read[0].Link != items[2].Link {
		t.Errorf("Unexpected view after toggle: %+v", view)
	}

	// A later crawl added an article; it must show up unread.
	grown := append(testItems(5), dataset.Item{Title: "New", Link: "https://mp.weixin.qq.com/s/new"})
	reopened, err := Open(ctx, "tech", grown, NewFileBackend(dir, "tech"), nil)
	if err != nil {
		t.Fatal(err)
	}

	read := reopened.ListRead()
	if len(read) != 1 || read[0].Link != items[2].Link {
		t.Errorf("Expected persisted read flag, got %+v", read)
	}
	unread := reopened.ListUnread()
	if len(unread) != 5 || unread[4].Link != "https://mp.weixin.qq.com/s/new" {
		t.Errorf("Expected new item unread at the end, got %+v", unread)
	}
}

func TestToggleRepeatedLink(t *testing.T) {
	items := Reconcile(testItems(2), nil)
	items = append(items, items[0])

	toggled, ok := Toggle(items, items[0].Link)
	if !ok {
		t.Fatal("Expected link to be found")
	}
	if !toggled[0].Read || !toggled[2].Read || toggled[1].Read {
		t.Errorf("Expected both copies of the link read, got %+v", toggled)
	}
	if !Snapshot(toggled)[items[0].Link] {
		t.Error("Expected snapshot to record the link as read")
	}

	back, _ := Toggle(toggled, items[0].Link)
	if back[0].Read || back[2].Read {
		t.Errorf("Expected both copies unread again, got %+v", back)
	}
}

func TestStoreToggleRepeatedLinkPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	items := testItems(2)
	items = append(items, items[0])

	store, err := Open(ctx, "tech", items, NewFileBackend(dir, "tech"), nil)
	if err != nil {
		t.Fatal(err)
	}
	view, err := store.Toggle(ctx, items[0].Link)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Read) != 2 || len(view.Unread) != 1 {
		t.Errorf("Expected both copies read, got %+v", view)
	}

	reopened, err := Open(ctx, "tech", items, NewFileBackend(dir, "tech"), nil)
	if err != nil {
		t.Fatal(err)
	}
	read := reopened.ListRead()
	if len(read) != 2 || read[0].Link != items[0].Link {
		t.Errorf("Expected persisted read flag for repeated link, got %+v", read)
	}
}

func TestStoreToggleUnknownLink(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{state: map[string]bool{}}

	store, err := Open(ctx, "tech", testItems(2), backend, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.Toggle(ctx, "https://unknown")
	if !errors.Is(err, ErrUnknownLink) {
		t.Errorf("Expected ErrUnknownLink, got %v", err)
	}
	if backend.saves != 0 {
		t.Errorf("Expected no save for unknown link, got %d", backend.saves)
	}
}

func TestStoreToggleSaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	items := testItems(2)
	backend := &failingBackend{
		state:   map[string]bool{},
		saveErr: &PersistenceError{Op: "write", Path: "x", Err: errors.New("disk full")},
	}

	store, err := Open(ctx, "tech", items, backend, nil)
	if err != nil {
		t.Fatal(err)
	}

	view, err := store.Toggle(ctx, items[0].Link)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
	if len(view.Read) != 0 || len(store.ListRead()) != 0 {
		t.Error("Expected in-memory state unchanged after failed save")
	}
}
