// Package state tracks which dataset articles have been read.
//
// The read flags are a flat map from article link to bool. Loading merges
// that map onto the current dataset: links missing from the map are unread,
// and entries for links no longer in the dataset are dropped on the next save.
package state

import (
	"errors"

	"github.com/lysyi3m/mp-comb/app/dataset"
)

const DefaultPerPage = 10

var ErrUnknownLink = errors.New("link not found in dataset")

// PersistenceError reports a failed load or save of the read flags.
type PersistenceError = dataset.PersistenceError

type ReadableItem struct {
	dataset.Item
	Read bool `json:"read"`
}

// Reconcile attaches read flags to items. It never modifies state.
func Reconcile(items []dataset.Item, state map[string]bool) []ReadableItem {
	out := make([]ReadableItem, len(items))
	for i, item := range items {
		out[i] = ReadableItem{Item: item, Read: state[item.Link]}
	}
	return out
}

// Snapshot is the map that gets persisted for items.
func Snapshot(items []ReadableItem) map[string]bool {
	state := make(map[string]bool, len(items))
	for _, item := range items {
		state[item.Link] = item.Read
	}
	return state
}

// Toggle returns a copy of items with the read flag of link flipped. Every
// item sharing the link takes the same new value, since read state is keyed
// by link. The second result is false when no item has that link; items is
// returned as is.
func Toggle(items []ReadableItem, link string) ([]ReadableItem, bool) {
	idx := -1
	for i, item := range items {
		if item.Link == link {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items, false
	}

	read := !items[idx].Read
	out := make([]ReadableItem, len(items))
	copy(out, items)
	for i := idx; i < len(out); i++ {
		if out[i].Link == link {
			out[i].Read = read
		}
	}
	return out, true
}

// View splits items into unread and read, both in dataset order.
type View struct {
	Unread []ReadableItem
	Read   []ReadableItem
}

func NewView(items []ReadableItem) View {
	v := View{Unread: []ReadableItem{}, Read: []ReadableItem{}}
	for _, item := range items {
		if item.Read {
			v.Read = append(v.Read, item)
		} else {
			v.Unread = append(v.Unread, item)
		}
	}
	return v
}

// TotalPages is never less than 1, so an empty list still has a first page.
func TotalPages(n, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if n <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// Paginate returns the 1-based page of items, clamping page into range.
func Paginate(items []ReadableItem, page, perPage int) (pageItems []ReadableItem, current int, totalPages int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	totalPages = TotalPages(len(items), perPage)
	current = min(max(page, 1), totalPages)

	start := (current - 1) * perPage
	end := min(start+perPage, len(items))
	if start >= end {
		return []ReadableItem{}, current, totalPages
	}
	return items[start:end], current, totalPages
}
