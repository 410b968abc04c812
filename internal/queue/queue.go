// Package queue holds the ordered, deduplicated list of source images
// waiting for conversion. Identity is the canonicalized absolute path, so
// the same file added under different spellings stays a single entry.
package queue

import (
	"path/filepath"
	"sync"

	"batchconv/internal/format"
)

type entry struct {
	path      string
	canonical string
}

// Queue is safe for concurrent use; handlers add and list while a batch
// snapshot is taken.
type Queue struct {
	mu      sync.Mutex
	entries []entry
	seen    map[string]struct{}
}

func New() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// Canonical resolves a path to its absolute, symlink-normalized form.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// Add appends the given paths, skipping anything that is not a regular
// file with a recognized image extension and any canonical duplicate of
// an entry already queued. Returns the number actually added.
func (q *Queue) Add(paths []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := 0
	for _, p := range paths {
		if !format.IsImageFile(p) {
			continue
		}
		canon, err := Canonical(p)
		if err != nil {
			continue
		}
		if _, dup := q.seen[canon]; dup {
			continue
		}
		q.seen[canon] = struct{}{}
		q.entries = append(q.entries, entry{path: p, canonical: canon})
		added++
	}
	return added
}

// Remove deletes the entries at the given positions. Out-of-range
// indices are ignored.
func (q *Queue) Remove(indices []int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		drop[i] = struct{}{}
	}

	kept := q.entries[:0]
	for i, e := range q.entries {
		if _, ok := drop[i]; ok {
			delete(q.seen, e.canonical)
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.seen = make(map[string]struct{})
}

// List returns the queued paths in insertion order.
func (q *Queue) List() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.path
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
