package queue

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddDeduplicates(t *testing.T) {
	dir := t.TempDir()
	p := touch(t, filepath.Join(dir, "a.jpg"))

	q := New()
	if n := q.Add([]string{p, p}); n != 1 {
		t.Errorf("Add same path twice = %d, expected 1", n)
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, expected 1", q.Len())
	}
}

func TestAddDeduplicatesSpellings(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.jpg"))

	// Same file through a dotted path segment.
	variant := filepath.Join(dir, "sub", "..", "a.jpg")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	q := New()
	if n := q.Add([]string{filepath.Join(dir, "a.jpg"), variant}); n != 1 {
		t.Errorf("added = %d, expected 1", n)
	}
}

func TestAddSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	txt := touch(t, filepath.Join(dir, "notes.txt"))
	missing := filepath.Join(dir, "missing.png")

	q := New()
	if n := q.Add([]string{txt, missing, dir}); n != 0 {
		t.Errorf("added = %d, expected 0", n)
	}
	if q.Len() != 0 {
		t.Errorf("queue length = %d, expected 0", q.Len())
	}
}

func TestAddPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.png"))
	b := touch(t, filepath.Join(dir, "b.png"))
	c := touch(t, filepath.Join(dir, "c.png"))

	q := New()
	q.Add([]string{b, a})
	q.Add([]string{c, b}) // b is a duplicate

	got := q.List()
	want := []string{b, a, c}
	if len(got) != len(want) {
		t.Fatalf("list = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("list[%d] = %s, expected %s", i, got[i], want[i])
		}
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.png"))
	b := touch(t, filepath.Join(dir, "b.png"))
	c := touch(t, filepath.Join(dir, "c.png"))

	q := New()
	q.Add([]string{a, b, c})
	q.Remove([]int{1, 99, -3}) // absent indices are a no-op

	got := q.List()
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("after remove: %v", got)
	}

	// Removed entry can be re-added.
	if n := q.Add([]string{b}); n != 1 {
		t.Errorf("re-add removed path = %d, expected 1", n)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.png"))

	q := New()
	q.Add([]string{a})
	q.Clear()
	if q.Len() != 0 {
		t.Error("clear did not empty the queue")
	}
	if n := q.Add([]string{a}); n != 1 {
		t.Errorf("add after clear = %d, expected 1", n)
	}
}
