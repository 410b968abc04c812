// Package watcher feeds a hot folder into the conversion queue: image
// files appearing under the intake directory are enqueued once their
// size has settled.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"batchconv/internal/format"
	"batchconv/internal/queue"
)

type Watcher struct {
	q     *queue.Queue
	w     *fsnotify.Watcher
	root  string
	delay time.Duration
}

// New creates a recursive watcher over root that enqueues recognized
// image files into q.
func New(root string, delay time.Duration, q *queue.Queue) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{q: q, w: w, root: root, delay: delay}, nil
}

// Start registers the intake tree and processes events until ctx is
// cancelled.
func (wr *Watcher) Start(ctx context.Context) error {
	if err := wr.registerAll(wr.root); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wr.w.Events:
			if !ok {
				return nil
			}
			wr.handleEvent(ev)
		case err, ok := <-wr.w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func (wr *Watcher) Close() error { return wr.w.Close() }

func (wr *Watcher) registerAll(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = wr.w.Add(path)
		}
		return nil
	})
}

func (wr *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = wr.registerAll(ev.Name)
			return
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !format.IsInputExt(ev.Name) {
		return
	}
	go func(path string) {
		if err := waitFileStable(path, wr.delay); err != nil {
			return
		}
		if added := wr.q.Add([]string{path}); added > 0 {
			log.Printf("intake: queued %s", path)
		}
	}(ev.Name)
}

// waitFileStable waits for two consecutive identical sizes separated by
// delay, so half-written drops are not picked up.
func waitFileStable(path string, delay time.Duration) error {
	var lastSize int64 = -1
	for i := 0; i < 5; i++ {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if fi.Size() == lastSize {
			return nil
		}
		lastSize = fi.Size()
		time.Sleep(delay)
	}
	return nil
}
