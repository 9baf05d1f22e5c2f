package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

// Editors often write a file in several steps; changes to the same path
// within this window are reported once.
const debounceWindow = 100 * time.Millisecond

// TextureWatcher reports when a tracked texture file is written or
// re-created on disk.
type TextureWatcher struct {
	mutex   sync.Mutex
	tracked map[string]struct{}
	pending map[string]time.Time

	fsnotify *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewTextureWatcher() (*TextureWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	tw := &TextureWatcher{
		tracked:  make(map[string]struct{}),
		pending:  make(map[string]time.Time),
		fsnotify: fsWatch,
		changes:  make(chan string, 16),
		done:     make(chan struct{}),
	}
	tw.wg.Add(1)
	go tw.start()
	return tw, nil
}

// Track starts watching path. The parent directory is watched so that files
// replaced by rename are still seen.
func (tw *TextureWatcher) Track(path string) error {
	if !IsImage(path) {
		return errors.Newf("not an image file: %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}

	tw.mutex.Lock()
	defer tw.mutex.Unlock()
	if tw.isClosed {
		return errors.New("texture watcher already closed")
	}
	if err := tw.fsnotify.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	tw.tracked[abs] = struct{}{}
	core.LogDebug("Watching texture '%s'.", abs)
	return nil
}

// Untrack stops reporting changes to path. The directory watch stays in place.
func (tw *TextureWatcher) Untrack(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	tw.mutex.Lock()
	delete(tw.tracked, abs)
	tw.mutex.Unlock()
}

// Changes delivers absolute paths of tracked files that changed.
func (tw *TextureWatcher) Changes() <-chan string {
	return tw.changes
}

func (tw *TextureWatcher) Close() error {
	tw.mutex.Lock()
	if tw.isClosed {
		tw.mutex.Unlock()
		return nil
	}
	tw.isClosed = true
	tw.mutex.Unlock()

	close(tw.done)
	tw.wg.Wait()
	return tw.fsnotify.Close()
}

func (tw *TextureWatcher) start() {
	defer tw.wg.Done()
	defer close(tw.changes)

	ticker := time.NewTicker(debounceWindow / 2)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-tw.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				tw.handleFileEvent(e.Name)
			}

		case err, ok := <-tw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("texture watcher: %s", err)

		case now := <-ticker.C:
			tw.flush(now)

		case <-tw.done:
			return
		}
	}
}

func (tw *TextureWatcher) handleFileEvent(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	if s, err := os.Stat(abs); err != nil || s.IsDir() {
		return
	}

	tw.mutex.Lock()
	defer tw.mutex.Unlock()
	if _, ok := tw.tracked[abs]; ok {
		tw.pending[abs] = time.Now()
	}
}

// flush emits every pending path whose last event is older than the debounce window.
func (tw *TextureWatcher) flush(now time.Time) {
	tw.mutex.Lock()
	var ready []string
	for path, seen := range tw.pending {
		if now.Sub(seen) >= debounceWindow {
			ready = append(ready, path)
			delete(tw.pending, path)
		}
	}
	tw.mutex.Unlock()

	for _, path := range ready {
		select {
		case tw.changes <- path:
		case <-tw.done:
			return
		}
	}
}

// IsImage reports whether the extension of path is one the image loader decodes.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	default:
		return false
	}
}
