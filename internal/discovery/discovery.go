// Package discovery finds the image files a slideshow draws from and notices
// when they change.
package discovery

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
)

// DefaultDebounce is how long the watcher waits for a burst of file system
// events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Filter selects the files of a search.
type Filter struct {
	Root       string
	Recursive  bool
	Extensions []string // lower case, without the dot
}

func (f Filter) matches(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && slices.Contains(f.Extensions, ext)
}

// Discoverer searches a file system for images. A new search supersedes the
// one in flight; only the latest search reports its result.
type Discoverer struct {
	fs       afero.Fs
	clock    clockwork.Clock
	debounce time.Duration
	log      *log.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func New(fsys afero.Fs, clock clockwork.Clock) *Discoverer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Discoverer{
		fs:       fsys,
		clock:    clock,
		debounce: DefaultDebounce,
		log:      log.WithPrefix("discovery"),
	}
}

// Scan walks the filter's root and returns the matching files, sorted.
// Hidden files and directories are skipped.
func (d *Discoverer) Scan(ctx context.Context, f Filter) ([]string, error) {
	root := filepath.Clean(f.Root)
	info, err := d.fs.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: root, Err: errors.New("not a directory")}
	}

	var files []string
	err = afero.Walk(d.fs, root, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			d.log.Warn("skipping unreadable path", "path", path, "err", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		hidden := strings.HasPrefix(info.Name(), ".")
		if info.IsDir() {
			if hidden || !f.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden && info.Mode().IsRegular() && f.matches(info.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// Discover starts a search in the background and cancels the one in flight.
// done receives the files of the search unless a newer one was started in the
// meantime. Failed searches are logged and not reported.
func (d *Discoverer) Discover(ctx context.Context, f Filter, userRequested bool, done func(files []string, userRequested bool)) {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	d.wg.Go(func() {
		defer cancel()

		start := d.clock.Now()
		files, err := d.Scan(ctx, f)

		d.mu.Lock()
		latest := seq == d.seq
		d.mu.Unlock()

		switch {
		case !latest:
			d.log.Debug("search superseded", "root", f.Root)
		case err != nil:
			d.log.Error("search failed", "root", f.Root, "err", err)
		default:
			d.log.Info("search finished", "root", f.Root, "files", len(files), "took", d.clock.Since(start))
			done(files, userRequested)
		}
	})
}

// Wait blocks until every search started so far has finished.
func (d *Discoverer) Wait() {
	d.wg.Wait()
}

// Stop cancels the search in flight and waits for it.
func (d *Discoverer) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Watch calls onChange every interval, and shortly after files under the
// filter's root are added, removed or renamed. File events are only watched on
// the real file system. Watch returns when ctx is done.
func (d *Discoverer) Watch(ctx context.Context, f Filter, interval time.Duration, onChange func()) error {
	var events <-chan fsnotify.Event
	var errs <-chan error
	var watcher *fsnotify.Watcher

	if _, ok := d.fs.(*afero.OsFs); ok {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			d.log.Warn("file watching unavailable, polling only", "err", err)
		} else {
			defer w.Close()
			watcher = w
			d.watchTree(watcher, f)
			events, errs = watcher.Events, watcher.Errors
		}
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := d.clock.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	var settle clockwork.Timer
	var fire <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-tick:
			d.log.Debug("periodic search")
			onChange()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) && f.Recursive {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					d.watchTree(watcher, Filter{Root: ev.Name, Recursive: true})
				}
			}
			d.log.Debug("file system changed", "event", ev)
			if settle == nil {
				settle = d.clock.NewTimer(d.debounce)
			} else {
				settle.Reset(d.debounce)
			}
			fire = settle.Chan()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.log.Warn("watcher error", "err", err)

		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// watchTree adds f.Root, and its subdirectories when recursive, to w.
func (d *Discoverer) watchTree(w *fsnotify.Watcher, f Filter) {
	if err := w.Add(f.Root); err != nil {
		d.log.Warn("cannot watch directory", "path", f.Root, "err", err)
		return
	}
	if !f.Recursive {
		return
	}
	_ = afero.Walk(d.fs, f.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() || path == f.Root {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			d.log.Warn("cannot watch directory", "path", path, "err", err)
		}
		return nil
	})
}
