package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

var images = Filter{Root: "/pics", Extensions: []string{"jpg", "png"}}

func tree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, name := range []string{
		"/pics/b.jpg",
		"/pics/a.PNG",
		"/pics/notes.txt",
		"/pics/.hidden.jpg",
		"/pics/noext",
		"/pics/trip/c.jpg",
		"/pics/trip/deeper/d.png",
		"/pics/.thumbs/e.jpg",
	} {
		if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestScan(t *testing.T) {
	d := New(tree(t), nil)

	got, err := d.Scan(context.Background(), images)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if diff := cmp.Diff([]string{"/pics/a.PNG", "/pics/b.jpg"}, got); diff != "" {
		t.Errorf("flat scan (-want +got):\n%s", diff)
	}

	recursive := images
	recursive.Recursive = true
	got, err = d.Scan(context.Background(), recursive)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"/pics/a.PNG", "/pics/b.jpg", "/pics/trip/c.jpg", "/pics/trip/deeper/d.png"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("recursive scan (-want +got):\n%s", diff)
	}
}

func TestScanMissingRoot(t *testing.T) {
	d := New(afero.NewMemMapFs(), nil)
	if _, err := d.Scan(context.Background(), images); err == nil {
		t.Fatal("Scan of a missing directory succeeded")
	}
}

func TestScanCancelled(t *testing.T) {
	d := New(tree(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Scan(ctx, images); err == nil {
		t.Fatal("cancelled scan succeeded")
	}
}

// gatedFs holds every Open until the gate is closed.
type gatedFs struct {
	afero.Fs
	gate chan struct{}
}

func (g gatedFs) Open(name string) (afero.File, error) {
	<-g.gate
	return g.Fs.Open(name)
}

func TestDiscoverReportsOnlyLatest(t *testing.T) {
	gate := make(chan struct{})
	d := New(gatedFs{Fs: tree(t), gate: gate}, nil)

	var mu sync.Mutex
	var results [][]string
	var flags []bool
	done := func(files []string, user bool) {
		mu.Lock()
		results = append(results, files)
		flags = append(flags, user)
		mu.Unlock()
	}

	d.Discover(context.Background(), images, false, done)
	d.Discover(context.Background(), images, true, done)
	close(gate)
	d.Wait()

	if len(results) != 1 {
		t.Fatalf("got %d results, want only the latest", len(results))
	}
	if !flags[0] {
		t.Error("result reported for the superseded search")
	}
	if diff := cmp.Diff([]string{"/pics/a.PNG", "/pics/b.jpg"}, results[0]); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
}

func TestDiscoverFailureNotReported(t *testing.T) {
	d := New(afero.NewMemMapFs(), nil)
	called := false
	d.Discover(context.Background(), images, false, func([]string, bool) { called = true })
	d.Wait()
	if called {
		t.Fatal("failed search was reported")
	}
}

func TestWatchPolls(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := New(tree(t), clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 4)
	stopped := make(chan error, 1)
	go func() {
		stopped <- d.Watch(ctx, images, time.Minute, func() { changes <- struct{}{} })
	}()

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported after the interval")
	}

	cancel()
	if err := <-stopped; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}

func TestWatchNoticesNewFiles(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClock()
	d := New(afero.NewOsFs(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 4)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = d.Watch(ctx, Filter{Root: dir, Extensions: []string{"jpg"}}, 0, func() { changes <- struct{}{} })
	}()
	<-ready

	// Events are only seen once the watcher is up; keep poking until the
	// debounce timer appears.
	deadline := time.Now().Add(2 * time.Second)
	for i := 0; ; i++ {
		name := filepath.Join(dir, "new"+string(rune('a'+i%26))+".jpg")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		waitCtx, waitCancel := context.WithTimeout(ctx, 50*time.Millisecond)
		err := clock.BlockUntilContext(waitCtx, 1)
		waitCancel()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Skip("file system events not delivered in this environment")
		}
	}
	clock.Advance(DefaultDebounce)

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported after a file was created")
	}
}
