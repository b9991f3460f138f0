package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/task"
	"github.com/vk/assetpipe/internal/testutil"
)

type countingReloader struct{ n atomic.Int32 }

func (r *countingReloader) Reload(context.Context) { r.n.Add(1) }

type recordingReporter struct {
	mu      sync.Mutex
	results []task.Result
}

func (r *recordingReporter) Report(_ context.Context, res task.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func nopTask(name string) task.Task {
	return task.New(name, func(context.Context) error { return nil })
}

// start runs o in the background and stops it when the test ends.
func start(t *testing.T, ctx context.Context, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("orchestrator did not stop")
		}
	})
	select {
	case <-o.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not start")
	}
}

func TestOrchestrator_ChangeRunsOnlyMatchingGroup(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"src/modules/main.scss": "body{}",
		"src/modules/index.kit": "<p>",
		"src/js/project.js":     "1;",
		"src/js/alert.js":       "2;",
		"src/img/logo.svg":      "<svg/>",
	})
	reloader := &countingReloader{}
	o := New(root, []Group{
		{Name: "style", Patterns: []string{"src/modules/**/*.scss"}, Task: nopTask("style")},
		{Name: "markup", Patterns: []string{"src/modules/**/*.kit"}, Task: nopTask("markup")},
		{Name: "script", Patterns: []string{"src/js/project.js", "src/js/alert.js"}, Task: nopTask("script")},
		{Name: "image", Patterns: []string{"src/img/**/*.{png,svg}"}, Task: nopTask("image")},
	}, WithReloader(reloader), WithDebounce(50*time.Millisecond))

	start(t, ctx, o)
	require.Eventually(t, func() bool { return reloader.n.Load() == 4 }, 5*time.Second, 10*time.Millisecond, "each group fires once on start")

	// --- Act ---
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "js", "alert.js"), []byte("3;"), 0644))

	// --- Assert ---
	require.Eventually(t, func() bool { return o.Runs("script") == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 2, o.Runs("script"), "one change, one run")
	assert.Equal(t, 1, o.Runs("style"))
	assert.Equal(t, 1, o.Runs("markup"))
	assert.Equal(t, 1, o.Runs("image"))
	assert.EqualValues(t, 5, reloader.n.Load(), "one reload per run")

	// --- Act ---
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "img", "logo.svg"), []byte("<svg></svg>"), 0644))

	// --- Assert ---
	require.Eventually(t, func() bool { return o.Runs("image") == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 2, o.Runs("image"))
	assert.Equal(t, 1, o.Runs("style"), "image change must not rebuild styles")
	assert.Equal(t, 1, o.Runs("markup"), "image change must not rebuild markup")
	assert.Equal(t, 2, o.Runs("script"), "image change must not rebuild scripts")
	assert.EqualValues(t, 6, reloader.n.Load())
}

func TestOrchestrator_WatchesOnlyPatternTrees(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"src/js/project.js":              "1;",
		"node_modules/left-pad/index.js": "x",
		"dist/css/main.min.css":          "body{}",
	})
	o := New(root, []Group{
		{Name: "image", Patterns: []string{"src/img/**/*.png"}, Task: nopTask("image")},
		{Name: "script", Patterns: []string{"src/js/*.js"}, Task: nopTask("script")},
	})
	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer fsw.Close()

	// --- Act ---
	for _, dir := range o.watchRoots() {
		require.NoError(t, o.addRecursive(fsw, dir))
	}

	// --- Assert ---
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "src"),
		filepath.Join(root, "src", "js"),
	}, fsw.WatchList())
}

func TestOrchestrator_MissingBaseIsPickedUpWhenCreated(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"dist/index.html": "<p>"})
	o := New(root, []Group{
		{Name: "image", Patterns: []string{"src/img/**/*.png"}, Task: nopTask("image")},
	}, WithDebounce(20*time.Millisecond))
	start(t, ctx, o)
	require.Eventually(t, func() bool { return o.Runs("image") == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "img"), 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "img", "a.png"), []byte("y"), 0644))

	require.Eventually(t, func() bool { return o.Runs("image") >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_NewDirectoryIsWatched(t *testing.T) {
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{"src/img/logo.png": "x"})
	o := New(root, []Group{
		{Name: "image", Patterns: []string{"src/img/**/*.png"}, Task: nopTask("image")},
	}, WithDebounce(20*time.Millisecond))
	start(t, ctx, o)
	require.Eventually(t, func() bool { return o.Runs("image") == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "img", "icons"), 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "img", "icons", "a.png"), []byte("y"), 0644))

	require.Eventually(t, func() bool { return o.Runs("image") >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_ChangesDuringRunCoalesce(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	var calls atomic.Int32
	slow := task.New("script", func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			started <- struct{}{}
			<-release
		}
		return nil
	})
	o := New(t.TempDir(), []Group{
		{Name: "script", Patterns: []string{"src/js/*.js"}, Task: slow},
	}, WithDebounce(5*time.Millisecond))
	start(t, ctx, o)
	<-started

	// --- Act ---
	for i := 0; i < 5; i++ {
		o.Notify(ctx, "src/js/project.js")
		time.Sleep(20 * time.Millisecond)
	}
	close(release)

	// --- Assert ---
	require.Eventually(t, func() bool { return o.Runs("script") == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, o.Runs("script"), "changes during a run schedule exactly one follow-up")
}

func TestOrchestrator_FailedRunIsReportedAndStillReloads(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reloader := &countingReloader{}
	reporter := &recordingReporter{}
	failing := task.New("style", func(context.Context) error {
		return &task.CompileError{Task: "style", Message: "boom"}
	})
	o := New(t.TempDir(), []Group{
		{Name: "style", Patterns: []string{"src/**/*.scss"}, Task: failing},
	}, WithReloader(reloader), WithReporter(reporter), WithDebounce(5*time.Millisecond))
	start(t, ctx, o)

	require.Eventually(t, func() bool { return reloader.n.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	o.Notify(ctx, "src/modules/main.scss")

	require.Eventually(t, func() bool { return reloader.n.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, reporter.failures())
	var compileErr *task.CompileError
	assert.True(t, errors.As(reporter.results[0].Err, &compileErr))
}

func TestOrchestrator_IgnoresUnmatchedPaths(t *testing.T) {
	ctx, _ := testutil.Context(t)
	o := New(t.TempDir(), []Group{
		{Name: "style", Patterns: []string{"src/modules/**/*.scss", "!src/modules/vendor/**"}, Task: nopTask("style")},
	}, WithDebounce(5*time.Millisecond))
	start(t, ctx, o)
	require.Eventually(t, func() bool { return o.Runs("style") == 1 }, 5*time.Second, 10*time.Millisecond)

	o.Notify(ctx, "src/js/project.js")
	o.Notify(ctx, "src/modules/vendor/reset.scss")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, o.Runs("style"))
}
