package image

import (
	"bytes"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/imagecache"
	"github.com/vk/assetpipe/internal/testutil"
)

// countingOptimizer records how often codec work is done.
type countingOptimizer struct {
	inner Optimizer
	calls atomic.Int32
}

func (c *countingOptimizer) Optimize(name string, data []byte) ([]byte, string, error) {
	c.calls.Add(1)
	return c.inner.Optimize(name, data)
}

func (c *countingOptimizer) Salt() string { return c.inner.Salt() }

// growingOptimizer always produces a larger result.
type growingOptimizer struct{}

func (growingOptimizer) Optimize(_ string, data []byte) ([]byte, string, error) {
	return append(append([]byte(nil), data...), make([]byte, 64)...), "grow", nil
}

func (growingOptimizer) Salt() string { return "grow" }

// fatPNG encodes a flat image without compression so re-encoding shrinks it.
func fatPNG(t *testing.T) string {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.String()
}

func imageProject(t *testing.T) *config.Config {
	t.Helper()
	return testutil.Project(t, map[string]string{
		"src/img/logo.png":      fatPNG(t),
		"src/img/icons/dot.svg": `<svg xmlns="http://www.w3.org/2000/svg"   width="10" height="10">  <!-- dot -->  <circle cx="5" cy="5" r="4" />  </svg>`,
		"src/img/notes.txt":     "not an image",
	})
}

func TestOptimize_CompressesAndMirrorsLayout(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	cfg := imageProject(t)
	tk := New(cfg, imagecache.NewMemoryStore(), NewCodecs(85))

	// --- Act ---
	stats, err := tk.Optimize(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 2, Compressed: 2, BytesSaved: stats.BytesSaved}, stats)
	assert.Positive(t, stats.BytesSaved)

	original, err := os.Stat(cfg.Path("src/img/logo.png"))
	require.NoError(t, err)
	optimized, err := os.Stat(cfg.Path("dist/img/logo.png"))
	require.NoError(t, err)
	assert.Less(t, optimized.Size(), original.Size())

	svg := testutil.ReadFile(t, cfg.Root, "dist/img/icons/dot.svg")
	assert.NotContains(t, svg, "<!--")
	assert.NoFileExists(t, cfg.Path("dist/img/notes.txt"))
}

func TestOptimize_SecondRunIsServedFromCache(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	cfg := imageProject(t)
	opt := &countingOptimizer{inner: NewCodecs(85)}
	tk := New(cfg, imagecache.NewFileStore(cfg.Path(cfg.Cache.Dir)), opt)

	_, err := tk.Optimize(ctx)
	require.NoError(t, err)
	first := testutil.ReadFile(t, cfg.Root, "dist/img/logo.png")
	require.EqualValues(t, 2, opt.calls.Load())

	// --- Act ---
	// A fresh task over the same cache directory models a later process.
	again := New(cfg, imagecache.NewFileStore(cfg.Path(cfg.Cache.Dir)), opt)
	stats, err := again.Optimize(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.EqualValues(t, 2, opt.calls.Load(), "cache hits must not run codecs")
	assert.Equal(t, 2, stats.CacheHits)
	assert.Equal(t, 0, stats.Compressed)
	assert.Equal(t, first, testutil.ReadFile(t, cfg.Root, "dist/img/logo.png"))
}

func TestOptimize_ClearedCacheRecompresses(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := imageProject(t)
	store := imagecache.NewMemoryStore()
	opt := &countingOptimizer{inner: NewCodecs(85)}
	tk := New(cfg, store, opt)
	_, err := tk.Optimize(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Clear())
	stats, err := tk.Optimize(ctx)

	require.NoError(t, err)
	assert.EqualValues(t, 4, opt.calls.Load())
	assert.Equal(t, 2, stats.Compressed)
	assert.Equal(t, 2, store.Len())
}

func TestOptimize_KeepsOriginalWhenNotSmaller(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := imageProject(t)
	tk := New(cfg, imagecache.NewMemoryStore(), growingOptimizer{})

	stats, err := tk.Optimize(ctx)

	require.NoError(t, err)
	assert.Zero(t, stats.BytesSaved)
	assert.Equal(t,
		testutil.ReadFile(t, cfg.Root, "src/img/logo.png"),
		testutil.ReadFile(t, cfg.Root, "dist/img/logo.png"),
	)
}

func TestOptimize_BrokenImageDoesNotStopOthers(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := imageProject(t)
	testutil.WriteFiles(t, cfg.Root, map[string]string{"src/img/broken.png": "definitely not a png"})
	tk := New(cfg, imagecache.NewMemoryStore(), NewCodecs(85))

	stats, err := tk.Optimize(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 images failed")
	assert.Contains(t, err.Error(), filepath.Join("src", "img", "broken.png"))
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Compressed)
	assert.FileExists(t, cfg.Path("dist/img/logo.png"))
}
