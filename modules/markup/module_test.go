package markup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/task"
	"github.com/vk/assetpipe/internal/testutil"
)

const indexKit = `<!-- $title = Demo -->
<!DOCTYPE html>
<html>
<!-- @import "partials/head" -->
<body>
  <h1>  <!-- $title -->  </h1>
</body>
</html>
`

func TestRun_WritesExpandedPage(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, map[string]string{
		"src/modules/index.kit":          indexKit,
		"src/modules/partials/_head.kit": "<head><title><!-- $title --></title></head>",
	})

	// --- Act ---
	err := New(cfg).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	page := testutil.ReadFile(t, cfg.Root, "dist/index.html")
	assert.Contains(t, page, "<head><title>Demo</title></head>")
	assert.Contains(t, page, "<h1>  Demo  </h1>")
	assert.NotContains(t, page, "@import")
}

func TestRun_Minify(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, map[string]string{
		"src/modules/index.kit":          indexKit,
		"src/modules/partials/_head.kit": "<head><title><!-- $title --></title></head>",
	})
	cfg.Markup.Minify = true

	err := New(cfg).Run(ctx)

	require.NoError(t, err)
	page := testutil.ReadFile(t, cfg.Root, "dist/index.html")
	assert.Contains(t, page, "<h1>Demo</h1>")
	assert.NotContains(t, page, "\n  ")
}

func TestRun_TemplateErrorIsCompileError(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, map[string]string{
		"src/modules/index.kit": "<p>\n<!-- $nope -->\n</p>",
	})

	err := New(cfg).Run(ctx)

	var compileErr *task.CompileError
	require.True(t, errors.As(err, &compileErr), "got %v", err)
	assert.Equal(t, 2, compileErr.Line)
	assert.Contains(t, compileErr.Error(), "index.kit:2")
}

func TestRun_MissingEntry(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, nil)

	err := New(cfg).Run(ctx)

	assert.Equal(t, "io", task.Kind(err))
}
