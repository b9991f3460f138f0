package style

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/bep/golibsass/libsass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
	"github.com/vk/assetpipe/internal/testutil"
)

const (
	mainSCSS = `@import "vars";

body {
  color: $primary;
  .title { margin: $gap * 2; }
}
`
	varsSCSS = "$primary: #336699;\n$gap: 4px;\n"
)

func TestRun_MatchesCompilerOutput(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, map[string]string{
		"src/modules/main.scss":  mainSCSS,
		"src/modules/_vars.scss": varsSCSS,
	})
	entry := cfg.Path(cfg.Styles.Entry)

	transpiler, err := libsass.New(libsass.Options{
		IncludePaths: []string{filepath.Dir(entry)},
		OutputStyle:  libsass.ParseOutputStyle("expanded"),
		SourceMapOptions: libsass.SourceMapOptions{
			Filename:   "main.min.css.map",
			OutputPath: "main.min.css",
			InputPath:  entry,
			Contents:   true,
			OmitURL:    true,
		},
	})
	require.NoError(t, err)
	want, err := transpiler.Execute(mainSCSS)
	require.NoError(t, err)

	// --- Act ---
	err = New(cfg).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	css := testutil.ReadFile(t, cfg.Root, "dist/css/main.min.css")
	assert.Equal(t, want.CSS+"\n/*# sourceMappingURL=main.min.css.map */\n", css)
	assert.Contains(t, css, "color: #336699;")
	assert.Contains(t, css, "margin: 8px;")
	assert.Equal(t, want.SourceMapContent, testutil.ReadFile(t, cfg.Root, "dist/css/main.min.css.map"))
}

func TestRun_CompileErrorHasLocation(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, map[string]string{
		"src/modules/main.scss": "body {\n  color: $undefined;\n}\n",
	})

	err := New(cfg).Run(ctx)

	var compileErr *task.CompileError
	require.True(t, errors.As(err, &compileErr), "got %v", err)
	assert.Equal(t, Name, compileErr.Task)
	assert.Equal(t, 2, compileErr.Line)
	assert.Contains(t, compileErr.Message, "Undefined variable")
	assert.Equal(t, "compile", task.Kind(err))
}

func TestRun_MissingEntry(t *testing.T) {
	ctx, _ := testutil.Context(t)
	cfg := testutil.Project(t, nil)

	err := New(cfg).Run(ctx)

	var ioErr *task.IOError
	require.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, "read", ioErr.Op)
}

func TestModule_Register(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	tk, err := r.Build(Name, &registry.Env{Config: testutil.Project(t, nil)})

	require.NoError(t, err)
	assert.Equal(t, Name, tk.Name())
}
