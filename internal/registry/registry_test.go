package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/task"
)

type fakeModule struct{ name string }

func (m *fakeModule) Register(r *Registry) {
	r.RegisterTask(m.name, func(env *Env) (task.Task, error) {
		return task.New(m.name, func(context.Context) error { return nil }), nil
	})
}

func TestRegistry_BuildAllKeepsOrder(t *testing.T) {
	r := New()
	for _, name := range []string{"style", "image", "markup"} {
		(&fakeModule{name: name}).Register(r)
	}
	env := &Env{Config: config.Defaults("", "")}

	tasks, err := r.BuildAll(env, "image", "markup", "style")

	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, "image", tasks[0].Name())
	require.Equal(t, "markup", tasks[1].Name())
	require.Equal(t, "style", tasks[2].Name())
	require.Equal(t, []string{"image", "markup", "style"}, r.Names())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := New()
	(&fakeModule{name: "clean"}).Register(r)

	require.Panics(t, func() { (&fakeModule{name: "clean"}).Register(r) })
}

func TestRegistry_UnknownAndFailingFactories(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	r.RegisterTask("broken", func(env *Env) (task.Task, error) { return nil, boom })

	_, err := r.Build("missing", &Env{})
	require.ErrorContains(t, err, "no task registered")

	_, err = r.Build("broken", &Env{})
	require.ErrorIs(t, err, boom)
}

func TestRegistry_Validate(t *testing.T) {
	r := New()
	(&fakeModule{name: "clean"}).Register(r)

	require.NoError(t, r.Validate("clean"))
	require.ErrorContains(t, r.Validate("clean", "zip", "archive"), "archive, zip")
}
