package task

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/testutil"
)

func TestSeries_FailureDoesNotStopSiblings(t *testing.T) {
	// --- Arrange ---
	var order []string
	record := func(name string, err error) Task {
		return New(name, func(ctx context.Context) error {
			order = append(order, name)
			return err
		})
	}
	styleErr := &CompileError{Task: "style", File: "main.scss", Line: 2, Message: "bad"}
	imageErr := &IOError{Task: "image", Op: "read", Path: "a.png", Err: fs.ErrPermission}

	// --- Act ---
	results, err := Series(context.Background(), &Runner{},
		record("image", imageErr),
		record("markup", nil),
		record("style", styleErr),
		record("script", nil),
	)

	// --- Assert ---
	require.Equal(t, []string{"image", "markup", "style", "script"}, order)
	require.Len(t, results, 4)
	require.ErrorIs(t, err, styleErr)
	require.ErrorIs(t, err, imageErr)
	require.NoError(t, results[1].Err)
	require.NoError(t, results[3].Err)
}

func TestSeries_StopsOnFatalConfigError(t *testing.T) {
	// --- Arrange ---
	var order []string
	record := func(name string, err error) Task {
		return New(name, func(ctx context.Context) error {
			order = append(order, name)
			return err
		})
	}
	fatal := &config.FatalConfigError{Field: "style.entry", Err: errors.New("entry does not exist")}

	// --- Act ---
	results, err := Series(context.Background(), &Runner{},
		record("image", nil),
		record("style", fmt.Errorf("style: %w", fatal)),
		record("script", nil),
	)

	// --- Assert ---
	var got *config.FatalConfigError
	require.ErrorAs(t, err, &got)
	require.Equal(t, []string{"image", "style"}, order)
	require.Len(t, results, 2)
}

func TestSeries_StopsWhenCancelledMidway(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ran := false
	first := New("first", func(context.Context) error { cancel(); return nil })
	second := New("second", func(context.Context) error { ran = true; return nil })

	// --- Act ---
	_, err := Series(ctx, &Runner{}, first, second)

	// --- Assert ---
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ran)
}

func TestSeries_WaitsForEachTask(t *testing.T) {
	var finishedFirst bool
	first := New("first", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		finishedFirst = true
		return nil
	})
	second := New("second", func(ctx context.Context) error {
		if !finishedFirst {
			return errors.New("started before first finished")
		}
		return nil
	})

	_, err := Series(context.Background(), &Runner{}, first, second)

	require.NoError(t, err)
}

func TestSeries_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false

	_, err := Series(ctx, &Runner{}, New("x", func(context.Context) error { ran = true; return nil }))

	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ran)
}

func TestRunner_RecoversPanic(t *testing.T) {
	res := (&Runner{}).Run(context.Background(), New("explode", func(context.Context) error {
		panic("kaboom")
	}))

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "kaboom")
	require.Equal(t, "explode", res.Task)
}

func TestRunner_LogsSlowTask(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(buf, nil)))
	r := &Runner{SlowThreshold: 10 * time.Millisecond}

	res := r.Run(ctx, New("slow", func(context.Context) error {
		time.Sleep(60 * time.Millisecond)
		return nil
	}))

	require.NoError(t, res.Err)
	require.Contains(t, buf.String(), "taking longer than expected")
	require.Contains(t, buf.String(), "task=slow")
}

func TestKind(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&CompileError{Task: "style", File: "main.scss", Line: 3, Message: "bad"}, "compile"},
		{fmt.Errorf("wrapped: %w", &IOError{Task: "script", Op: "read", Path: "a.js", Err: fs.ErrNotExist}), "io"},
		{&CacheError{Key: "ab", Err: errors.New("corrupt")}, "cache"},
		{errors.New("other"), "internal"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, Kind(tc.err))
	}
}

func TestCompileError_Message(t *testing.T) {
	err := &CompileError{Task: "style", File: "main.scss", Line: 3, Column: 7, Message: "expected \"{\""}

	require.Equal(t, `style: compile error at main.scss:3:7: expected "{"`, err.Error())
}
