package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/assetpipe/internal/app"
	"github.com/vk/assetpipe/internal/cli"
	"github.com/vk/assetpipe/internal/config"
)

// main is the entrypoint for the assetpipe application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	assetApp, err := app.NewApp(outW, appConfig, app.Loaders())
	if err != nil {
		return asExitError(err)
	}
	return asExitError(assetApp.Run(ctx))
}

// asExitError maps configuration problems to the usage exit code.
func asExitError(err error) error {
	var fatal *config.FatalConfigError
	if errors.As(err, &fatal) {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}
	return err
}
