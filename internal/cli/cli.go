package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/assetpipe/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("assetpipe", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
assetpipe - builds, serves and packages a static site's assets.

Usage:
  assetpipe [options] [COMMAND]

Commands:
  default            build everything, serve the output and rebuild on change (no COMMAND)
  rebuild            image, markup, style and script, in that order
  clean              empty the build output directory
  cache-clear, cac   purge the image cache
  archive, zip       zip the project without build output and dependencies

Options:
`)
		flagSet.PrintDefaults()
	}

	rootFlag := flagSet.String("root", ".", "Project root directory.")
	configFlag := flagSet.String("config", "", "Project configuration file. Defaults to assetpipe.hcl or assetpipe.yaml in the root.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	portFlag := flagSet.Int("port", 0, "Dev server port. 0 keeps the configured port.")
	noOpenFlag := flagSet.Bool("no-open", false, "Do not open a browser when the dev server starts.")
	notifyFlag := flagSet.Bool("notify", false, "Show a desktop notification when a task fails.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one command, got %q", flagSet.Args())}
	}
	command := flagSet.Arg(0)
	if command == "help" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Root:       *rootFlag,
		ConfigPath: *configFlag,
		Command:    command,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Port:       *portFlag,
		NoOpen:     *noOpenFlag,
		Notify:     *notifyFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
