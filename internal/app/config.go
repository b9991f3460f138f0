package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/assetpipe/modules/archive"
	"github.com/vk/assetpipe/modules/cacheclear"
	"github.com/vk/assetpipe/modules/clean"
	"github.com/vk/assetpipe/modules/image"
	"github.com/vk/assetpipe/modules/markup"
	"github.com/vk/assetpipe/modules/script"
	"github.com/vk/assetpipe/modules/style"
)

// Command names.
const (
	CommandDefault    = "default"
	CommandCacheClear = "cache-clear"
	CommandArchive    = "archive"
	CommandClean      = "clean"
	CommandRebuild    = "rebuild"
)

var commandAliases = map[string]string{
	"":    CommandDefault,
	"cac": CommandCacheClear,
	"zip": CommandArchive,
}

// commandTasks lists, in execution order, the tasks a one-shot command runs.
var commandTasks = map[string][]string{
	CommandCacheClear: {cacheclear.Name},
	CommandArchive:    {archive.Name},
	CommandClean:      {clean.Name},
	CommandRebuild:    {image.Name, markup.Name, style.Name, script.Name},
}

// watchTasks are the groups the default command watches.
var watchTasks = []string{style.Name, markup.Name, script.Name, image.Name}

// Commands returns every command name, without aliases.
func Commands() []string {
	names := []string{CommandDefault}
	for name := range commandTasks {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// CanonicalCommand resolves aliases and rejects unknown commands.
func CanonicalCommand(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := commandAliases[name]; ok {
		return canonical, nil
	}
	if name == CommandDefault {
		return name, nil
	}
	if _, ok := commandTasks[name]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown command %q (want one of %s)", name, strings.Join(Commands(), ", "))
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Root       string // project root
	ConfigPath string // empty: look up the default file names in Root
	Command    string

	LogFormat string
	LogLevel  string

	// Overrides applied on top of the project configuration.
	Port   int
	NoOpen bool
	Notify bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	command, err := CanonicalCommand(cfg.Command)
	if err != nil {
		return nil, err
	}
	cfg.Command = command
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d is out of range", cfg.Port)
	}
	return &cfg, nil
}
