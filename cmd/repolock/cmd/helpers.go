package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/source"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const defaultConfigName = "repolock.yaml"

// resolveConfigPath returns --config, or the nearest repolock.yaml above
// the working directory, or repolock.yaml in the working directory.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if found := config.FindProjectConfig("."); found != "" {
		return found
	}
	return defaultConfigName
}

// loadConfigHierarchical loads the config with its system and user layers.
func loadConfigHierarchical() (*config.HierarchicalResult, error) {
	path := resolveConfigPath()
	hr, err := config.LoadHierarchical(config.HierarchicalOptions{ProjectPath: path, NoInherit: noInherit})
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return hr, nil
}

// loadConfig reads and validates the config and returns it with the
// directory its relative paths are resolved against. --lockfile replaces
// the configured lockfile.
func loadConfig() (*config.Config, string, error) {
	hr, err := loadConfigHierarchical()
	if err != nil {
		return nil, "", err
	}
	dir, err := projectRoot()
	if err != nil {
		return nil, "", err
	}
	cfg := hr.Config
	if lockfilePath != "" {
		abs, err := filepath.Abs(lockfilePath)
		if err != nil {
			return nil, "", fmt.Errorf("resolving lockfile path: %w", err)
		}
		cfg.Lockfile = abs
	}
	return cfg, dir, nil
}

// projectRoot returns the directory containing the config file.
func projectRoot() (string, error) {
	abs, err := filepath.Abs(resolveConfigPath())
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	return filepath.Dir(abs), nil
}

// lockPath returns the lockfile path of cfg.
func lockPath(cfg *config.Config, dir string) string {
	if filepath.IsAbs(cfg.Lockfile) {
		return cfg.Lockfile
	}
	return filepath.Join(dir, cfg.Lockfile)
}

// collaborators returns the configured fetcher and ref resolver.
func collaborators(cfg *config.Config) (source.Fetcher, source.RefResolver, error) {
	return engine.Collaborators(cfg.Fetch)
}

// useColor reports whether styled output should be written to stdout.
func useColor() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// paint renders text with style when color is enabled.
func paint(style lipgloss.Style, text string, color bool) string {
	if !color {
		return text
	}
	return style.Render(text)
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
