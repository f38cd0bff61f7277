package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/store"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the repolock configuration",
	Long: `Displays the repolock version, the configuration chain, the lockfile path
and entry count, the fetch collaborators, and the store directory and size.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("repolock %s\n", version)

		hr, err := loadConfigHierarchical()
		if err != nil {
			fmt.Printf("  config:        %s (%v)\n", resolveConfigPath(), err)
			return nil
		}

		if len(hr.Layers) > 1 {
			fmt.Println("  config chain:")
			for _, layer := range hr.Layers {
				status := "not found"
				if layer.Loaded {
					status = "loaded"
				}
				fmt.Printf("    %-10s %s (%s)\n", string(layer.Level)+":", layer.Path, status)
			}
		} else {
			fmt.Printf("  config:        %s\n", resolveConfigPath())
		}

		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		lp := lockPath(cfg, dir)
		fmt.Printf("  manifest:      %s (%s)\n", cfg.Manifest.File, cfg.Manifest.URL)
		fmt.Printf("  lockfile:      %s%s\n", lp, lockSummary(lp))
		fmt.Printf("  fetcher:       %s\n", cfg.Fetch.Fetcher)
		fmt.Printf("  resolver:      %s\n", cfg.Fetch.Resolver)

		if cfg.Fetch.Fetcher == config.FetcherGit {
			dir := cfg.Fetch.StoreDir
			if dir == "" {
				dir = store.DefaultDir()
			}
			fmt.Printf("  store dir:     %s\n", dir)
			if _, err := os.Stat(dir); err == nil {
				s, err := store.New(dir)
				if err != nil {
					return err
				}
				size, err := s.Size()
				if err != nil {
					return err
				}
				fmt.Printf("  store size:    %s\n", humanSize(size))
			}
		}
		return nil
	},
}

// lockSummary describes the lockfile at path in a few words.
func lockSummary(path string) string {
	ls, completed, err := lock.Load(path, lock.Options{})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return " (not created yet)"
		}
		return fmt.Sprintf(" (%v)", err)
	}
	s := fmt.Sprintf(" (%d projects, %d active)", ls.Len(), len(ls.ActivePaths()))
	if !completed {
		s += ", update incomplete"
	}
	return s
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
