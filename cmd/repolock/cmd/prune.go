package cmd

import (
	"fmt"

	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/source"
	"github.com/spf13/cobra"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove inactive projects from the lockfile",
	Long: `Removes lockfile entries that are no longer in the manifest or were not
rediscovered by the last update. With 'fetch.cleanup: true' the fetched content
of removed projects is released as well, unless another entry still uses it.
Use --dry-run to see what would be removed without acting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}

		eng := &engine.PruneEngine{Logger: logger}
		if cfg.Fetch.Cleanup {
			f, _, err := collaborators(cfg)
			if err != nil {
				return err
			}
			if c, ok := f.(source.Cleaner); ok {
				eng.Cleaner = c
			}
		}

		result, err := eng.Prune(cmd.Context(), lockPath(cfg, dir), engine.PruneOptions{DryRun: pruneDryRun})
		if err != nil {
			return err
		}

		if pruneDryRun {
			info("Dry run, lockfile not modified.")
		}

		if len(result.Removed) == 0 {
			info("Nothing to prune.")
			return nil
		}

		for _, p := range result.Removed {
			info("  removed  %s", p)
		}
		for _, p := range result.Cleaned {
			detail("released %s", p)
		}
		info("\nPruned %d project(s).", len(result.Removed))

		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				errorf("%s", e)
			}
			return fmt.Errorf("%d error(s) during prune", len(result.Errors))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "show what would be removed without acting")
	rootCmd.AddCommand(pruneCmd)
}
