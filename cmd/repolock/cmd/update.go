package cmd

import (
	"fmt"

	"github.com/bianoble/repolock/internal/engine"
	"github.com/spf13/cobra"
)

var (
	updateDryRun        bool
	updateDropBroken    bool
	updateSkipDiscovery bool
	updateCleanup       bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Reconcile the lockfile with the manifest and pin every project",
	Long: `Reads the manifest tree, marks projects that left it inactive, discovers
the dependencies of every configured device, and pins each active project to
the commit its revision currently points to. The lockfile is written as the
update progresses, so an interrupted update can be resumed by running it again.

With --dry-run the manifest is reconciled in memory only: nothing is fetched
and the lockfile change is printed as a unified diff.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}

		eng := &engine.UpdateEngine{Config: cfg, Dir: dir, Logger: logger}
		if !updateDryRun {
			eng.Fetcher, eng.Refs, err = collaborators(cfg)
			if err != nil {
				return err
			}
		}

		result, err := eng.Update(cmd.Context(), engine.UpdateOptions{
			DryRun:        updateDryRun,
			DropBroken:    updateDropBroken,
			SkipDiscovery: updateSkipDiscovery,
			Cleanup:       updateCleanup,
		})
		if err != nil {
			return err
		}

		if updateDryRun {
			if result.Preview == "" {
				info("Lockfile is up to date.")
			} else {
				fmt.Print(result.Preview)
			}
			info("\nDry run, lockfile not modified.")
			return nil
		}

		for _, p := range result.Diff.Added {
			info("  + %s", p)
		}
		for _, p := range result.Diff.Modified {
			info("  ~ %s", p)
		}
		for _, p := range result.Diff.Removed {
			info("  - %s", p)
		}
		for _, p := range result.Tagged {
			detail("tagged %s by group", p)
		}
		if d := result.Discovery; d != nil {
			detail("visited %d project(s), discovered %d", len(d.Visited), len(d.Discovered))
			for _, p := range d.MissingBranches {
				detail("missing branch: %s", p)
			}
			for _, p := range d.Removed {
				detail("removed: %s", p)
			}
		}
		for _, name := range result.SkippedDevices {
			detail("device %s has no matching branch", name)
		}
		for _, p := range result.Pins.Broken {
			info("  dropped %s (revision not found)", p)
		}

		if result.Diff.Empty() {
			info("Lockfile is up to date.")
			return nil
		}
		info("\nLockfile updated: %d added, %d changed, %d removed.",
			len(result.Diff.Added), len(result.Diff.Modified), len(result.Diff.Removed))
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "show the lockfile change without fetching or writing")
	updateCmd.Flags().BoolVar(&updateDropBroken, "drop-broken", false, "remove projects whose revision no longer exists")
	updateCmd.Flags().BoolVar(&updateSkipDiscovery, "skip-discovery", false, "do not scan device repositories for dependencies")
	updateCmd.Flags().BoolVar(&updateCleanup, "cleanup", false, "release fetched content of each newly pinned project")
	rootCmd.AddCommand(updateCmd)
}
