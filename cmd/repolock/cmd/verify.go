package cmd

import (
	"fmt"

	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/lock"
	"github.com/spf13/cobra"
)

var (
	verifyOffline bool
	verifyContent bool
	verifyHash    bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path...]",
	Short: "Verify the lockfile against upstream refs and fetched content",
	Long: `Checks whether the revision of each active project still points to its
pinned commit. With --content, also checks that every pinned content path
exists; with --hash, rehashes it (git fetcher only). Does NOT modify the
lockfile. Exit 0 if everything matches; exit non-zero otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		if verifyHash && cfg.Fetch.Fetcher != config.FetcherGit {
			return fmt.Errorf("--hash needs the git fetcher, content hashes of the %s fetcher cannot be recomputed", cfg.Fetch.Fetcher)
		}

		ls, completed, err := lock.Load(lockPath(cfg, dir), lock.Options{Logger: logger})
		if err != nil {
			return err
		}

		eng := &engine.VerifyEngine{
			CheckContent: verifyContent || verifyHash,
			HashContent:  verifyHash,
			Logger:       logger,
		}
		if !verifyOffline {
			_, eng.Refs, err = collaborators(cfg)
			if err != nil {
				return err
			}
		}

		result, err := eng.Verify(cmd.Context(), ls.Lockfile(completed), args)
		if err != nil {
			return err
		}

		for _, p := range result.UpToDate {
			detail("✓ %s", p)
		}
		for _, d := range result.Changed {
			info("  ✗ %-40s  %s → %s", d.Path, d.Before, d.After)
		}
		for _, p := range result.Missing {
			info("  ✗ %-40s  content missing", p)
		}
		for _, d := range result.Corrupt {
			info("  ✗ %-40s  content hash %s, want %s", d.Path, d.After, d.Before)
		}
		for _, p := range result.Unlocked {
			info("  ? %-40s  not locked", p)
		}
		for _, e := range result.Errors {
			errorf("%s", e)
		}

		if !result.Clean() {
			n := len(result.Changed) + len(result.Missing) + len(result.Corrupt) + len(result.Unlocked) + len(result.Errors)
			return fmt.Errorf("%d project(s) do not match the lockfile", n)
		}

		info("All %d project(s) match the lockfile.", len(result.UpToDate))
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyOffline, "offline", false, "skip the upstream ref check")
	verifyCmd.Flags().BoolVar(&verifyContent, "content", false, "check that pinned content paths exist")
	verifyCmd.Flags().BoolVar(&verifyHash, "hash", false, "rehash pinned content (git fetcher only)")
	rootCmd.AddCommand(verifyCmd)
}
