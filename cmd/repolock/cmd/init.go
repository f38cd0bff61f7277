package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default repolock.yaml scaffold.
const initTemplate = `# repolock configuration
version: 1

manifest:
  # Directory holding the manifest XML files, relative to this file.
  root: .
  file: default.xml
  # Where the manifest repository was fetched from. Relative remote fetch
  # URLs in the manifest are resolved against it.
  url: https://github.com/LineageOS/android
  # local_manifests:
  #   - local_manifests/roomservice.xml

lockfile: repolock.lock

# Device metadata seeding dependency discovery. Files ending in .json are
# read as JSON, anything else as YAML.
# devices:
#   files:
#     - devices.json
#   branch: lineage-22.2
#   allow: [bacon]
#   block: []
#   group_prefix: device_

# discovery:
#   dependencies_file: lineage.dependencies
#   branch_remap:
#     lineage-22.2: lineage-22.1
#   keep_missing_branches: false

fetch:
  # nix: nix-prefetch-git, git: native clone into store_dir
  fetcher: nix
  # cli: git ls-remote, native: in-process ref listing
  resolver: cli
  # store_dir: ~/.cache/repolock
  # Release fetched content after pinning and when pruning.
  # cleanup: true
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter repolock.yaml configuration",
	Long: `Creates a repolock.yaml file in the current directory with a commented
template for the manifest location, device metadata and fetch settings.

Use --force to overwrite an existing configuration file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if outPath == "" {
			outPath = defaultConfigName
		}
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Point 'manifest' at your manifest checkout")
		info("  2. Run 'repolock resolve' to check the manifest")
		info("  3. Run 'repolock update' to pin every project")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
