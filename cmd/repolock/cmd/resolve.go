package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/manifest"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var resolveFormat string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved manifest",
	Long: `Reads the manifest tree with its includes and local manifests, resolves
remotes and projects, and prints the result as JSON or YAML. Nothing is fetched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := engine.ResolveManifest(dir, cfg.Manifest)
		if err != nil {
			return err
		}
		return writeManifest(cmd.OutOrStdout(), m, resolveFormat)
	},
}

func writeManifest(w io.Writer, m *manifest.Manifest, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format '%s', must be one of: json, yaml", format)
	}
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "json", "output format (json or yaml)")
	rootCmd.AddCommand(resolveCmd)
}
