package cmd

import (
	"fmt"
	"strings"

	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/lock"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusActive bool

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	stateStyles = map[string]lipgloss.Style{
		engine.StateLocked:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		engine.StateUnlocked:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		engine.StateInactive:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		engine.StateMissingBranch: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

var statusCmd = &cobra.Command{
	Use:   "status [path...]",
	Short: "Show the pin and state of every project in the lockfile",
	Long: `Shows project path, pinned commit, categories and state (locked, unlocked,
inactive, missing-branch) for all or named projects. Does not access the network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig()
		if err != nil {
			return err
		}

		ls, completed, err := lock.Load(lockPath(cfg, dir), lock.Options{Logger: logger})
		if err != nil {
			return err
		}

		statuses, err := (&engine.StatusEngine{}).Status(ls.Lockfile(completed), args)
		if err != nil {
			return err
		}
		if statusActive {
			kept := statuses[:0]
			for _, s := range statuses {
				if s.State != engine.StateInactive {
					kept = append(kept, s)
				}
			}
			statuses = kept
		}

		if len(statuses) == 0 {
			info("No projects in lockfile.")
			return nil
		}

		fmt.Print(renderStatus(statuses, useColor()))

		counts := engine.CountStates(statuses)
		info("\n%d project(s): %d locked, %d unlocked, %d inactive, %d missing branch",
			len(statuses), counts[engine.StateLocked], counts[engine.StateUnlocked],
			counts[engine.StateInactive], counts[engine.StateMissingBranch])
		if !completed {
			info("The last update did not finish, run 'repolock update' to resume.")
		}
		return nil
	},
}

// renderStatus formats statuses as an aligned table.
func renderStatus(statuses []engine.ProjectStatus, color bool) string {
	pathWidth := len("PROJECT")
	for _, s := range statuses {
		pathWidth = max(pathWidth, len(s.Path))
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s  %-12s  %-16s  %s", pathWidth, "PROJECT", "PINNED AT", "STATE", "CATEGORIES")
	b.WriteString(paint(headerStyle, header, color) + "\n")
	for _, s := range statuses {
		state := fmt.Sprintf("%-16s", s.State)
		fmt.Fprintf(&b, "%-*s  %-12s  %s  %s\n", pathWidth, s.Path, s.PinnedAt, paint(stateStyles[s.State], state, color), s.Categories)
	}
	return b.String()
}

func init() {
	statusCmd.Flags().BoolVar(&statusActive, "active", false, "hide inactive projects")
	rootCmd.AddCommand(statusCmd)
}
