package cmd

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/version"
)

const repositorySlug = "aab18011/ffmpeg-v4l2-connector"

// CreateUpdateCmd builds the update subcommand, which replaces the
// running binary with the latest GitHub release.
func CreateUpdateCmd() *cobra.Command {
	var checkOnly bool

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update to the latest released version",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
			if err != nil {
				return fmt.Errorf("create GitHub source: %w", err)
			}

			updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
			if err != nil {
				return fmt.Errorf("create updater: %w", err)
			}

			repo := selfupdate.ParseSlug(repositorySlug)
			release, found, err := updater.DetectLatest(cmd.Context(), repo)
			if err != nil {
				return fmt.Errorf("detect latest release: %w", err)
			}
			if !found || release.LessOrEqual(version.String()) {
				fmt.Printf("current version %s is up to date\n", version.String())
				return nil
			}

			fmt.Printf("latest version: %s (current: %s)\n", release.Version(), version.String())
			if checkOnly {
				return nil
			}

			exe, err := selfupdate.ExecutablePath()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			if err := updater.UpdateTo(cmd.Context(), release, exe); err != nil {
				return fmt.Errorf("update binary: %w", err)
			}

			fmt.Printf("updated to %s\n", release.Version())
			return nil
		},
	}

	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for a newer release, do not install")

	return updateCmd
}
