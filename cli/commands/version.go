package commands

import (
	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/cli/internal/update"
	"github.com/satishbabariya/coconutdal/cli/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand(opts *globalOptions) *cobra.Command {
	var latest string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if err := opts.renderer(cmd.OutOrStdout()).object(info, info.Text()); err != nil {
				return err
			}
			if latest == "" {
				return nil
			}
			status, err := update.Check(info.Version, latest)
			if err != nil {
				return err
			}
			if status.Available {
				ui.PrintWarning("A new version is available: %s (current %s)", status.Latest, status.Current)
				ui.PrintInfo("Download: %s", update.DownloadURL(status.Latest))
			} else {
				ui.PrintSuccess("coconut is up to date")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&latest, "check", "", "Compare against the given release version")
	return cmd
}
