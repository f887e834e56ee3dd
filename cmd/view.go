package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

var viewFormatFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the score report of a previous run",
		Long:  "Render the score report a previous run persisted in the reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseReportFormat(viewFormatFlag)
			if err != nil {
				return err
			}

			ctx := context.Background()

			report, err := workflow.View(ctx, domain.ViewArgs{Reports: m.Path(viper.GetString(outputFlagName))})
			if err != nil {
				return err
			}

			return displayReport(ctx, cmd, report, format)
		},
	}

	cmd.Flags().StringVarP(&viewFormatFlag, formatFlagName, "f", formatTable, "report format: table, json or yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
