package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

var mergeFormatFlag string

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge sharded reports into a single report",
		Long: `Merge the shard_* subdirectories of the reports directory, produced by
sharded runs (--shard), into a single manifest, result set and score.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := parseReportFormat(mergeFormatFlag)
			if err != nil {
				return err
			}

			ctx := context.Background()

			report, err := workflow.Merge(ctx, domain.MergeArgs{Reports: m.Path(viper.GetString(outputFlagName))})
			if err != nil {
				return err
			}

			return displayReport(ctx, cmd, report, format)
		},
	}

	cmd.Flags().StringVarP(&mergeFormatFlag, formatFlagName, "f", formatTable, "report format: table, json or yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
