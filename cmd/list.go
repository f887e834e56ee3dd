package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openshift-eng/mutest/internal/controller"
	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

var listControllerFlag string
var listTypeFlags []string
var listWorkersFlag int

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [path]",
		Short: "List source files and mutation counts",
		Long:  listLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := parseCategories(listTypeFlags)
			if err != nil {
				return err
			}

			// The workers config key is bound to the run command's flag,
			// so read the list flag directly when it was set.
			workers := viper.GetInt(workersConfigKey)
			if cmd.Flags().Changed(workersFlagName) {
				workers = listWorkersFlag
			}

			ctx := context.Background()

			if err := ui.Start(ctx, controller.WithEstimateMode()); err != nil {
				return err
			}

			manifest, genErr := workflow.Estimate(ctx, domain.EstimateArgs{
				Root:       scanRoot(args),
				Reports:    m.Path(viper.GetString(outputFlagName)),
				Controller: listControllerFlag,
				Exclude:    viper.GetStringSlice(excludeConfigKey),
				Categories: categories,
				Workers:    workers,
				Fresh:      viper.GetBool(noCacheFlagName),
			})

			// DisplayEstimation reports genErr to the user and hands it
			// back so the exit code still reflects the failure.
			if err := ui.DisplayEstimation(ctx, manifest, genErr); err != nil {
				ui.Close(ctx)

				return err
			}

			ui.Wait(ctx)
			ui.Close(ctx)

			return nil
		},
	}

	configureListFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func configureListFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&listControllerFlag, controllerFlagName, "", "only count files whose path contains this controller name")
	cmd.Flags().StringArrayVarP(&listTypeFlags, typeFlagName, "t", nil, "mutation category to count (can be repeated; default all)")
	cmd.Flags().IntVarP(&listWorkersFlag, workersFlagName, "w", defaultWorkers, "concurrent file workers during manifest generation")
}
