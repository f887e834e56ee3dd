package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openshift-eng/mutest/internal/controller"
	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

var runControllerFlag string
var runTypeFlags []string
var runTestCommandFlag string
var runMutationTimeoutFlag int64
var runBaselineTimeoutFlag int64
var runWorkersFlag int
var runShardFlag string
var runFormatFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run mutation testing",
		Long:  runLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseReportFormat(runFormatFlag)
			if err != nil {
				return err
			}

			categories, err := parseCategories(runTypeFlags)
			if err != nil {
				return err
			}

			shardIndex, shardTotal, err := parseShardFlag(runShardFlag)
			if err != nil {
				return err
			}

			// SIGINT/SIGTERM cancel the run; the orchestrator finishes
			// the current mutant and reverts before it stops. The UI's
			// quit key shares the same cancel path.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			if err := ui.Start(ctx, controller.WithTestMode(), controller.WithCancel(cancel)); err != nil {
				return err
			}

			report, err := workflow.Run(ctx, domain.RunArgs{
				Root:            scanRoot(args),
				Reports:         m.Path(viper.GetString(outputFlagName)),
				Controller:      runControllerFlag,
				Exclude:         viper.GetStringSlice(excludeConfigKey),
				Categories:      categories,
				TestCommand:     viper.GetString(testCommandConfigKey),
				MutationTimeout: time.Duration(viper.GetInt64(mutationTimeoutKey)) * time.Second,
				BaselineTimeout: time.Duration(viper.GetInt64(baselineTimeoutKey)) * time.Second,
				Workers:         viper.GetInt(workersConfigKey),
				ShardIndex:      shardIndex,
				ShardTotal:      shardTotal,
				Fresh:           viper.GetBool(noCacheFlagName),
			})
			if err != nil {
				// Release the terminal before cobra prints the error.
				ui.Close(context.Background())

				return err
			}

			return displayReport(ctx, cmd, report, format)
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runControllerFlag, controllerFlagName, "", "only mutate files whose path contains this controller name")
	cmd.Flags().StringArrayVarP(&runTypeFlags, typeFlagName, "t", nil, "mutation category to run (can be repeated; default all)")

	cmd.Flags().StringVar(&runTestCommandFlag, testCommandFlagName, defaultTestCommand, "test suite command run against each mutant")
	bindFlagToConfig(cmd.Flags().Lookup(testCommandFlagName), testCommandConfigKey)

	cmd.Flags().Int64Var(&runMutationTimeoutFlag, mutationTimeoutFlagName, int64(defaultMutationTimeout.Seconds()), "per-mutant test timeout in seconds")
	bindFlagToConfig(cmd.Flags().Lookup(mutationTimeoutFlagName), mutationTimeoutKey)

	cmd.Flags().Int64Var(&runBaselineTimeoutFlag, baselineTimeoutFlagName, int64(defaultBaselineTimeout.Seconds()), "baseline suite timeout in seconds")
	bindFlagToConfig(cmd.Flags().Lookup(baselineTimeoutFlagName), baselineTimeoutKey)

	cmd.Flags().IntVarP(&runWorkersFlag, workersFlagName, "w", defaultWorkers, "concurrent file workers during manifest generation")
	bindFlagToConfig(cmd.Flags().Lookup(workersFlagName), workersConfigKey)

	cmd.Flags().StringVarP(&runShardFlag, shardFlagName, "s", "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
	cmd.Flags().StringVarP(&runFormatFlag, formatFlagName, "f", formatTable, "report format: table, json or yaml")
}

func parseShardFlag(shard string) (int, int, error) {
	if shard == "" {
		return 0, 1, nil
	}

	var index, total int

	if _, err := fmt.Sscanf(shard, "%d/%d", &index, &total); err != nil {
		return 0, 0, fmt.Errorf("invalid shard %q, expected INDEX/TOTAL (e.g., 0/3)", shard)
	}

	if total <= 0 || index < 0 || index >= total {
		return 0, 0, fmt.Errorf("shard index %d out of range for %d shards", index, total)
	}

	return index, total, nil
}

// parseCategories maps repeatable --type values onto known categories.
func parseCategories(values []string) ([]m.Category, error) {
	categories := make([]m.Category, 0, len(values))

	for _, value := range values {
		category, err := m.ParseCategory(value)
		if err != nil {
			return nil, err
		}

		categories = append(categories, category)
	}

	return categories, nil
}
