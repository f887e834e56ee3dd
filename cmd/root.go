// Package cmd provides the root command and CLI setup for mutest.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openshift-eng/mutest/internal/adapter"
	"github.com/openshift-eng/mutest/internal/controller"
	"github.com/openshift-eng/mutest/internal/domain"
	m "github.com/openshift-eng/mutest/internal/model"
)

// Exit codes, so automation can tell failure classes apart without
// parsing stderr.
const (
	exitFailure           = 1
	exitNoEligibleSources = 2
	exitGenerationFailure = 3
	exitRevertFailure     = 4
)

var fsAdapter adapter.SourceFSAdapter
var goFileAdapter adapter.GoFileAdapter
var ui controller.UI
var workflow domain.Workflow

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// noCacheFlag disables the generation cache and resume when set.
var noCacheFlag bool

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

// verboseFlag switches the log file to debug level.
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	workflow = domain.NewWorkflow(fsAdapter, goFileAdapter, ui)
}

const pathPatternsHelp = `The scan is always recursive, so Go-style "./..." suffixes are accepted:
  - mutest run              scan the current directory
  - mutest run ./internal   scan one subtree
  - mutest run ./...        same as the current directory`

const rootLongDescription = `Mutest is a mutation testing tool for Go operators and controllers. It
injects small, deliberate bugs (mutations) into controller code, runs the
test suite against each one, and reports the mutants your tests failed to
catch.

` + pathPatternsHelp

const runLongDescription = `Run mutation testing for the given path (default: current directory).

Generates the mutation manifest, verifies the baseline suite passes on the
unmutated tree, then applies each mutant in place, runs the suite, and
reverts before moving on. The tree is byte-identical when the run ends.

` + pathPatternsHelp

const listLongDescription = `List source files and the number of applicable mutations without running
any tests. Writes the manifest to the reports directory.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

// newRootCmd builds a fresh, fully configured root command. Tests use it so
// flag state never leaks between cases.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "mutest",
		Short:        "Go mutation testing for operators and controllers",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for mutation testing reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVar(&noCacheFlag, noCacheFlagName, viper.GetBool(noCacheFlagName), "disable the generation cache and resume (re-test everything)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noCacheFlagName), noCacheFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, m.ErrRevertFailure) {
			fmt.Fprintln(os.Stderr, "The source tree may still contain an applied mutation. Verify it and restore from version control before running again.")
		}

		os.Exit(exitCode(err))
	}
}

// exitCode maps a command failure onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, m.ErrRevertFailure):
		return exitRevertFailure
	case errors.Is(err, m.ErrGenerationFailure):
		return exitGenerationFailure
	case errors.Is(err, m.ErrNoEligibleSources):
		return exitNoEligibleSources
	default:
		return exitFailure
	}
}

// scanRoot resolves the optional positional argument to the directory to
// scan. The walk is always recursive, so a trailing "/..." is redundant
// and stripped.
func scanRoot(args []string) m.Path {
	if len(args) == 0 {
		return m.Path(".")
	}

	root := strings.TrimSuffix(args[0], "...")
	root = strings.TrimSuffix(root, "/")

	if root == "" {
		root = "."
	}

	return m.Path(root)
}
