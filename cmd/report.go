package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "github.com/openshift-eng/mutest/internal/model"
)

// Report formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// parseReportFormat validates a --format value. It runs before any
// long-running work so a typo fails fast instead of after the suite.
func parseReportFormat(value string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(value))
	if format == "" {
		return formatTable, nil
	}

	switch format {
	case formatTable, formatJSON, formatYAML:
		return format, nil
	}

	return "", fmt.Errorf("unknown report format %q (want %s, %s or %s)", value, formatTable, formatJSON, formatYAML)
}

// displayReport renders the score report and releases the UI. Table output
// goes through the active UI, so a TTY gets the interactive results
// browser; json and yaml bypass it and write to the command's stdout.
func displayReport(ctx context.Context, cmd *cobra.Command, report m.ScoreReport, format string) error {
	if format == formatTable {
		if err := ui.DisplayMutationScore(ctx, report); err != nil {
			return err
		}

		ui.Wait(ctx)
		ui.Close(ctx)

		return nil
	}

	ui.Close(ctx)

	out, err := marshalReport(report, format)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))

	return err
}

func marshalReport(report m.ScoreReport, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report as json: %w", err)
		}

		return append(out, '\n'), nil
	case formatYAML:
		out, err := yaml.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("encode report as yaml: %w", err)
		}

		return out, nil
	}

	return nil, fmt.Errorf("unknown report format %q", format)
}
