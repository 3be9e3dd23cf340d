package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lyricsync/internal/deps"
	"lyricsync/internal/preflight"
	"lyricsync/internal/services"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiGrey  = "\x1b[90m"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "check",
		Short:       "Check external tools, directories and services",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipEnsureDirs": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			terminal := isTerminal(out)

			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}

			statuses := preflight.CheckSystemDeps(cfg)
			binRows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				binRows = append(binRows, []string{s.Name, depState(s, terminal), s.Command, firstNonEmpty(s.Detail, s.Description)})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Status", "Command", "Detail"}, binRows, nil, terminal))

			results := preflight.RunAll(cmd.Context(), cfg)
			checkRows := make([][]string, 0, len(results))
			for _, r := range results {
				checkRows = append(checkRows, []string{r.Name, passState(r.Passed, terminal), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil, terminal))

			missing := len(deps.Missing(statuses))
			failed := len(preflight.Failed(results))
			if missing+failed > 0 {
				return services.Wrap(services.ErrConfiguration, "check", "", fmt.Sprintf("%d tool(s) missing, %d check(s) failed", missing, failed), nil)
			}
			return nil
		},
	}
}

func depState(s deps.Status, colorize bool) string {
	switch {
	case s.Available:
		return paint("OK", ansiGreen, colorize)
	case s.Optional:
		return paint("OPTIONAL", ansiGrey, colorize)
	default:
		return paint("MISSING", ansiRed, colorize)
	}
}

func passState(passed, colorize bool) string {
	if passed {
		return paint("OK", ansiGreen, colorize)
	}
	return paint("FAIL", ansiRed, colorize)
}

func paint(label, color string, colorize bool) string {
	if !colorize {
		return label
	}
	return color + label + ansiReset
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
