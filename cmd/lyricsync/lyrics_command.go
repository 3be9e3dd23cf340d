package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lyricsync/internal/fileutil"
	"lyricsync/internal/pipeline"
	"lyricsync/internal/services"
)

func newLyricsCommand(ctx *commandContext) *cobra.Command {
	var (
		refresh    bool
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "lyrics <artist> <title>",
		Short: "Fetch reference lyrics into the cache",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runner, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			artist, title := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			ref, err := runner.Lyrics().Fetch(cmd.Context(), artist, title, refresh)
			if err != nil {
				return err
			}

			if outputPath != "" {
				if err := fileutil.WriteFileAtomic(outputPath, []byte(strings.TrimSpace(ref.Text)+"\n"), 0o644); err != nil {
					return services.Wrap(services.ErrConfiguration, "lyrics", "write", "Unable to write lyrics file", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote lyrics from %s to %s\n", ref.Source, outputPath)
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Source: %s\n", ref.Source)
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(ref.Text))
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore and replace the cached copy")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write lyrics to a file instead of stdout")
	return cmd
}
