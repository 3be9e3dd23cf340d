package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lyricsync/internal/cue"
	"lyricsync/internal/pipeline"
	"lyricsync/internal/reconcile"
	"lyricsync/internal/services"
	"lyricsync/internal/subtitles"
	"lyricsync/internal/transcript"
)

type alignOutput struct {
	Cues        []cue.Cue        `json:"cues"`
	Diagnostics []cue.Diagnostic `json:"diagnostics"`
	Duration    float64          `json:"duration"`
	Output      string           `json:"output,omitempty"`
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var (
		transcriptPath string
		lyricsPath     string
		outputPath     string
		formatFlag     string
		artist         string
		title          string
		duration       float64
		jsonOutput     bool
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align a lyrics file against a recogniser transcript",
		Long: "Runs the reconciliation engine alone: reads recogniser JSON and plain lyrics,\n" +
			"writes SRT or ASS subtitles, and prints the diagnostics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			format := cfg.SubtitleFormat()
			if strings.TrimSpace(formatFlag) != "" {
				if format, err = subtitles.ParseFormat(formatFlag); err != nil {
					return services.Wrap(services.ErrValidation, "align", "format", err.Error(), nil)
				}
			} else if ext := strings.TrimPrefix(filepath.Ext(outputPath), "."); ext != "" {
				if parsed, perr := subtitles.ParseFormat(ext); perr == nil {
					format = parsed
				}
			}

			segments, err := transcript.LoadWhisperJSON(transcriptPath)
			if err != nil {
				return services.Wrap(services.ErrValidation, "align", "load transcript", "Unable to read transcript", err)
			}
			reference, err := os.ReadFile(lyricsPath)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "align", "read lyrics", "Unable to read lyrics file", err)
			}

			engine := reconcile.New(pipeline.EngineConfig(cfg), logger)
			result, err := engine.Run(cmd.Context(), reconcile.Input{
				Reference: string(reference),
				Segments:  segments,
				Duration:  duration,
			})
			if err != nil {
				return services.Wrap(services.ErrValidation, "align", "reconcile", "Reconciliation failed", err)
			}
			if err := cue.Validate(result.Cues, result.Duration); err != nil {
				return fmt.Errorf("align: %w", err)
			}

			opts := cfg.ASSOptions(artist, title)
			if outputPath != "" {
				if err := subtitles.WriteFile(outputPath, format, result.Cues, opts); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, alignOutput{
					Cues:        result.Cues,
					Diagnostics: result.Diagnostics,
					Duration:    result.Duration,
					Output:      outputPath,
				})
			}
			if outputPath == "" {
				if err := subtitles.Write(cmd.OutOrStdout(), format, result.Cues, opts); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s\n", len(result.Cues), outputPath)
			}
			if !quiet {
				errOut := cmd.ErrOrStderr()
				fmt.Fprintln(errOut, renderDiagnostics(result.Diagnostics, isTerminal(errOut)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Recogniser JSON (WhisperX or faster-whisper)")
	cmd.Flags().StringVarP(&lyricsPath, "lyrics", "l", "", "Plain-text reference lyrics")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Subtitle output path (default stdout)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Subtitle format: srt or ass (default from config or output extension)")
	cmd.Flags().StringVar(&artist, "artist", "", "Artist for the ASS title card")
	cmd.Flags().StringVar(&title, "title", "", "Title for the ASS title card")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Track duration in seconds (default: derived from the transcript)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print cues and diagnostics as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the diagnostics table")
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("lyrics")
	return cmd
}
