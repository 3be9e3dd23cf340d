package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lyricsync/internal/config"
	"lyricsync/internal/deps"
	"lyricsync/internal/pipeline"
	"lyricsync/internal/preflight"
	"lyricsync/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		req         pipeline.Request
		jsonOutput  bool
		skipChecks  bool
		showCues    bool
		transcriptF bool
	)

	cmd := &cobra.Command{
		Use:   "run <song>",
		Short: "Build karaoke subtitles and video for one song",
		Long: "Separates vocals, fetches reference lyrics, transcribes, reconciles and renders.\n" +
			"Artist and title default to the \"Artist - Title.ext\" file name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			songPath, err := config.ExpandPath(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "run", "song path", "Invalid song path", err)
			}
			req.SongPath = songPath
			req.AllowTranscriptOnly = transcriptF

			if !skipChecks {
				if err := requireBinaries(cfg, req); err != nil {
					return err
				}
			}

			runner, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			report, err := runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			terminal := isTerminal(out)
			rows := [][]string{
				{"Run", report.RunID},
				{"Song", strings.TrimSpace(report.Artist + " - " + report.Title)},
				{"Lyrics", lyricsLabel(report)},
				{"Cues", fmt.Sprintf("%d", len(report.Cues))},
				{"Subtitles", report.SubtitlePath},
			}
			if report.PublishedPath != "" {
				rows = append(rows, []string{"Published", report.PublishedPath})
			}
			if report.VideoPath != "" {
				rows = append(rows, []string{"Video", report.VideoPath})
			}
			if report.LogPath != "" {
				rows = append(rows, []string{"Log", report.LogPath})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil, terminal))
			if showCues {
				fmt.Fprintln(out, renderCues(report.Cues, terminal))
			}
			fmt.Fprintln(out, renderDiagnostics(report.Diagnostics, terminal))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Artist, "artist", "", "Artist (default from file name or tags)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Title (default from file name or tags)")
	cmd.Flags().StringVar(&req.Language, "language", "", "Sung language for the recogniser")
	cmd.Flags().StringVar(&req.WorkDir, "workdir", "", "Work directory for stems, transcript and subtitles")
	cmd.Flags().StringVarP(&req.Output, "output", "o", "", "Video output path")
	cmd.Flags().StringVar(&req.TranscriptPath, "transcript", "", "Use an existing recogniser JSON instead of transcribing")
	cmd.Flags().StringVar(&req.LyricsPath, "lyrics", "", "Use a lyrics file instead of looking lyrics up")
	cmd.Flags().BoolVar(&req.SkipVideo, "no-video", false, "Stop after writing subtitles")
	cmd.Flags().BoolVar(&transcriptF, "transcript-only-fallback", false, "Use recogniser text when no lyrics can be found")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the external binary checks")
	cmd.Flags().BoolVar(&showCues, "cues", false, "Print the cue table")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}

// requireBinaries fails fast when a tool the run will execute is missing.
func requireBinaries(cfg *config.Config, req pipeline.Request) error {
	statuses := preflight.CheckSystemDeps(cfg)
	var needed []deps.Status
	for _, s := range deps.Missing(statuses) {
		switch {
		case req.TranscriptPath != "" && (s.Name == "WhisperX" || s.Name == "Demucs"):
			continue
		case req.SkipVideo && s.Name == "FFmpeg":
			continue
		}
		needed = append(needed, s)
	}
	if len(needed) == 0 {
		return nil
	}
	names := make([]string, 0, len(needed))
	for _, s := range needed {
		names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "run", "preflight",
		"missing required tools: "+strings.Join(names, ", "), nil)
}

func lyricsLabel(report pipeline.Report) string {
	if report.TranscriptOnly {
		return "none (transcript text)"
	}
	label := report.Lyrics.Source
	if report.Lyrics.SourceID != "" {
		label += " #" + report.Lyrics.SourceID
	}
	if report.Lyrics.Score > 0 {
		label += fmt.Sprintf(" (score %.2f)", report.Lyrics.Score)
	}
	return label
}
