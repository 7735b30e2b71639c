package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/audio"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/source"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/version"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/ytdlp"
)

// NewExtractorCmd is the root command of the audio_extractor binary: the
// acquisition half of the pipeline without transcription.
func NewExtractorCmd() *cobra.Command {
	app := newAppState()

	cmd := &cobra.Command{
		Use:   "audio_extractor <url-or-file>",
		Short: "Extract audio from a video URL, or copy a local audio file",
		Example: `  audio_extractor https://www.youtube.com/watch?v=dQw4w9WgXcQ -o audio.wav
  audio_extractor https://www.youtube.com/watch?v=dQw4w9WgXcQ -o music.mp3 -f mp3
  audio_extractor https://vimeo.com/123456789 -o podcast.flac -f flac`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.initLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.out = cmd.OutOrStdout()
			return app.runExtract(cmd.Context(), args[0])
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.Flags().StringVarP(&app.audioOutput, "output", "o", app.audioOutput, "Destination path for the audio file")
	bindAudioFormatFlag(cmd, app)
	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *appState) runExtract(ctx context.Context, rawSource string) error {
	format, err := audio.ParseFormat(a.audioFormat)
	if err != nil {
		return err
	}

	src, err := source.Resolve(rawSource)
	if err != nil {
		return err
	}

	if src.Kind == source.KindLocal {
		if err := source.ValidateLocalAudio(src.Value); err != nil {
			return err
		}
		if err := copyAudioFile(src.Value, a.audioOutput); err != nil {
			return err
		}
		a.log().Info("local audio copied", zap.String("source", src.Value), zap.String("destination", a.audioOutput))
		fmt.Fprintf(a.outWriter(), "Audio successfully extracted to: %s\n", a.audioOutput)
		return nil
	}

	preflightFn := a.preflightFn
	if preflightFn == nil {
		preflightFn = a.ensureDownloaderReady
	}
	if err := preflightFn(ctx); err != nil {
		return err
	}

	acquireFn := a.acquireFn
	if acquireFn == nil {
		acquireFn = a.acquireRemoteAudio
	}
	if _, err := acquireFn(ctx, ytdlp.Request{URL: src.Value, Format: format, DestPath: a.audioOutput}); err != nil {
		return err
	}

	fmt.Fprintf(a.outWriter(), "Audio successfully extracted to: %s\n", a.audioOutput)
	return nil
}
