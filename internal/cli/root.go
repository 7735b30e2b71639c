package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/audio"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/download"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/logging"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/platform"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/source"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/transcript"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/version"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/whisper"
	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/ytdlp"
)

// Input below this RMS level is probably dead air; worth a warning before
// spending minutes on inference.
const nearSilenceDBFS = -65

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	model        string
	modelDir     string
	language     string
	autoDownload bool
	audioFormat  string
	audioOutput  string
	output       string

	runID  string
	logger *zap.Logger
	out    io.Writer

	preflightFn  func(ctx context.Context) error
	acquireFn    func(ctx context.Context, req ytdlp.Request) (*ytdlp.Artifact, error)
	transcribeFn func(ctx context.Context, audioPath string) ([]whisper.Segment, error)
	writeFn      func(segments []whisper.Segment, path string) error
}

func newAppState() *appState {
	app := &appState{
		model:        whisper.DefaultModel,
		language:     "auto",
		autoDownload: true,
		audioFormat:  audio.FormatWAV.String(),
		out:          os.Stdout,
	}
	app.preflightFn = app.ensureDownloaderReady
	app.acquireFn = app.acquireRemoteAudio
	app.transcribeFn = app.transcribeAudio
	app.writeFn = app.writeTranscript
	return app
}

func NewRootCmd() *cobra.Command {
	app := newAppState()

	cmd := &cobra.Command{
		Use:   "transcriber <url-or-file>",
		Short: "Transcribe a video URL or local audio file to timestamped JSON",
		Long: `Download audio from a video URL (or read a local audio file), run whisper
speech recognition on it, and emit sentence-level segments with start/end
timestamps as a JSON array on stdout.

Models:
` + whisper.ModelHelpTable(),
		Example: `  transcriber https://www.youtube.com/watch?v=dQw4w9WgXcQ
  transcriber https://www.youtube.com/watch?v=dQw4w9WgXcQ -o transcript.json
  transcriber lecture.wav -m large -o transcript.json
  transcriber https://vimeo.com/123456789 -a keep.wav -f wav`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.initLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.out = cmd.OutOrStdout()
			return app.runPipeline(cmd.Context(), args[0])
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindOutputFlags(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindOutputFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVarP(&app.output, "output", "o", app.output, "Write the transcript JSON to this path instead of stdout")
	cmd.Flags().StringVarP(&app.audioOutput, "audio-output", "a", app.audioOutput, "Keep the acquired audio at this path, overwriting an existing file")
	bindAudioFormatFlag(cmd, app)
}

func bindAudioFormatFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVarP(&app.audioFormat, "audio-format", "f", app.audioFormat, "Audio format for extraction: "+audio.FormatNames())
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVarP(&app.model, "model", "m", app.model, "Model tier (tiny|base|small|medium|large) or path to ggml weights")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where model weights are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing model weights")
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVarP(&app.verbose, "verbose", "v", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json-logs", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func (a *appState) initLogging() error {
	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.language = sanitizeLanguage(a.language)
	a.runID = uuid.NewString()
	a.logger = logger.With(zap.String("run_id", a.runID))
	return nil
}

// runPipeline is the whole tool: resolve the source, acquire audio,
// transcribe, write JSON. Strictly sequential; the first failing stage
// aborts the run, and the deferred cleanup still removes owned audio.
func (a *appState) runPipeline(ctx context.Context, rawSource string) error {
	format, err := audio.ParseFormat(a.audioFormat)
	if err != nil {
		return err
	}

	src, err := source.Resolve(rawSource)
	if err != nil {
		return err
	}
	a.log().Debug("source resolved", zap.String("kind", src.Kind.String()), zap.String("value", src.Value))

	artifact, err := a.acquireAudio(ctx, src, format)
	if err != nil {
		return err
	}
	defer artifact.Cleanup(a.log())

	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribeAudio
	}

	segments, err := transcribeFn(ctx, artifact.Path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		a.log().Warn("no speech detected; writing an empty transcript")
	}

	writeFn := a.writeFn
	if writeFn == nil {
		writeFn = a.writeTranscript
	}
	if err := writeFn(segments, a.output); err != nil {
		return err
	}
	if a.output != "" {
		a.log().Info("transcript saved", zap.String("path", a.output))
	}

	return nil
}

func (a *appState) acquireAudio(ctx context.Context, src source.Source, format audio.Format) (*ytdlp.Artifact, error) {
	if src.Kind == source.KindLocal {
		return a.acquireLocalAudio(src.Value)
	}

	preflightFn := a.preflightFn
	if preflightFn == nil {
		preflightFn = a.ensureDownloaderReady
	}
	if err := preflightFn(ctx); err != nil {
		return nil, err
	}

	acquireFn := a.acquireFn
	if acquireFn == nil {
		acquireFn = a.acquireRemoteAudio
	}
	return acquireFn(ctx, ytdlp.Request{URL: src.Value, Format: format, DestPath: a.audioOutput})
}

func (a *appState) acquireLocalAudio(path string) (*ytdlp.Artifact, error) {
	if err := source.ValidateLocalAudio(path); err != nil {
		return nil, err
	}
	a.inspectLocalWAV(path)

	if a.audioOutput != "" {
		if err := copyAudioFile(path, a.audioOutput); err != nil {
			return nil, err
		}
		a.log().Info("local audio copied", zap.String("source", path), zap.String("destination", a.audioOutput))
	}

	return &ytdlp.Artifact{Path: path, Format: localArtifactFormat(path)}, nil
}

func (a *appState) ensureDownloaderReady(ctx context.Context) error {
	return ytdlp.NewExtractor(a.log()).Preflight(ctx)
}

func (a *appState) acquireRemoteAudio(ctx context.Context, req ytdlp.Request) (*ytdlp.Artifact, error) {
	extractor := ytdlp.NewExtractor(a.log())

	stopSpinner := startSpinner(a.progressEnabled(), "Extracting audio")
	artifact, err := extractor.Extract(ctx, req)
	stopSpinner()

	return artifact, err
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) ([]whisper.Segment, error) {
	model, err := a.ensureModelAvailable(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := whisper.NewCLIEngine(a.log())
	if err != nil {
		return nil, err
	}

	a.log().Info("transcribing...", zap.String("audio", audioPath), zap.String("model", model.Path), zap.String("language", a.language))
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	segments, err := engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath: audioPath,
		ModelPath: model.Path,
		Language:  a.language,
	})
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return nil, err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.Int("segments", len(segments)))

	return segments, nil
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("%w: model %q is missing at %s; run `transcriber setup --model %s` or use --auto-download=true", whisper.ErrModelLoad, resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.Fetch(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		ChecksumURL:    resolved.SHA256URL,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("%w: download model %q: %v", whisper.ErrModelLoad, resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

func (a *appState) writeTranscript(segments []whisper.Segment, path string) error {
	return transcript.Write(segments, path, a.outWriter())
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

// inspectLocalWAV logs what the input looks like before inference starts.
// Advisory only: non-WAV and unparseable files are left to the engine's
// decoder.
func (a *appState) inspectLocalWAV(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return
	}

	info, err := audio.Probe(path)
	if err != nil {
		a.log().Debug("wav probe failed; leaving decode to the engine", zap.String("audio", path), zap.Error(err))
		return
	}

	a.log().Debug("input audio",
		zap.Duration("duration", info.Duration()),
		zap.Int("sample_rate", info.SampleRate),
		zap.Int("channels", info.Channels),
	)

	if info.IsEmpty() {
		a.log().Warn("input audio contains no samples; transcript will likely be empty", zap.String("audio", path))
		return
	}
	if info.LikelySilent(nearSilenceDBFS) {
		a.log().Warn("input audio is near-silent; transcript may be empty",
			zap.String("audio", path),
			zap.Float64("rms_dbfs", info.RMSdBFS),
			zap.Float64("threshold_dbfs", nearSilenceDBFS),
		)
	}
}

func localArtifactFormat(path string) audio.Format {
	format, err := audio.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return ""
	}
	return format
}

func copyAudioFile(srcPath, destPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("stat audio source: %w", err)
	}

	destPath = filepath.Clean(destPath)
	// Copying a file onto itself would truncate it before the first read;
	// the audio is already where the caller wants it.
	if destInfo, statErr := os.Stat(destPath); statErr == nil && os.SameFile(srcInfo, destInfo) {
		return nil
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open audio source: %w", err)
	}
	defer in.Close()

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create audio copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy audio: %w", err)
	}

	return out.Close()
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
