// Package ytdlp acquires audio by driving the external yt-dlp downloader,
// which in turn uses ffmpeg to transcode the extracted stream.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/audio"
)

// DownloaderPathEnv points at a specific yt-dlp binary, bypassing PATH.
const DownloaderPathEnv = "TRANSCRIBER_YTDLP_PATH"

var (
	// ErrDownload covers downloader failures: binary missing, network
	// errors, geo-restrictions, removed videos, unsupported platforms.
	ErrDownload = errors.New("download failed")

	// ErrTranscode covers post-processing failures: ffmpeg missing or the
	// requested format rejected by the toolchain.
	ErrTranscode = errors.New("transcode failed")
)

type Request struct {
	URL    string
	Format audio.Format
	// DestPath persists the audio at a caller-chosen location, overwriting
	// any existing file. When empty the audio lands in an owned temporary
	// directory that Cleanup removes.
	DestPath string
}

type Extractor struct {
	Executable string
	Logger     *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Executable: downloaderBinary(), Logger: logger}
}

func downloaderBinary() string {
	if override := strings.TrimSpace(os.Getenv(DownloaderPathEnv)); override != "" {
		return override
	}
	return "yt-dlp"
}

// Preflight verifies the external toolchain before any network work: the
// downloader must answer a version probe and ffmpeg must be on PATH.
func (e *Extractor) Preflight(ctx context.Context) error {
	version, err := commandOutput(ctx, e.Executable, "--version")
	if err != nil {
		if !commandAvailable(e.Executable) {
			return fmt.Errorf("%w: %s not found on PATH (install it with: pip install yt-dlp)", ErrDownload, e.Executable)
		}
		return fmt.Errorf("%w: probe %s: %v", ErrDownload, e.Executable, err)
	}
	e.log().Debug("downloader available", zap.String("downloader", e.Executable), zap.String("version", version))

	if !commandAvailable("ffmpeg") {
		return fmt.Errorf("%w: ffmpeg not found on PATH; it is required to transcode extracted audio", ErrTranscode)
	}

	return nil
}

// Extract fetches the best audio stream for req.URL and transcodes it to
// req.Format. Neither failure class is retried.
func (e *Extractor) Extract(ctx context.Context, req Request) (artifact *Artifact, err error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("extraction URL is required")
	}
	if req.Format == "" {
		req.Format = audio.FormatWAV
	}

	var (
		tempDir string
		base    string
	)
	if req.DestPath == "" {
		dir, mkErr := os.MkdirTemp("", "transcriber-*")
		if mkErr != nil {
			return nil, fmt.Errorf("create temporary directory: %w", mkErr)
		}
		tempDir = dir
		base = filepath.Join(tempDir, "audio")
	} else {
		req.DestPath = filepath.Clean(req.DestPath)
		if dir := filepath.Dir(req.DestPath); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create output directory: %w", mkErr)
			}
		}
		base = strings.TrimSuffix(req.DestPath, filepath.Ext(req.DestPath))
	}

	defer func() {
		if err != nil && tempDir != "" {
			_ = os.RemoveAll(tempDir)
		}
	}()

	args := buildArgs(req.Format, base, req.URL)
	cmd := exec.CommandContext(ctx, e.Executable, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log().Debug("running downloader", zap.String("downloader", e.Executable), zap.Strings("args", args))
	if runErr := cmd.Run(); runErr != nil {
		return nil, classifyExtractError(runErr, strings.TrimSpace(stderr.String()))
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		e.log().Debug("downloader output", zap.String("output", out))
	}

	produced := base + req.Format.Extension()
	if _, statErr := os.Stat(produced); statErr != nil {
		if tempDir == "" {
			return nil, fmt.Errorf("%w: no audio file produced at %s", ErrDownload, produced)
		}
		// The downloader occasionally normalizes the extension; fall back to
		// whatever landed in the owned directory. User directories are never
		// globbed: a stale sibling could match the template base.
		matches, globErr := filepath.Glob(base + ".*")
		if globErr != nil {
			return nil, fmt.Errorf("%w: locate produced audio: %v", ErrDownload, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: no audio file produced at %s", ErrDownload, produced)
		}
		produced = matches[0]
	}

	path := produced
	if req.DestPath != "" && produced != req.DestPath {
		if renameErr := os.Rename(produced, req.DestPath); renameErr != nil {
			return nil, fmt.Errorf("move audio into destination: %w", renameErr)
		}
		path = req.DestPath
	}

	e.log().Info("audio extraction completed", zap.String("path", path), zap.String("format", req.Format.String()))
	return &Artifact{Path: path, Format: req.Format, TempDir: tempDir}, nil
}

func (e *Extractor) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func buildArgs(format audio.Format, outputBase, url string) []string {
	return []string{
		"--extract-audio",
		"--audio-format", format.String(),
		"--audio-quality", "0",
		"--output", outputBase + ".%(ext)s",
		url,
	}
}

func classifyExtractError(runErr error, stderr string) error {
	class := ErrDownload
	if isTranscodeStderr(stderr) {
		class = ErrTranscode
	}

	if stderr == "" {
		return fmt.Errorf("%w: %v", class, runErr)
	}
	return fmt.Errorf("%w: %v (%s)", class, runErr, stderr)
}

func isTranscodeStderr(stderr string) bool {
	value := strings.ToLower(stderr)
	if value == "" {
		return false
	}

	patterns := []string{
		"postprocess",
		"ffmpeg",
		"ffprobe",
		"audio conversion failed",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}
