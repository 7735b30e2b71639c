package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/platform"
)

// EnginePathEnv points at a specific whisper-cli binary, bypassing discovery.
const EnginePathEnv = "TRANSCRIBER_WHISPER_PATH"

// CLIEngine runs whisper.cpp's whisper-cli as a subprocess and parses its
// JSON output into segments.
type CLIEngine struct {
	Executable string
	Logger     *zap.Logger
}

func NewCLIEngine(logger *zap.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override := strings.TrimSpace(os.Getenv(EnginePathEnv)); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("%w: %s is not executable: %v", ErrModelLoad, EnginePathEnv, err)
		}
		return &CLIEngine{Executable: override, Logger: logger}, nil
	}

	if path, err := exec.LookPath(engineBinaryName()); err == nil {
		return &CLIEngine{Executable: path, Logger: logger}, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve executable path: %v", ErrModelLoad, err)
	}

	enginePath, err := ResolveEnginePath(selfExe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	return &CLIEngine{Executable: enginePath, Logger: logger}, nil
}

func ResolveEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s not found on PATH or near %s; install whisper.cpp or set %s", engineBinaryName(), selfExecutable, EnginePathEnv)
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()
	host := platform.CurrentRuntime()
	hostTarget := fmt.Sprintf("%s_%s", host.OS, host.Arch)

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

func (e *CLIEngine) Transcribe(ctx context.Context, req TranscriptionRequest) ([]Segment, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return nil, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return nil, errors.New("model path is required")
	}

	if err := ensureExecutable(e.Executable); err != nil {
		return nil, fmt.Errorf("%w: whisper engine missing or not executable: %v", ErrModelLoad, err)
	}

	outBase := filepath.Join(os.TempDir(), "transcriber-"+uuid.NewString())
	jsonOut := outBase + ".json"

	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-oj", "-of", outBase, "-np"}
	lang := strings.TrimSpace(req.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}

	cmd := exec.CommandContext(ctx, e.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	e.log().Debug("running whisper engine", zap.String("engine", e.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return nil, classifyRunError(e.Executable, err, strings.TrimSpace(stderr.String()))
	}

	defer os.Remove(jsonOut)
	content, err := os.ReadFile(jsonOut)
	if err != nil {
		return nil, fmt.Errorf("%w: read engine output: %v", ErrInference, err)
	}

	segments, language, err := parseEngineOutput(content)
	if err != nil {
		return nil, err
	}

	if language != "" {
		e.log().Debug("detected language", zap.String("language", language))
	}

	return segments, nil
}

func (e *CLIEngine) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// engineOutput mirrors the parts of whisper-cli's -oj JSON this tool needs:
// millisecond offsets per segment and the detected language.
type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseEngineOutput(data []byte) ([]Segment, string, error) {
	var out engineOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, "", fmt.Errorf("%w: parse engine output: %v", ErrInference, err)
	}

	segments := make([]Segment, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		start := float64(seg.Offsets.From) / 1000.0
		end := float64(seg.Offsets.To) / 1000.0
		if end < start {
			end = start
		}
		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	return segments, out.Result.Language, nil
}

func classifyRunError(executable string, runErr error, stderr string) error {
	if isMissingSharedLibraryError(stderr) {
		return fmt.Errorf("%w: engine at %s is missing required shared libraries (%s); install whisper.cpp's runtime libraries or point %s at a static build", ErrModelLoad, executable, stderr, EnginePathEnv)
	}
	if isIllegalInstructionError(stderr) || isIllegalInstructionError(runErr.Error()) {
		return fmt.Errorf("%w: engine crashed with an illegal CPU instruction; set %s to a whisper-cli binary built for your CPU", ErrModelLoad, EnginePathEnv)
	}

	class := ErrInference
	if isModelLoadStderr(stderr) {
		class = ErrModelLoad
	}
	if stderr == "" {
		return fmt.Errorf("%w: whisper transcribe: %v", class, runErr)
	}
	return fmt.Errorf("%w: whisper transcribe: %v (%s)", class, runErr, stderr)
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isModelLoadStderr(stderr string) bool {
	value := strings.ToLower(stderr)
	if value == "" {
		return false
	}

	patterns := []string{
		"failed to load model",
		"failed to initialize whisper context",
		"invalid model",
		"bad magic",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
