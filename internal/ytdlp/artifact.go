package ytdlp

import (
	"os"

	"go.uber.org/zap"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/audio"
)

// Artifact is an acquired audio file ready for transcription. TempDir is set
// only when the pipeline owns the file; user-supplied paths are never owned.
type Artifact struct {
	Path    string
	Format  audio.Format
	TempDir string
}

func (a *Artifact) Owned() bool {
	return a != nil && a.TempDir != ""
}

// Cleanup removes the owned temporary directory. It is safe to call on every
// exit path and never escalates: a failed removal is logged as a warning so
// it cannot mask the run's real outcome.
func (a *Artifact) Cleanup(logger *zap.Logger) {
	if !a.Owned() {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.RemoveAll(a.TempDir); err != nil {
		logger.Warn("failed to remove temporary audio", zap.String("dir", a.TempDir), zap.Error(err))
		return
	}

	logger.Debug("removed temporary audio", zap.String("dir", a.TempDir))
	a.TempDir = ""
}
