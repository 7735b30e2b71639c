package source

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
)

var (
	// ErrInvalidSource marks inputs that are neither a well-formed URL nor a
	// usable file path (empty strings, directories, malformed URLs).
	ErrInvalidSource = errors.New("invalid source")

	// ErrFileNotFound marks local paths that do not exist on disk.
	ErrFileNotFound = errors.New("file not found")

	// ErrEmptyFile marks local audio files with no content.
	ErrEmptyFile = errors.New("file is empty")
)

type Kind int

const (
	KindRemote Kind = iota
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Source is a classified input: a remote URL to download from, or a local
// audio file to transcribe directly.
type Source struct {
	Kind  Kind
	Value string
}

// Resolve classifies src as a remote URL or a local file. Remote
// classification is purely lexical, so a missing local path never triggers
// network access.
func Resolve(src string) (Source, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return Source{}, fmt.Errorf("%w: source is empty", ErrInvalidSource)
	}

	if strings.Contains(trimmed, "://") {
		u, err := url.Parse(trimmed)
		if err != nil || len(u.Scheme) < 2 || u.Host == "" {
			return Source{}, fmt.Errorf("%w: malformed URL %q", ErrInvalidSource, trimmed)
		}
		return Source{Kind: KindRemote, Value: trimmed}, nil
	}

	info, err := os.Stat(trimmed)
	if errors.Is(err, fs.ErrNotExist) {
		return Source{}, fmt.Errorf("%w: %s", ErrFileNotFound, trimmed)
	}
	if err != nil {
		return Source{}, fmt.Errorf("%w: cannot access %s: %v", ErrInvalidSource, trimmed, err)
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("%w: %s is a directory", ErrInvalidSource, trimmed)
	}

	return Source{Kind: KindLocal, Value: trimmed}, nil
}

// ValidateLocalAudio checks that path points at an existing, non-empty file.
func ValidateLocalAudio(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("stat audio file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidSource, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return nil
}
