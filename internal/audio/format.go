package audio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat marks audio format names outside the supported set.
// Unknown values are rejected at flag parsing, before any download or model
// work starts.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format is an extraction target container/codec. Its string value doubles
// as the transcoder argument passed to the external downloader.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatM4A  Format = "m4a"
	FormatAAC  Format = "aac"
)

var supportedFormats = []Format{FormatWAV, FormatMP3, FormatFLAC, FormatM4A, FormatAAC}

// ParseFormat validates a user-supplied format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, f := range supportedFormats {
		if name == string(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, s, FormatNames())
}

// FormatNames returns the supported names joined for flag help and errors.
func FormatNames() string {
	names := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

func (f Format) String() string {
	return string(f)
}

// Extension is the file extension the downloader produces for this format,
// including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}
