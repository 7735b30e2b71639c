// Package transcript renders timed segments as the transcript JSON document
// and writes it to stdout or a file.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/whisper"
)

// ErrWriteOutput covers failures to produce the final document: encoding,
// creating the output file, or writing to it.
var ErrWriteOutput = errors.New("write output failed")

type timestamp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type entry struct {
	Timestamp timestamp `json:"timestamp"`
	Sentence  string    `json:"sentence"`
}

// Render encodes segments as a pretty-printed JSON array. Timestamps are
// rounded to two decimals and sentences trimmed; no segments yields an empty
// array rather than null. The result ends with a newline and is identical
// across runs for identical input.
func Render(segments []whisper.Segment) ([]byte, error) {
	entries := make([]entry, 0, len(segments))
	for _, segment := range segments {
		entries = append(entries, entry{
			Timestamp: timestamp{
				Start: roundSeconds(segment.Start),
				End:   roundSeconds(segment.End),
			},
			Sentence: strings.TrimSpace(segment.Text),
		})
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		return nil, fmt.Errorf("%w: encode transcript: %v", ErrWriteOutput, err)
	}

	return buf.Bytes(), nil
}

// Write renders segments and persists them at path, overwriting any existing
// file. An empty path writes to stdout instead. The destination's parent
// directory must already exist.
func Write(segments []whisper.Segment, path string, stdout io.Writer) error {
	document, err := Render(segments)
	if err != nil {
		return err
	}

	if path == "" {
		if _, err := stdout.Write(document); err != nil {
			return fmt.Errorf("%w: write to stdout: %v", ErrWriteOutput, err)
		}
		return nil
	}

	if err := os.WriteFile(filepath.Clean(path), document, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrWriteOutput, path, err)
	}

	return nil
}

func roundSeconds(value float64) float64 {
	return math.Round(value*100) / 100
}
