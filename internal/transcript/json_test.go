package transcript

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frankhanhjalt/Youtube-Local-Transribe-Json/internal/whisper"
)

func sampleSegments() []whisper.Segment {
	return []whisper.Segment{
		{Start: 0, End: 2.503, Text: " Hello there. "},
		{Start: 2.503, End: 5.0, Text: "General Kenobi."},
	}
}

func TestRenderDocumentShape(t *testing.T) {
	t.Parallel()

	document, err := Render(sampleSegments())
	require.NoError(t, err)

	want := `[
  {
    "timestamp": {
      "start": 0,
      "end": 2.5
    },
    "sentence": "Hello there."
  },
  {
    "timestamp": {
      "start": 2.5,
      "end": 5
    },
    "sentence": "General Kenobi."
  }
]
`
	require.Equal(t, want, string(document))
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Render(sampleSegments())
	require.NoError(t, err)
	second, err := Render(sampleSegments())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRenderEmptyIsEmptyArray(t *testing.T) {
	t.Parallel()

	document, err := Render(nil)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(document))
}

func TestRenderDoesNotEscapeHTML(t *testing.T) {
	t.Parallel()

	document, err := Render([]whisper.Segment{{Start: 0, End: 1, Text: "a < b & c"}})
	require.NoError(t, err)
	require.Contains(t, string(document), "a < b & c")
	require.NotContains(t, string(document), `\u003c`)
}

func TestRenderRoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	document, err := Render([]whisper.Segment{{Start: 1.005, End: 2.999, Text: "x"}})
	require.NoError(t, err)

	var entries []struct {
		Timestamp struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"timestamp"`
		Sentence string `json:"sentence"`
	}
	require.NoError(t, json.Unmarshal(document, &entries))
	require.Len(t, entries, 1)
	require.InDelta(t, 1.0, entries[0].Timestamp.Start, 0.011)
	require.Equal(t, 3.0, entries[0].Timestamp.End)
}

func TestWriteToFileOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "transcript.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, Write(sampleSegments(), path, nil))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), "[\n"))
	require.Contains(t, string(content), "General Kenobi.")
}

func TestWriteMissingParentDirectoryFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "transcript.json")
	err := Write(nil, path, nil)
	require.ErrorIs(t, err, ErrWriteOutput)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestWriteToStdoutWriter(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	require.NoError(t, Write(sampleSegments(), "", &buf))
	require.Contains(t, buf.String(), `"sentence": "Hello there."`)
}

func TestWriteFailureIsOutputWriteError(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var buf strings.Builder
	err := Write(sampleSegments(), filepath.Join(blocker, "transcript.json"), &buf)
	require.ErrorIs(t, err, ErrWriteOutput)
}

func TestWriteStdoutFailureIsOutputWriteError(t *testing.T) {
	t.Parallel()

	err := Write(sampleSegments(), "", failingWriter{})
	require.ErrorIs(t, err, ErrWriteOutput)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("pipe closed")
}
