package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbeReadsStreamInfo(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(0.25 * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000.0))
	}

	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, makePCM16WAV(samples, 16000, 1), 0o644))

	info, err := Probe(path)
	require.NoError(t, err)
	require.Equal(t, 16000, info.SampleRate)
	require.Equal(t, 1, info.Channels)
	require.Equal(t, 16, info.BitsPerSample)
	require.EqualValues(t, 16000, info.Samples)
	require.Equal(t, time.Second, info.Duration())
	require.False(t, info.IsEmpty())
	require.False(t, info.LikelySilent(-65))
	require.Greater(t, info.PeakdBFS, -20.0)
}

func TestProbeStereoDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	require.NoError(t, os.WriteFile(path, makePCM16WAV(make([]int16, 16000), 16000, 2), 0o644))

	info, err := Probe(path)
	require.NoError(t, err)
	require.Equal(t, 2, info.Channels)
	require.Equal(t, 500*time.Millisecond, info.Duration())
}

func TestProbeAllZeroSamplesIsLikelySilent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(path, makePCM16WAV(make([]int16, 8000), 16000, 1), 0o644))

	info, err := Probe(path)
	require.NoError(t, err)
	require.False(t, info.IsEmpty())
	require.True(t, info.LikelySilent(-65))
	require.True(t, math.IsInf(info.RMSdBFS, -1))
}

func TestProbeEmptyDataChunk(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(path, makePCM16WAV(nil, 16000, 1), 0o644))

	info, err := Probe(path)
	require.NoError(t, err)
	require.True(t, info.IsEmpty())
	require.True(t, info.LikelySilent(-65))
	require.Equal(t, time.Duration(0), info.Duration())
}

func TestProbeRejectsNonWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "not-wav.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := Probe(path)
	require.ErrorIs(t, err, ErrInvalidWAV)
}

func TestProbeMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Probe(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

func makePCM16WAV(samples []int16, sampleRate int, channels int) []byte {
	bytesPerSample := 2
	dataSize := len(samples) * bytesPerSample
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	copy(out[off:], []byte("RIFF"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], []byte("WAVE"))
	off += 4

	copy(out[off:], []byte("fmt "))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], uint16(channels))
	off += 2
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate*channels*bytesPerSample))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], uint16(channels*bytesPerSample))
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 16)
	off += 2

	copy(out[off:], []byte("data"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(dataSize))
	off += 4

	for _, s := range samples {
		binary.LittleEndian.PutUint16(out[off:], uint16(s))
		off += 2
	}

	return out
}
