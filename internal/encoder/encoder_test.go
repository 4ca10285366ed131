package encoder_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/encoder"
	"github.com/juanvolpe/voiceJuan/internal/tts/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoderScript copies the -i input to the last argument, records its
// arguments next to itself and fails for inputs whose name starts with "bad".
const fakeEncoderScript = `#!/bin/sh
in=""
prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
echo "$@" >> "$(dirname "$0")/args.log"
case "$(basename "$in")" in
  bad*) echo "Invalid data found when processing input" >&2; exit 1;;
esac
cp "$in" "$out"
`

func writeFakeEncoder(t *testing.T) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake encoder is a POSIX shell script")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "fake-ffmpeg")

	err := os.WriteFile(path, []byte(fakeEncoderScript), 0o700)
	require.NoError(t, err)

	return path
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "encoder-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func TestRunner_Args(t *testing.T) {
	t.Parallel()

	runner, err := encoder.New("", audio.NewDefaultQuality(), newTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"-y", "-i", "in.m4a", "-ac", "1", "-ar", "22050", "out.wav"},
		runner.Args("in.m4a", "out.wav"),
	)
}

func TestNew_InvalidQuality(t *testing.T) {
	t.Parallel()

	_, err := encoder.New("ffmpeg", audio.Quality{SampleRate: 0, Channels: 1}, newTestLogger(t))
	require.ErrorIs(t, err, audio.ErrInvalidQuality)
}

func TestRunner_Convert(t *testing.T) {
	t.Parallel()

	binary := writeFakeEncoder(t)
	runner, err := encoder.New(binary, audio.NewDefaultQuality(), newTestLogger(t))
	require.NoError(t, err)

	dir := t.TempDir()
	in := filepath.Join(dir, "take.m4a")
	out := filepath.Join(dir, "take.wav")
	require.NoError(t, os.WriteFile(in, []byte("audio"), 0o600))

	require.NoError(t, runner.Convert(context.Background(), in, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))

	args, err := os.ReadFile(filepath.Join(filepath.Dir(binary), "args.log"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "-ac 1 -ar 22050")

	require.ErrorIs(t, runner.Convert(context.Background(), "", out), encoder.ErrEmptyPath)
}

func TestRunner_Convert_Failure(t *testing.T) {
	t.Parallel()

	binary := writeFakeEncoder(t)
	runner, err := encoder.New(binary, audio.NewDefaultQuality(), newTestLogger(t))
	require.NoError(t, err)

	dir := t.TempDir()
	in := filepath.Join(dir, "bad.m4a")
	require.NoError(t, os.WriteFile(in, []byte("junk"), 0o600))

	err = runner.Convert(context.Background(), in, filepath.Join(dir, "bad.wav"))
	require.ErrorIs(t, err, encoder.ErrEncoderFailed)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestRunner_BatchConvert(t *testing.T) {
	t.Parallel()

	binary := writeFakeEncoder(t)
	runner, err := encoder.New(binary, audio.NewDefaultQuality(), newTestLogger(t))
	require.NoError(t, err)

	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "voices", "juan")

	for _, name := range []string{"b.m4a", "a.m4a", "bad.m4a", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o600))
	}

	report, err := runner.BatchConvert(context.Background(), src, dst, audio.FORMAT_M4A, "juan")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 2, report.Converted())
	require.Len(t, report.Failed(), 1)
	assert.True(t, strings.HasSuffix(report.Failed()[0].Source, "bad.m4a"))

	// Sorted order: a.m4a -> juan_0, b.m4a -> juan_1, bad.m4a -> juan_2 (failed).
	first, err := os.ReadFile(filepath.Join(dst, "juan_0.wav"))
	require.NoError(t, err)
	assert.Equal(t, "a.m4a", string(first))

	second, err := os.ReadFile(filepath.Join(dst, "juan_1.wav"))
	require.NoError(t, err)
	assert.Equal(t, "b.m4a", string(second))

	_, err = os.Stat(filepath.Join(dst, "juan_2.wav"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_BatchConvert_MissingSource(t *testing.T) {
	t.Parallel()

	runner, err := encoder.New("ffmpeg", audio.NewDefaultQuality(), newTestLogger(t))
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out")

	_, err = runner.BatchConvert(context.Background(), filepath.Join(t.TempDir(), "missing"), dst,
		audio.FORMAT_M4A, "")
	require.ErrorIs(t, err, encoder.ErrSourceDirMissing)

	// The target directory is created before the source check.
	info, statErr := os.Stat(dst)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestRunner_Resample(t *testing.T) {
	t.Parallel()

	binary := writeFakeEncoder(t)
	runner, err := encoder.New(binary, audio.NewDefaultQuality(), newTestLogger(t))
	require.NoError(t, err)

	out, err := runner.Resample(context.Background(), "sample.wav", []byte("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(out))
}
