package voice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/voice"
	"github.com/juanvolpe/voiceJuan/internal/wav"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "voice-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = log.Close() })

	return log
}

func makeWAV(rate, channels, frames int) []byte {
	info := wav.Info{AudioFormat: wav.FormatPCM, Channels: channels, SampleRate: rate, BitsPerSample: 16}
	pcm := make([]byte, frames*info.BlockAlign())

	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	data, err := wav.Encode(info, pcm)
	if err != nil {
		panic(err)
	}

	return data
}

// newVoiceDir creates <tmp>/voice/samples with the given files.
func newVoiceDir(t *testing.T, files map[string][]byte) string {
	t.Helper()

	voiceDir := filepath.Join(t.TempDir(), "voice")
	samplesDir := filepath.Join(voiceDir, voice.SamplesDirName)
	require.NoError(t, os.MkdirAll(samplesDir, 0o750))

	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(samplesDir, name), data, 0o600))
	}

	return voiceDir
}

type fakePrompter struct {
	choice    core.CacheChoice
	confirm   bool
	choices   int
	questions []string
}

func (p *fakePrompter) CacheChoice() (core.CacheChoice, error) {
	p.choices++

	return p.choice, nil
}

func (p *fakePrompter) Confirm(question string) (bool, error) {
	p.questions = append(p.questions, question)

	return p.confirm, nil
}
