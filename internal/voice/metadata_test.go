package voice_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/juanvolpe/voiceJuan/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateMetadata_CreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	voiceDir := newVoiceDir(t, map[string][]byte{
		"juan_1.wav": makeWAV(22050, 1, 10),
		"juan_0.wav": makeWAV(22050, 1, 10),
		"notes.txt":  []byte("ignored"),
	})

	m, created, err := voice.LoadOrCreateMetadata(voiceDir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "es", m.Language)
	assert.Equal(t, 22050, m.SamplingRate)
	assert.Equal(t, []voice.SampleEntry{
		{File: "samples/juan_0.wav", Language: "es", UsePhonemes: true},
		{File: "samples/juan_1.wav", Language: "es", UsePhonemes: true},
	}, m.Samples)

	data, err := os.ReadFile(filepath.Join(voiceDir, voice.MetadataFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"language\": \"es\"")

	again, created, err := voice.LoadOrCreateMetadata(voiceDir)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m, again)
}

func TestLoadOrCreateMetadata_MissingSamplesDir(t *testing.T) {
	t.Parallel()

	_, _, err := voice.LoadOrCreateMetadata(t.TempDir())
	require.ErrorIs(t, err, voice.ErrSamplesDirMissing)
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()

	original := &voice.Metadata{
		Language:     "es",
		SamplingRate: 22050,
		Samples: []voice.SampleEntry{
			{File: "samples/a.wav", Language: "es", UsePhonemes: true},
			{File: "samples/ñandú.wav", Language: "es-MX", UsePhonemes: false},
		},
	}

	data, err := original.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "ñandú")

	decoded, err := voice.ParseMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestParseMetadata_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: `{"samples": [`},
		{name: "missing samples", doc: `{"language": "es"}`},
		{name: "empty file", doc: `{"samples": [{"file": ""}]}`},
		{name: "wrong type", doc: `{"samples": [{"file": "a.wav", "use_phonemes": "yes"}]}`},
		{name: "bad rate", doc: `{"sampling_rate": 0, "samples": []}`},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := voice.ParseMetadata([]byte(testCase.doc))
			require.ErrorIs(t, err, voice.ErrInvalidMetadata)
		})
	}
}

func TestSyncMetadata(t *testing.T) {
	t.Parallel()

	voiceDir := newVoiceDir(t, map[string][]byte{
		"a.wav": makeWAV(22050, 1, 4),
		"b.wav": makeWAV(22050, 1, 4),
	})

	m, _, err := voice.LoadOrCreateMetadata(voiceDir)
	require.NoError(t, err)

	diff, err := voice.SyncMetadata(voiceDir, m)
	require.NoError(t, err)
	assert.False(t, diff.Changed())

	samplesDir := filepath.Join(voiceDir, voice.SamplesDirName)
	require.NoError(t, os.Remove(filepath.Join(samplesDir, "a.wav")))
	require.NoError(t, os.WriteFile(filepath.Join(samplesDir, "c.wav"), makeWAV(22050, 1, 4), 0o600))

	diff, err = voice.SyncMetadata(voiceDir, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.wav"}, diff.Added)
	assert.Equal(t, []string{"a.wav"}, diff.Removed)
	assert.Equal(t, []string{"b.wav", "c.wav"}, m.SampleNames())

	saved, err := voice.LoadMetadata(voiceDir)
	require.NoError(t, err)
	assert.Equal(t, m, saved)
}

func TestSyncMetadata_KeepsUnknownKeys(t *testing.T) {
	t.Parallel()

	voiceDir := newVoiceDir(t, map[string][]byte{"a.wav": makeWAV(22050, 1, 4)})

	doc := `{
  "speaker": "juan",
  "notes": {"mic": "usb"},
  "language": "es",
  "samples": [{"file": "samples/a.wav", "language": "es", "use_phonemes": true}]
}`
	require.NoError(t, os.WriteFile(filepath.Join(voiceDir, voice.MetadataFileName), []byte(doc), 0o600))

	m, created, err := voice.LoadOrCreateMetadata(voiceDir)
	require.NoError(t, err)
	assert.False(t, created)
	assert.JSONEq(t, `"juan"`, string(m.Extra["speaker"]))

	samplesDir := filepath.Join(voiceDir, voice.SamplesDirName)
	require.NoError(t, os.WriteFile(filepath.Join(samplesDir, "b.wav"), makeWAV(22050, 1, 4), 0o600))

	diff, err := voice.SyncMetadata(voiceDir, m)
	require.NoError(t, err)
	require.True(t, diff.Changed())

	data, err := os.ReadFile(filepath.Join(voiceDir, voice.MetadataFileName))
	require.NoError(t, err)

	var written map[string]any
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, "juan", written["speaker"])
	assert.Equal(t, map[string]any{"mic": "usb"}, written["notes"])
	assert.Len(t, written["samples"], 2)

	saved, err := voice.LoadMetadata(voiceDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.wav", "b.wav"}, saved.SampleNames())
	assert.Len(t, saved.Extra, 2)
}

func TestMetadata_ZeroValueRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := (&voice.Metadata{}).Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"samples": []`)

	decoded, err := voice.ParseMetadata(data)
	require.NoError(t, err)
	assert.Empty(t, decoded.Samples)
	assert.Nil(t, decoded.Extra)
}
