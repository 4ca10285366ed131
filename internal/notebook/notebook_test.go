package notebook_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juanvolpe/voiceJuan/internal/notebook"
	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SourceLines(t *testing.T) {
	t.Parallel()

	nb, err := notebook.NewBuilder().
		Markdown("title", "# Title", "", "body").
		Code("empty").
		Build(notebook.Metadata{})
	require.NoError(t, err)
	require.Len(t, nb.Cells, 2)

	assert.Equal(t, []string{"# Title\n", "\n", "body"}, nb.Cells[0].Source)
	assert.Equal(t, "# Title\n\nbody", nb.Cells[0].Text())
	assert.Empty(t, nb.Cells[1].Source)
	assert.Equal(t, 4, nb.NBFormat)
	assert.Equal(t, 0, nb.NBFormatMinor)
}

func TestBuilder_Errors(t *testing.T) {
	t.Parallel()

	_, err := notebook.NewBuilder().
		Markdown("a", "x").
		Code("a", "y").
		Code("b", "z").
		Build(notebook.Metadata{})
	require.ErrorIs(t, err, notebook.ErrDuplicateCellID)

	_, err = notebook.NewBuilder().Code("", "x").Build(notebook.Metadata{})
	require.ErrorIs(t, err, notebook.ErrEmptyCellID)
}

func TestCell_JSONShape(t *testing.T) {
	t.Parallel()

	nb, err := notebook.NewBuilder().
		Markdown("md", "text").
		Code("code", "print(1)").
		Build(notebook.Metadata{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, nb.Encode(&buf))

	var raw struct {
		Cells []map[string]any `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw.Cells, 2)

	markdown := raw.Cells[0]
	assert.Equal(t, "markdown", markdown["cell_type"])
	assert.NotContains(t, markdown, "execution_count")
	assert.NotContains(t, markdown, "outputs")

	code := raw.Cells[1]
	assert.Equal(t, "code", code["cell_type"])
	assert.Contains(t, code, "execution_count")
	assert.Nil(t, code["execution_count"])
	assert.Equal(t, []any{}, code["outputs"])
	assert.Equal(t, map[string]any{"id": "code"}, code["metadata"])
}

func TestSpanishVoiceNotebook_CellOrder(t *testing.T) {
	t.Parallel()

	nb, err := notebook.SpanishVoiceNotebook(notebook.DefaultOptions())
	require.NoError(t, err)

	ids := make([]string, 0, len(nb.Cells))
	for _, c := range nb.Cells {
		ids = append(ids, c.Metadata.ID)
	}

	assert.Equal(t, []string{
		"intro", "token_setup", "token_check", "setup", "config",
		"verify_build", "verify_tts", "upload_intro", "upload",
		"generate_intro", "generate", "download_intro", "download",
	}, ids)

	assert.Equal(t, "GPU", nb.Metadata.Accelerator)
	assert.Equal(t, "python3", nb.Metadata.KernelSpec.Name)
	assert.True(t, nb.Metadata.Colab.TOCVisible)
}

func TestSpanishVoiceNotebook_Content(t *testing.T) {
	t.Parallel()

	nb, err := notebook.SpanishVoiceNotebook(notebook.Options{VoiceName: "maria", DefaultPreset: preset.Standard})
	require.NoError(t, err)

	intro, ok := nb.Cell("intro")
	require.True(t, ok)
	assert.Contains(t, intro.Text(), "github/juanvolpe/voiceJuan/blob/main/colab_spanish_tts.ipynb")

	token, ok := nb.Cell("token_check")
	require.True(t, ok)
	assert.Contains(t, token.Text(), "userdata.get('HF_TOKEN')")

	upload, ok := nb.Cell("upload")
	require.True(t, ok)
	assert.Contains(t, upload.Text(), "voices/maria/samples")

	config, ok := nb.Cell("config")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(config.Text(), "%%writefile colab.toml\n"))
	assert.Contains(t, config.Text(), `dir = "voices/maria"`)
	assert.Contains(t, config.Text(), `preset = "standard"`)

	generate, ok := nb.Cell("generate")
	require.True(t, ok)
	assert.Contains(t, generate.Text(), "presets = ['ultra_fast', 'fast', 'standard', 'high_quality']")
	assert.Contains(t, generate.Text(), "[default=3]")
	assert.Contains(t, generate.Text(), "preset = presets[2]")

	intro, ok = nb.Cell("generate_intro")
	require.True(t, ok)

	for _, name := range preset.Names() {
		assert.Contains(t, intro.Text(), "`"+name+"`")
	}

	assert.Contains(t, intro.Text(), "- `Sr.` → Señor")
	assert.Contains(t, intro.Text(), "- `Uds.` → Ustedes")
}

func TestSpanishVoiceNotebook_UnknownPreset(t *testing.T) {
	t.Parallel()

	_, err := notebook.SpanishVoiceNotebook(notebook.Options{DefaultPreset: "turbo"})
	require.ErrorIs(t, err, preset.ErrUnknownPreset)
}

func TestNotebook_WriteRead(t *testing.T) {
	t.Parallel()

	nb, err := notebook.SpanishVoiceNotebook(notebook.DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", notebook.DefaultFileName)
	require.NoError(t, nb.Write(path))

	loaded, err := notebook.Read(path)
	require.NoError(t, err)
	assert.Equal(t, nb.Cells, loaded.Cells)
	assert.Equal(t, nb.Metadata, loaded.Metadata)

	var buf bytes.Buffer
	require.NoError(t, nb.Encode(&buf))
	assert.Contains(t, buf.String(), "\n  \"nbformat\": 4,")
	assert.Contains(t, buf.String(), "🔑")
	assert.Contains(t, buf.String(), "1 <= int(choice)")
	assert.NotContains(t, buf.String(), `\u003c`)
}
