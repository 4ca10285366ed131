package notebook

import (
	"fmt"
	"strings"

	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/juanvolpe/voiceJuan/internal/tts/text"
)

// Defaults for the Spanish voice notebook.
const (
	DefaultRepo            = "juanvolpe/voiceJuan"
	DefaultFileName        = "colab_spanish_tts.ipynb"
	DefaultVoiceName       = "juan"
	DefaultGoVersion       = "1.25.1"
	DefaultInferencePkg    = "tortoise-tts"
	DefaultInferenceBinary = "tortoise_tts.py"
	DefaultConfigName      = "colab.toml"
	DefaultOutputFile      = "spanish_output.wav"

	notebookTitle = "Spanish Voice Cloning with Tortoise TTS"
)

// Options parameterizes the generated notebook.
type Options struct {
	Repo            string
	FileName        string
	VoiceName       string
	GoVersion       string
	InferencePkg    string
	InferenceBinary string
	DefaultPreset   string
}

// DefaultOptions returns the options for the published notebook.
func DefaultOptions() Options {
	return Options{
		Repo:            DefaultRepo,
		FileName:        DefaultFileName,
		VoiceName:       DefaultVoiceName,
		GoVersion:       DefaultGoVersion,
		InferencePkg:    DefaultInferencePkg,
		InferenceBinary: DefaultInferenceBinary,
		DefaultPreset:   preset.Fast,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.Repo == "" {
		o.Repo = def.Repo
	}

	if o.FileName == "" {
		o.FileName = def.FileName
	}

	if o.VoiceName == "" {
		o.VoiceName = def.VoiceName
	}

	if o.GoVersion == "" {
		o.GoVersion = def.GoVersion
	}

	if o.InferencePkg == "" {
		o.InferencePkg = def.InferencePkg
	}

	if o.InferenceBinary == "" {
		o.InferenceBinary = def.InferenceBinary
	}

	if o.DefaultPreset == "" {
		o.DefaultPreset = def.DefaultPreset
	}

	return o
}

// SpanishVoiceNotebook builds the notebook that sets up the CLI on a hosted GPU
// runtime, uploads samples, synthesizes Spanish speech and downloads the result.
func SpanishVoiceNotebook(opts Options) (*Notebook, error) {
	opts = opts.withDefaults()

	defaultPos := preset.Position(opts.DefaultPreset)
	if defaultPos == 0 {
		return nil, fmt.Errorf("%w: %q", preset.ErrUnknownPreset, opts.DefaultPreset)
	}

	samplesDir := fmt.Sprintf("voices/%s/samples", opts.VoiceName)

	builder := NewBuilder().
		Markdown("intro",
			"# "+notebookTitle,
			"",
			fmt.Sprintf("[![Open In Colab](https://colab.research.google.com/assets/colab-badge.svg)](https://colab.research.google.com/github/%s/blob/main/%s)", opts.Repo, opts.FileName),
			"",
			"This notebook will help you:",
			"1. Set up the Spanish voice cloning system",
			"2. Upload your voice samples",
			"3. Generate Spanish speech with your voice",
		).
		Markdown("token_setup",
			"## Hugging Face Token Setup",
			"",
			"This notebook requires your Hugging Face token to download models.",
			"The token must be set in your Colab secrets as '"+tts.EnvToken+"'.",
			"",
			"To add your token to Colab secrets:",
			"1. Click the folder icon on the left sidebar",
			"2. Click the key icon 🔑 to open secrets",
			"3. Add a new secret with:",
			"   - Name: `"+tts.EnvToken+"`",
			"   - Value: Your Hugging Face token",
			"",
			"Let's check if your token is set correctly:",
		).
		Code("token_check",
			"# Get Hugging Face token from Colab secrets",
			"import os",
			"from google.colab import userdata",
			"",
			"token = userdata.get('"+tts.EnvToken+"')",
			"if not token:",
			"    raise ValueError(",
			`        "❌ `+tts.EnvToken+` not found in Colab secrets!\n"`,
			`        "Please add your Hugging Face token to Colab secrets as '`+tts.EnvToken+`'"`,
			"    )",
			"",
			"os.environ['"+tts.EnvToken+"'] = token",
			`print("✅ Found HF token in Colab secrets!")`,
		).
		Code("setup",
			"# Clone repository, install Go and the inference package",
			"import os",
			fmt.Sprintf("!git clone https://github.com/%s.git", opts.Repo),
			"%cd "+repoDir(opts.Repo),
			"",
			fmt.Sprintf("!wget -q https://go.dev/dl/go%s.linux-amd64.tar.gz", opts.GoVersion),
			fmt.Sprintf("!tar -C /usr/local -xzf go%s.linux-amd64.tar.gz", opts.GoVersion),
			"os.environ['PATH'] += ':/usr/local/go/bin'",
			"",
			`print("\n📦 Installing dependencies...")`,
			"!pip install -q "+opts.InferencePkg,
			"!apt-get install -y -qq ffmpeg",
			"",
			`print("\n🔨 Building voiceclone...")`,
			"!go build -o voiceclone ./cmd/voiceclone",
		).
		Code("config",
			"%%writefile "+DefaultConfigName,
			"[tts]",
			`backend = "command"`,
			fmt.Sprintf("binary = %q", opts.InferenceBinary),
			fmt.Sprintf("preset = %q", opts.DefaultPreset),
			`language = "es"`,
			"",
			"[voice]",
			fmt.Sprintf("dir = %q", "voices/"+opts.VoiceName),
			`voices_dir = "voices"`,
			"",
			"[paths]",
			`base_logs_dir = "logs"`,
			`output_dir = "."`,
		).
		Code("verify_build",
			"# Verify the CLI was built",
			"import os",
			"if not os.path.exists('voiceclone'):",
			`    raise RuntimeError("❌ voiceclone was not built. Run the setup cell again.")`,
			`print("✅ voiceclone is ready!")`,
		).
		Code("verify_tts",
			"# Verify the inference backend is reachable",
			"!./voiceclone health --config "+DefaultConfigName,
		).
		Markdown("upload_intro",
			"## Upload Voice Samples",
			"",
			"Please prepare your WAV files with these requirements:",
			"- Clear Spanish speech",
			"- WAV format (22050 Hz)",
			"- Good quality audio (no background noise)",
			"- 3-10 seconds per sample",
			"",
			`Use the "Choose Files" button below to upload your samples:`,
		).
		Code("upload",
			"from google.colab import files",
			"import os",
			"",
			"!mkdir -p "+samplesDir,
			"",
			`print("📂 Please upload your WAV files...")`,
			"uploaded = files.upload()",
			"",
			"for filename in uploaded.keys():",
			"    if filename.lower().endswith('.wav'):",
			"        path = f'"+samplesDir+"/{filename}'",
			"        with open(path, 'wb') as f:",
			"            f.write(uploaded[filename])",
			"        print(f'✅ Saved {filename}')",
			"    else:",
			"        print(f'❌ Skipped {filename} - not a WAV file')",
			"",
			`print("\n📊 Uploaded voice samples:")`,
			"!ls "+samplesDir+"/",
		)

	builder.Markdown("generate_intro", generateIntro()...).
		Code("generate", generateCode(defaultPos)...).
		Markdown("download_intro",
			"## Download Generated Audio",
			"",
			"Click below to save the generated audio file to your computer:",
		).
		Code("download",
			"from google.colab import files",
			`print("💾 Starting download...")`,
			"files.download(output_file)",
			`print("✅ Download complete!")`,
		)

	return builder.Build(Metadata{
		Colab: ColabMetadata{
			Name:              notebookTitle,
			Provenance:        []string{},
			CollapsedSections: []string{},
			TOCVisible:        true,
		},
		KernelSpec:   KernelSpec{Name: "python3", DisplayName: "Python 3"},
		LanguageInfo: LanguageInfo{Name: "python"},
		Accelerator:  "GPU",
	})
}

var presetBlurbs = map[string]string{
	preset.UltraFast:   "Quick results, lower quality",
	preset.Fast:        "Good balance of speed/quality",
	preset.Standard:    "Better quality, slower",
	preset.HighQuality: "Best quality, slowest",
}

func generateIntro() []string {
	lines := []string{
		"## Generate Speech",
		"",
		"Ready to generate speech with your voice samples! You will have two options:",
		"1. Use existing voice cache (faster)",
		"2. Reprocess voice samples (choose this if you added new samples)",
		"",
		"Available quality presets:",
	}

	for _, name := range preset.Names() {
		lines = append(lines, fmt.Sprintf("- `%s`: %s", name, presetBlurbs[name]))
	}

	lines = append(lines, "", "These abbreviations are spelled out before synthesis:")

	for _, pair := range text.Abbreviations() {
		lines = append(lines, fmt.Sprintf("- `%s` → %s", pair[0], pair[1]))
	}

	return append(lines, "", "Run the code below to begin:")
}

func generateCode(defaultPos int) []string {
	names := preset.Names()

	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}

	return []string{
		"import subprocess",
		"from IPython.display import Audio",
		"",
		`text = input("✍️ Enter Spanish text: ")`,
		"",
		"presets = [" + strings.Join(quoted, ", ") + "]",
		`print("\n⚙️ Available quality presets:")`,
		"for i, p in enumerate(presets, 1):",
		`    print(f"{i}. {p}")`,
		"",
		"while True:",
		fmt.Sprintf(`    choice = input("\n🎚️ Select quality (1-%d) [default=%d]: ").strip()`, len(names), defaultPos),
		"    if not choice:",
		fmt.Sprintf("        preset = presets[%d]", defaultPos-1),
		"        break",
		"    if choice.isdigit() and 1 <= int(choice) <= len(presets):",
		"        preset = presets[int(choice) - 1]",
		"        break",
		fmt.Sprintf(`    print("❌ Please enter a number between 1 and %d")`, len(names)),
		"",
		`reuse = input("♻️ Use existing voice cache? (y/n) [default=y]: ").strip().lower()`,
		"cache_flag = '--reprocess' if reuse in ('n', 'no') else '--use-cache'",
		"",
		"output_file = '" + DefaultOutputFile + "'",
		`print(f"\n🎵 Generating speech with '{preset}' preset...")`,
		"subprocess.run(['./voiceclone', 'speak', '--config', '" + DefaultConfigName + "', '--text', text,",
		"                '--preset', preset, '--output', output_file, cache_flag], check=True)",
		"",
		`print("\n🔊 Playing generated audio:")`,
		"Audio(output_file)",
	}
}

func repoDir(repo string) string {
	if idx := strings.LastIndex(repo, "/"); idx >= 0 {
		return repo[idx+1:]
	}

	return repo
}
