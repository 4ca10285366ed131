package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/tts/ttsutils"
)

// EnvToken is the environment variable carrying the model-hub credential.
const EnvToken = "HF_TOKEN"

const (
	voiceDirName   = "voice"
	outputFileName = "output.wav"
)

// ErrBinaryEmpty is returned when no inference command is configured.
var ErrBinaryEmpty = errors.New("inference binary cannot be empty")

// CommandSynthesizer is a core.Synthesizer that runs a local inference
// command. The samples are staged in a temporary voice directory, and the
// command writes its output to a file that is read back.
type CommandSynthesizer struct {
	binary string
	token  string
	log    *logger.Logger
}

// NewCommandSynthesizer creates a synthesizer that runs binary. The token is
// passed to the command as HF_TOKEN when non-empty.
func NewCommandSynthesizer(binary, token string, log *logger.Logger) (*CommandSynthesizer, error) {
	if strings.TrimSpace(binary) == "" {
		return nil, ErrBinaryEmpty
	}

	return &CommandSynthesizer{binary: binary, token: token, log: log}, nil
}

// Args returns the command line for one request.
func (p *CommandSynthesizer) Args(req core.SynthesisRequest, voiceDir, outputPath string) []string {
	params := withDefaults(req.Params)

	args := []string{
		"--text", req.Text,
		"--preset", req.Preset.Name,
		"--voice_dir", voiceDir,
		"--output_path", outputPath,
		"--candidates", strconv.Itoa(params.Candidates),
		"--temperature", fmt.Sprintf("%.2f", params.Temperature),
		"--length_penalty", fmt.Sprintf("%.2f", params.LengthPenalty),
		"--seed", strconv.Itoa(params.Seed),
	}

	if params.TopP > 0 {
		args = append(args, "--top_p", fmt.Sprintf("%.2f", params.TopP))
	}

	if params.RepetitionPenalty > 0 {
		args = append(args, "--repetition_penalty", fmt.Sprintf("%.2f", params.RepetitionPenalty))
	}

	return args
}

// Synthesize runs the inference command for req and returns the WAV it wrote.
func (p *CommandSynthesizer) Synthesize(ctx context.Context, req core.SynthesisRequest) ([]byte, error) {
	validateErr := validateRequest(req)
	if validateErr != nil {
		return nil, validateErr
	}

	workDir, err := os.MkdirTemp("", "voice-synth-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			p.log.Warn("Failed to remove work dir '%s': %v", workDir, removeErr)
		}
	}()

	voiceDir := filepath.Join(workDir, voiceDirName)

	stageErr := stageSamples(voiceDir, req.Samples)
	if stageErr != nil {
		return nil, stageErr
	}

	outputPath := filepath.Join(workDir, outputFileName)

	// #nosec G204 -- binary comes from operator configuration
	cmd := exec.CommandContext(ctx, p.binary, p.Args(req, voiceDir, outputPath)...)
	cmd.Env = os.Environ()

	if p.token != "" {
		cmd.Env = append(cmd.Env, EnvToken+"="+p.token)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("inference command failed: %w - output: %s", err, strings.TrimSpace(string(output)))
	}

	audioData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data from %s: %w", outputPath, err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the inference command can be found.
func (p *CommandSynthesizer) HealthCheck(_ context.Context) error {
	_, err := exec.LookPath(p.binary)
	if err != nil {
		return fmt.Errorf("inference binary %q not found: %w", p.binary, err)
	}

	return nil
}

func stageSamples(voiceDir string, samples []core.VoiceSample) error {
	mkdirErr := ttsutils.EnsureDir(voiceDir)
	if mkdirErr != nil {
		return mkdirErr
	}

	for i, sample := range samples {
		name := ttsutils.SanitizeFilename(sample.Name)
		if name == "" {
			name = fmt.Sprintf("sample_%d", i)
		}

		name = ttsutils.EnsureWAVExtension(name)

		writeErr := os.WriteFile(filepath.Join(voiceDir, name), sample.Audio, filePermissions)
		if writeErr != nil {
			return fmt.Errorf("failed to stage sample %s: %w", name, writeErr)
		}
	}

	return nil
}
