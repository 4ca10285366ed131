package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/preset"
	"github.com/juanvolpe/voiceJuan/internal/prompt"
	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/juanvolpe/voiceJuan/internal/tts/ttsutils"
	"github.com/juanvolpe/voiceJuan/internal/voice"
	"github.com/spf13/cobra"
)

// Speak flag names and descriptions.
const (
	flagText        = "text"
	flagPreset      = "preset"
	flagOutput      = "output"
	flagChunks      = "chunks"
	flagUseCache    = "use-cache"
	flagReprocess   = "reprocess"
	flagLowResource = "low-resource"
	flagChunkSize   = "chunk-size"
	flagWorkers     = "workers"
	flagVoiceDir    = "voice-dir"

	flagTextDesc        = "Text to convert to speech (asked for when omitted)"
	flagPresetDesc      = "Quality preset: ultra_fast, fast, standard or high_quality"
	flagOutputDesc      = "Output .wav file, or output directory with --chunks"
	flagChunksDesc      = "JSON file containing text chunks to process"
	flagUseCacheDesc    = "Use the voice cache without asking"
	flagReprocessDesc   = "Reprocess the voice samples without asking"
	flagLowResourceDesc = "Prefer ultra_fast and short chunks; confirm slower presets"
	flagChunkSizeDesc   = "Maximum characters per synthesis request (0 sends the whole text)"
	flagWorkersDesc     = "Chunks synthesized in parallel"
	flagVoiceDirDesc    = "Voice directory holding samples/ and metadata.json"
)

const (
	// lowResourceChunkSize keeps requests short on machines without a GPU.
	lowResourceChunkSize = 100
	slowPresetQuestion   = "El preset seleccionado puede ser lento en este equipo. ¿Continuar? (s/n)"
	maxPresetAttempts    = 3
)

const (
	errFmtSpeak        = "failed to generate speech: %w"
	errFmtChunks       = "failed to process chunks: %w"
	errFmtVoice        = "failed to open voice %s: %w"
	errFmtSynthesizer  = "failed to create synthesizer: %w"
	logFmtSpeakDone    = "Saved %s (%d bytes, %d/%d chunks)"
	logFmtChunksDone   = "Processed chunks from %s into %s"
	logFmtEncoderSkip  = "Encoder unavailable, samples with another format will be skipped: %v"
	msgFmtProcessing   = "\nProcesando texto: '%s'\n"
	msgFmtLoadTime     = "Tiempo de carga de voz: %.1f segundos\n"
	msgFmtGenTime      = "Tiempo de generación: %.1f segundos\n"
	msgFmtSavedTo      = "Guardado en: %s (%s, %s)\n"
	msgFmtChunkFailed  = "Aviso: %d de %d fragmentos fallaron\n"
	msgFmtChunksSaved  = "Archivos de audio generados en: %s\n"
	msgFmtVoiceChanged = "\nCambios en las muestras de voz: %d nuevas, %d eliminadas\n"
)

var (
	// ErrNoText is returned when no text was given or entered.
	ErrNoText = errors.New("no text to synthesize: use --text or enter it when asked")
	// ErrCacheFlags is returned when --use-cache and --reprocess are combined.
	ErrCacheFlags = errors.New("cannot specify both --use-cache and --reprocess")
	// ErrTextAndChunks is returned when --text and --chunks are combined.
	ErrTextAndChunks = errors.New("cannot specify both --text and --chunks")
)

type speakFlags struct {
	text        string
	preset      string
	output      string
	chunks      string
	voiceDir    string
	useCache    bool
	reprocess   bool
	lowResource bool
	chunkSize   int
	workers     int
}

func newSpeakCommand(application *app) *cobra.Command {
	var flags speakFlags

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Generate Spanish speech with the cloned voice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return application.speak(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.text, flagText, "", flagTextDesc)
	cmd.Flags().StringVar(&flags.preset, flagPreset, "", flagPresetDesc)
	cmd.Flags().StringVarP(&flags.output, flagOutput, "o", "", flagOutputDesc)
	cmd.Flags().StringVar(&flags.chunks, flagChunks, "", flagChunksDesc)
	cmd.Flags().StringVar(&flags.voiceDir, flagVoiceDir, "", flagVoiceDirDesc)
	cmd.Flags().BoolVar(&flags.useCache, flagUseCache, false, flagUseCacheDesc)
	cmd.Flags().BoolVar(&flags.reprocess, flagReprocess, false, flagReprocessDesc)
	cmd.Flags().BoolVar(&flags.lowResource, flagLowResource, false, flagLowResourceDesc)
	cmd.Flags().IntVar(&flags.chunkSize, flagChunkSize, 0, flagChunkSizeDesc)
	cmd.Flags().IntVar(&flags.workers, flagWorkers, 0, flagWorkersDesc)

	return cmd
}

func (a *app) speak(cmd *cobra.Command, flags speakFlags) error {
	if flags.useCache && flags.reprocess {
		return ErrCacheFlags
	}

	if flags.text != "" && flags.chunks != "" {
		return ErrTextAndChunks
	}

	console := a.prompter()

	text := flags.text
	if text == "" && flags.chunks == "" {
		entered, err := console.Text()
		if err != nil {
			return err
		}

		text = entered
	}

	if text == "" && flags.chunks == "" {
		return ErrNoText
	}

	chosen, err := a.choosePreset(cmd, console, flags)
	if err != nil {
		return err
	}

	output := flags.output
	if output == "" && flags.chunks == "" {
		output, err = console.OutputName()
		if err != nil {
			return err
		}
	}

	engine, err := a.newEngine(cmd, console, flags)
	if err != nil {
		return err
	}

	if flags.chunks != "" {
		return a.processChunks(cmd.Context(), engine, flags.chunks, output, chosen)
	}

	fmt.Fprintf(a.out, msgFmtProcessing, engine.Preprocess(text))

	result, err := engine.Speak(cmd.Context(), tts.SpeakRequest{Text: text, Preset: chosen, Output: output})
	if err != nil {
		a.log.Error("Speak failed: %v", err)

		return fmt.Errorf(errFmtSpeak, err)
	}

	a.log.Info(logFmtSpeakDone, result.OutputPath, result.Bytes, result.Chunks-result.Failed, result.Chunks)

	fmt.Fprintf(a.out, msgFmtLoadTime, result.LoadTime.Seconds())
	fmt.Fprintf(a.out, msgFmtGenTime, result.GenTime.Seconds())

	if result.Failed > 0 {
		fmt.Fprintf(a.out, msgFmtChunkFailed, result.Failed, result.Chunks)
	}

	fmt.Fprintf(a.out, msgFmtSavedTo, result.OutputPath,
		ttsutils.FormatDuration(result.Duration.Seconds()), ttsutils.FormatFileSize(int64(result.Bytes)))

	return nil
}

// choosePreset resolves the preset from the flag or the menu. In low-resource
// mode ultra_fast is the default and slower presets must be confirmed.
func (a *app) choosePreset(cmd *cobra.Command, console *prompt.Console, flags speakFlags) (core.PresetParams, error) {
	defaultName := a.cfg.TTS.Preset
	if flags.lowResource {
		defaultName = preset.UltraFast
	}

	for range maxPresetAttempts {
		var (
			chosen core.PresetParams
			err    error
		)

		if cmd.Flags().Changed(flagPreset) {
			chosen, err = preset.ByName(flags.preset)
		} else {
			chosen, err = console.Preset(defaultName)
		}

		if err != nil {
			return core.PresetParams{}, err
		}

		if !flags.lowResource || chosen.Name == preset.UltraFast {
			return chosen, nil
		}

		confirmed, err := console.Confirm(slowPresetQuestion)
		if err != nil {
			return core.PresetParams{}, err
		}

		if confirmed {
			return chosen, nil
		}

		if !console.IsInteractive() || cmd.Flags().Changed(flagPreset) {
			return preset.ByName(preset.UltraFast)
		}
	}

	return preset.ByName(preset.UltraFast)
}

// newEngine opens the voice session and builds the engine on the configured backend.
func (a *app) newEngine(cmd *cobra.Command, console *prompt.Console, flags speakFlags) (*tts.Engine, error) {
	voiceDir := a.cfg.Voice.Dir
	if flags.voiceDir != "" {
		voiceDir = flags.voiceDir
	}

	policy := voice.CacheAsk

	switch {
	case flags.useCache:
		policy = voice.CacheForceUse
	case flags.reprocess:
		policy = voice.CacheForceReprocess
	}

	var resampler voice.Resampler

	runner, err := a.cfg.NewEncoder(a.log)
	if err == nil {
		err = runner.Available()
	}

	if err != nil {
		a.log.Warn(logFmtEncoderSkip, err)
	} else {
		resampler = runner
	}

	session, err := voice.OpenSession(voice.SessionConfig{
		VoiceDir:  voiceDir,
		Policy:    policy,
		Prompter:  console,
		Resampler: resampler,
		Log:       a.log,
	})
	if err != nil {
		return nil, fmt.Errorf(errFmtVoice, voiceDir, err)
	}

	if diff := session.Diff(); diff.Changed() {
		fmt.Fprintf(a.out, msgFmtVoiceChanged, len(diff.Added), len(diff.Removed))
	}

	synth, err := a.cfg.NewSynthesizer(a.log)
	if err != nil {
		return nil, fmt.Errorf(errFmtSynthesizer, err)
	}

	engineCfg := a.cfg.EngineConfig()

	if flags.lowResource && !cmd.Flags().Changed(flagChunkSize) && engineCfg.ChunkSize == 0 {
		engineCfg.ChunkSize = lowResourceChunkSize
	}

	if cmd.Flags().Changed(flagChunkSize) {
		engineCfg.ChunkSize = flags.chunkSize
	}

	if cmd.Flags().Changed(flagWorkers) {
		engineCfg.Workers = flags.workers
	}

	return tts.NewEngine(synth, session, engineCfg, a.log), nil
}

func (a *app) processChunks(
	ctx context.Context,
	engine *tts.Engine,
	chunksPath, outputDir string,
	chosen core.PresetParams,
) error {
	if outputDir == "" {
		outputDir = a.cfg.Paths.OutputDir
	}

	err := engine.ProcessChunks(ctx, chunksPath, outputDir, chosen)
	if err != nil {
		a.log.Error("Chunk processing failed: %v", err)

		return fmt.Errorf(errFmtChunks, err)
	}

	a.log.Info(logFmtChunksDone, chunksPath, outputDir)
	fmt.Fprintf(a.out, msgFmtChunksSaved, outputDir)

	return nil
}
