package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juanvolpe/voiceJuan/internal/tts/ttsutils"
	"github.com/juanvolpe/voiceJuan/internal/voice"
	"github.com/spf13/cobra"
)

const (
	flagClearCache     = "clear-cache"
	flagClearCacheDesc = "Delete the voice cache so the next run reprocesses the samples"

	msgFmtSamplesDir     = "Voz: %s\n"
	msgFmtSamplesCreated = "Creado %s\n"
	msgFmtSamplesAdded   = "Nuevas muestras: %s\n"
	msgFmtSamplesRemoved = "Muestras eliminadas: %s\n"
	msgFmtSamplesCount   = "\n%d muestras:\n"
	msgFmtSampleLine     = "  %s\n"
	msgFmtCacheStatus    = "\nCache: %s (%s)\n"
	msgFmtUnconverted    = "Grabaciones sin convertir (usa 'voiceclone convert'): %s\n"
	msgCacheCleared      = "Cache eliminado"
	cacheStatusPresent   = "presente"
	cacheStatusMissing   = "ausente"
)

func newSamplesCommand(application *app) *cobra.Command {
	var (
		voiceDir   string
		clearCache bool
	)

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Sync metadata.json with the samples on disk and show the cache state",
		RunE: func(_ *cobra.Command, _ []string) error {
			return application.samples(firstNonEmpty(voiceDir, application.cfg.Voice.Dir), clearCache)
		},
	}

	cmd.Flags().StringVar(&voiceDir, flagVoiceDir, "", flagVoiceDirDesc)
	cmd.Flags().BoolVar(&clearCache, flagClearCache, false, flagClearCacheDesc)

	return cmd
}

func (a *app) samples(voiceDir string, clearCache bool) error {
	fmt.Fprintf(a.out, msgFmtSamplesDir, voiceDir)

	metadata, created, err := voice.LoadOrCreateMetadata(voiceDir)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(a.out, msgFmtSamplesCreated, voice.MetadataFileName)
	}

	diff, err := voice.SyncMetadata(voiceDir, metadata)
	if err != nil {
		return err
	}

	if len(diff.Added) > 0 {
		fmt.Fprintf(a.out, msgFmtSamplesAdded, strings.Join(diff.Added, ", "))
	}

	if len(diff.Removed) > 0 {
		fmt.Fprintf(a.out, msgFmtSamplesRemoved, strings.Join(diff.Removed, ", "))
	}

	names := metadata.SampleNames()
	fmt.Fprintf(a.out, msgFmtSamplesCount, len(names))

	for _, name := range names {
		fmt.Fprintf(a.out, msgFmtSampleLine, name)
	}

	unconverted, err := unconvertedRecordings(voiceDir)
	if err != nil {
		return err
	}

	if len(unconverted) > 0 {
		fmt.Fprintf(a.out, msgFmtUnconverted, strings.Join(unconverted, ", "))
	}

	cache := voice.NewCache(voiceDir)

	if clearCache {
		removeErr := cache.Remove()
		if removeErr != nil {
			return removeErr
		}

		a.log.Info("Removed voice cache %s", cache.Path())
		fmt.Fprintln(a.out, msgCacheCleared)
	}

	status := cacheStatusMissing
	if cache.Exists() {
		status = cacheStatusPresent
	}

	fmt.Fprintf(a.out, msgFmtCacheStatus, cache.Path(), status)

	return nil
}

// unconvertedRecordings lists audio files in the samples directory that are
// not WAV and so are ignored until converted.
func unconvertedRecordings(voiceDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(voiceDir, voice.SamplesDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to list samples of %s: %w", voiceDir, err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !ttsutils.IsValidAudioFile(name) {
			continue
		}

		if strings.EqualFold(filepath.Ext(name), ttsutils.WAVExtension) {
			continue
		}

		names = append(names, name)
	}

	return names, nil
}
