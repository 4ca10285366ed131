package main

import (
	"fmt"
	"path/filepath"

	"github.com/juanvolpe/voiceJuan/internal/tts/audio"
	"github.com/spf13/cobra"
)

// Convert flag names and descriptions.
const (
	flagSource = "source"
	flagTarget = "target"
	flagFormat = "format"
	flagPrefix = "prefix"

	flagSourceDesc = "Directory with the recordings to convert"
	flagTargetDesc = "Directory the converted samples are written to"
	flagFormatDesc = "Extension of the recordings to convert (m4a, mp3, ...)"
	flagPrefixDesc = "Output names are <prefix>_<index>.wav"
)

const (
	msgFmtConvertFound  = "Encontrados %d archivos .%s en %s\n"
	msgFmtConvertOK     = "Convertido %s -> %s\n"
	msgFmtConvertFailed = "Error al convertir %s: %v\n"
	msgFmtConvertDone   = "\nConversión completa: %d de %d archivos en %s\n"
)

type convertFlags struct {
	source string
	target string
	format string
	prefix string
}

func newConvertCommand(application *app) *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert recordings into 22050 Hz mono WAV voice samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return application.convert(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.source, flagSource, "", flagSourceDesc)
	cmd.Flags().StringVar(&flags.target, flagTarget, "", flagTargetDesc)
	cmd.Flags().StringVar(&flags.format, flagFormat, "", flagFormatDesc)
	cmd.Flags().StringVar(&flags.prefix, flagPrefix, "", flagPrefixDesc)

	return cmd
}

func (a *app) convert(cmd *cobra.Command, flags convertFlags) error {
	encoderCfg := a.cfg.Encoder

	source := firstNonEmpty(flags.source, encoderCfg.SourceDir)
	target := firstNonEmpty(flags.target, encoderCfg.TargetDir)
	prefix := firstNonEmpty(flags.prefix, encoderCfg.Prefix)

	format, err := audio.ParseFormat(firstNonEmpty(flags.format, encoderCfg.SourceFormat))
	if err != nil {
		return err
	}

	runner, err := a.cfg.NewEncoder(a.log)
	if err != nil {
		return err
	}

	err = runner.Available()
	if err != nil {
		return err
	}

	report, err := runner.BatchConvert(cmd.Context(), source, target, format, prefix)
	if err != nil {
		a.log.Error("Batch conversion failed: %v", err)

		return fmt.Errorf("failed to convert recordings: %w", err)
	}

	fmt.Fprintf(a.out, msgFmtConvertFound, report.Found, format, source)

	for _, conversion := range report.Conversions {
		if conversion.Err != nil {
			fmt.Fprintf(a.out, msgFmtConvertFailed, filepath.Base(conversion.Source), conversion.Err)

			continue
		}

		fmt.Fprintf(a.out, msgFmtConvertOK, filepath.Base(conversion.Source), filepath.Base(conversion.Output))
	}

	fmt.Fprintf(a.out, msgFmtConvertDone, report.Converted(), report.Found, target)

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
