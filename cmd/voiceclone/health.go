package main

import (
	"fmt"

	"github.com/juanvolpe/voiceJuan/internal/tts"
	"github.com/spf13/cobra"
)

const (
	msgServiceHealthy    = "TTS backend is healthy"
	msgFmtServiceFailing = "TTS backend is not healthy: %v\n"
	logFmtHealthFailed   = "Health check failed: %v"
)

func newHealthCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured TTS backend is ready",
		RunE: func(cmd *cobra.Command, _ []string) error {
			synth, err := application.cfg.NewSynthesizer(application.log)
			if err != nil {
				return fmt.Errorf(errFmtSynthesizer, err)
			}

			engine := tts.NewEngine(synth, nil, application.cfg.EngineConfig(), application.log)

			err = engine.HealthCheck(cmd.Context())
			if err != nil {
				application.log.Error(logFmtHealthFailed, err)
				fmt.Fprintf(application.out, msgFmtServiceFailing, err)

				return err
			}

			fmt.Fprintln(application.out, msgServiceHealthy)

			return nil
		},
	}
}
