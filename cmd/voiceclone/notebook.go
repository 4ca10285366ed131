package main

import (
	"fmt"

	"github.com/juanvolpe/voiceJuan/internal/notebook"
	"github.com/spf13/cobra"
)

const (
	flagRepo      = "repo"
	flagVoiceName = "voice"

	flagNotebookOutputDesc = "Notebook file to write"
	flagRepoDesc           = "GitHub repository cloned by the notebook"
	flagVoiceNameDesc      = "Voice directory name under voices/"
	flagNotebookPresetDesc = "Preset selected when the menu answer is empty"

	msgFmtNotebookWritten = "Notebook escrito en %s (%d celdas)\n"
)

func newNotebookCommand(application *app) *cobra.Command {
	opts := notebook.DefaultOptions()
	output := notebook.DefaultFileName

	cmd := &cobra.Command{
		Use:   "notebook",
		Short: "Write the hosted GPU notebook for the voice cloning workflow",
		RunE: func(_ *cobra.Command, _ []string) error {
			return application.writeNotebook(opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, flagOutput, "o", output, flagNotebookOutputDesc)
	cmd.Flags().StringVar(&opts.Repo, flagRepo, opts.Repo, flagRepoDesc)
	cmd.Flags().StringVar(&opts.VoiceName, flagVoiceName, opts.VoiceName, flagVoiceNameDesc)
	cmd.Flags().StringVar(&opts.DefaultPreset, flagPreset, opts.DefaultPreset, flagNotebookPresetDesc)

	return cmd
}

func (a *app) writeNotebook(opts notebook.Options, output string) error {
	nb, err := notebook.SpanishVoiceNotebook(opts)
	if err != nil {
		return fmt.Errorf("failed to build notebook: %w", err)
	}

	err = nb.Write(output)
	if err != nil {
		return err
	}

	a.log.Info("Wrote notebook %s", output)
	fmt.Fprintf(a.out, msgFmtNotebookWritten, output, len(nb.Cells))

	return nil
}
