// Command voiceclone synthesizes Spanish speech in a cloned voice and manages
// the voice samples, audio conversion and hosted notebook around it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/config"
	"github.com/juanvolpe/voiceJuan/internal/prompt"
	"github.com/spf13/cobra"
)

// Flag names shared by every subcommand.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"

	flagConfigDesc  = "Path to project.toml (defaults to searching up the directory tree)"
	flagVerboseDesc = "Write a separate verbose log file"
)

// File names.
const (
	logFileNameDefault   = "voiceclone.log"
	logFileNameVerbose   = "voiceclone-verbose.log"
)

const (
	errFmtLoadConfig = "failed to load configuration: %w"
	errFmtInitLogger = "failed to initialize logger: %w"
	logFmtStarting   = "voiceclone %s starting"
)

// app carries the state shared by the subcommands.
type app struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	configPath string
	verbose    bool

	cfg *config.Config
	log *logger.Logger
}

func newApp(in io.Reader, out io.Writer, interactive bool) *app {
	return &app{in: in, out: out, interactive: interactive}
}

// prompter returns a console prompter on the app's streams.
func (a *app) prompter() *prompt.Console {
	return prompt.New(a.in, a.out, a.interactive)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], newApp(os.Stdin, os.Stdout, prompt.Interactive(os.Stdin)))

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command line in args.
func run(ctx context.Context, args []string, application *app) error {
	defer application.close()

	root := newRootCommand(application)
	root.SetArgs(args)

	return root.ExecuteContext(ctx)
}

func newRootCommand(application *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "voiceclone",
		Short:         "Spanish voice cloning on top of a TTS model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return application.setup(cmd.Name())
		},
	}

	root.SetIn(application.in)
	root.SetOut(application.out)
	root.SetErr(application.out)

	root.PersistentFlags().StringVar(&application.configPath, flagConfig, "", flagConfigDesc)
	root.PersistentFlags().BoolVar(&application.verbose, flagVerbose, false, flagVerboseDesc)

	root.AddCommand(
		newSpeakCommand(application),
		newConvertCommand(application),
		newNotebookCommand(application),
		newSamplesCommand(application),
		newHealthCommand(application),
	)

	return root
}

// setup loads the configuration and opens the log file.
func (a *app) setup(command string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logFileName := logFileNameDefault
	if a.verbose {
		logFileName = logFileNameVerbose
	}

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return fmt.Errorf(errFmtInitLogger, err)
	}

	a.cfg = cfg
	a.log = log
	a.log.Info(logFmtStarting, command)

	return nil
}

// loadConfig reads --config when given. Otherwise it loads the nearest
// project.toml and uses the defaults only when there is no such file.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf(errFmtLoadConfig, err)
		}

		return cfg, nil
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf(errFmtLoadConfig, err)
	}

	projectFile, findErr := config.FindProjectFile(workDir)
	if errors.Is(findErr, config.ErrProjectFileNotFound) {
		cfg, defaultErr := config.Default()
		if defaultErr != nil {
			return nil, fmt.Errorf(errFmtLoadConfig, defaultErr)
		}

		return cfg, nil
	}

	if findErr != nil {
		return nil, fmt.Errorf(errFmtLoadConfig, findErr)
	}

	// A project.toml that exists but cannot be loaded is an error, never a
	// silent switch to the defaults.
	cfg, err := config.LoadFile(projectFile)
	if err != nil {
		return nil, fmt.Errorf(errFmtLoadConfig, err)
	}

	return cfg, nil
}

func (a *app) close() {
	if a.log == nil {
		return
	}

	closeErr := a.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}

	a.log = nil
}
