// Package prompt asks the operator for input with huh forms. A terminal gets
// the full-screen fields; piped input gets huh's accessible line mode.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/juanvolpe/voiceJuan/internal/core"
	"github.com/juanvolpe/voiceJuan/internal/preset"
	"golang.org/x/term"
)

const (
	titleText       = "Ingrese el texto a convertir"
	titlePreset     = "Seleccione preset"
	titleCache      = "Se encontró un cache de voz existente"
	titleOutputName = "Nombre del archivo de salida (Enter para nombre automático)"

	optionCacheUse       = "Usar cache existente"
	optionCacheReprocess = "Reprocesar muestras"

	affirmative = "Sí"
	negative    = "No"
)

// ErrAborted is returned when the operator cancels a form.
var ErrAborted = errors.New("prompt aborted")

// Console implements core.Prompter over a reader and a writer.
type Console struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	accessible  bool
}

var _ core.Prompter = (*Console)(nil)

// New creates a console prompter. Non-interactive consoles answer every
// question with its default and never read input. Input that is not a
// terminal is read one line per answer.
func New(in io.Reader, out io.Writer, interactive bool) *Console {
	console := &Console{in: in, out: out, interactive: interactive, accessible: true}

	if f, ok := in.(*os.File); ok && Interactive(f) {
		console.accessible = false
	}

	if console.accessible {
		console.in = &lineReader{src: bufio.NewReader(in)}
	}

	return console
}

// NewStdio creates a prompter on stdin/stdout, interactive when stdin is a terminal.
func NewStdio() *Console {
	return New(os.Stdin, os.Stdout, Interactive(os.Stdin))
}

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsInteractive reports whether the console reads answers.
func (c *Console) IsInteractive() bool {
	return c.interactive
}

func (c *Console) ask(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(c.in).
		WithOutput(c.out).
		WithShowHelp(false).
		WithAccessible(c.accessible)

	err := form.Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}

	if err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}

	return nil
}

func (c *Console) askText(title string) (string, error) {
	if !c.interactive {
		return "", nil
	}

	var answer string

	err := c.ask(huh.NewInput().Title(title).Value(&answer))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

// Text asks for the text to synthesize.
func (c *Console) Text() (string, error) {
	return c.askText(titleText)
}

// Preset shows the preset menu. Empty input selects defaultName.
func (c *Console) Preset(defaultName string) (core.PresetParams, error) {
	if !c.interactive {
		return preset.ByName(defaultName)
	}

	// The selected value doubles as the default for an empty answer.
	name := defaultName

	err := c.ask(huh.NewSelect[string]().
		Title(titlePreset).
		Options(huh.NewOptions(preset.Names()...)...).
		Value(&name))
	if err != nil {
		return core.PresetParams{}, err
	}

	return preset.ByName(name)
}

// CacheChoice asks whether to use the existing voice cache.
func (c *Console) CacheChoice() (core.CacheChoice, error) {
	if !c.interactive {
		return core.CacheUse, nil
	}

	choice := core.CacheUse

	err := c.ask(huh.NewSelect[core.CacheChoice]().
		Title(titleCache).
		Options(
			huh.NewOption(optionCacheUse, core.CacheUse),
			huh.NewOption(optionCacheReprocess, core.CacheReprocess),
		).
		Value(&choice))
	if err != nil {
		return 0, err
	}

	return choice, nil
}

// Confirm asks a yes/no question. Empty input and non-interactive consoles answer no.
func (c *Console) Confirm(question string) (bool, error) {
	if !c.interactive {
		return false, nil
	}

	var ok bool

	err := c.ask(huh.NewConfirm().
		Title(question).
		Affirmative(affirmative).
		Negative(negative).
		Value(&ok))
	if err != nil {
		return false, err
	}

	return ok, nil
}

// OutputName asks for the output file name. Empty input keeps the default.
func (c *Console) OutputName() (string, error) {
	return c.askText(titleOutputName)
}

// lineReader hands out at most one line per Read, so the scanner behind one
// form never buffers the answers meant for the next.
type lineReader struct {
	src     *bufio.Reader
	pending []byte
}

func (l *lineReader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 {
		line, err := l.src.ReadBytes('\n')
		if len(line) == 0 {
			return 0, err
		}

		l.pending = line
	}

	n := copy(p, l.pending)
	l.pending = l.pending[n:]

	return n, nil
}
