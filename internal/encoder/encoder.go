// Package encoder drives the external audio encoder used to convert and
// resample recordings into the layout the voice model expects.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/book-expert/logger"
	"github.com/juanvolpe/voiceJuan/internal/tts/audio"
)

const (
	// DefaultBinary is the encoder looked up on PATH when none is configured.
	DefaultBinary = "ffmpeg"
	// DefaultPrefix names batch outputs <prefix>_<idx>.wav.
	DefaultPrefix = "juan"

	dirPermissions = 0o750
	outputFormat   = "%s_%d.wav"
)

const (
	errFmtEncoderFailed = "%w: %s: %v: %s"
	errFmtSourceMissing = "%w: %s"
	logFmtFound         = "Found %d %s files in %s"
	logFmtConverting    = "Converting %s -> %s"
	logFmtConverted     = "Converted %s to %s"
	logFmtConvertFailed = "Error converting %s: %v"
)

var (
	// ErrEncoderFailed is returned when the encoder exits unsuccessfully.
	ErrEncoderFailed = errors.New("encoder failed")
	// ErrSourceDirMissing is returned when the batch source directory does not exist.
	ErrSourceDirMissing = errors.New("source directory not found")
	// ErrEmptyPath is returned when an input or output path is empty.
	ErrEmptyPath = errors.New("input and output paths are required")
)

// Runner invokes the encoder binary with a fixed flag layout.
type Runner struct {
	binary  string
	quality audio.Quality
	log     *logger.Logger
}

// New creates a Runner. An empty binary falls back to DefaultBinary.
func New(binary string, quality audio.Quality, log *logger.Logger) (*Runner, error) {
	if binary == "" {
		binary = DefaultBinary
	}

	validateErr := quality.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &Runner{binary: binary, quality: quality, log: log}, nil
}

// Quality returns the conversion target.
func (r *Runner) Quality() audio.Quality {
	return r.quality
}

// Available reports whether the encoder binary can be found.
func (r *Runner) Available() error {
	_, err := exec.LookPath(r.binary)
	if err != nil {
		return fmt.Errorf("encoder %q not found: %w", r.binary, err)
	}

	return nil
}

// Args returns the full argument list for converting in to out.
func (r *Runner) Args(in, out string) []string {
	args := []string{"-y", "-i", in}
	args = append(args, r.quality.EncoderArgs()...)

	return append(args, out)
}

// Convert runs "<binary> -y -i <in> -ac <channels> -ar <rate> <out>".
func (r *Runner) Convert(ctx context.Context, in, out string) error {
	if in == "" || out == "" {
		return ErrEmptyPath
	}

	// #nosec G204 -- binary comes from operator configuration
	cmd := exec.CommandContext(ctx, r.binary, r.Args(in, out)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return fmt.Errorf(errFmtEncoderFailed, ErrEncoderFailed, filepath.Base(in), runErr,
			strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Conversion records the outcome for a single file of a batch.
type Conversion struct {
	Source string
	Output string
	Err    error
}

// Report summarizes a batch conversion.
type Report struct {
	Found       int
	Conversions []Conversion
}

// Converted returns the number of successful conversions.
func (r Report) Converted() int {
	n := 0

	for _, c := range r.Conversions {
		if c.Err == nil {
			n++
		}
	}

	return n
}

// Failed returns the conversions that did not succeed.
func (r Report) Failed() []Conversion {
	var failed []Conversion

	for _, c := range r.Conversions {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}

	return failed
}

// BatchConvert converts every srcDir/*<ext> file into dstDir/<prefix>_<idx>.wav.
// Files are processed in name order. A failed file is recorded and the batch
// continues.
func (r *Runner) BatchConvert(ctx context.Context, srcDir, dstDir string, format audio.Format, prefix string) (Report, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	mkdirErr := os.MkdirAll(dstDir, dirPermissions)
	if mkdirErr != nil {
		return Report{}, fmt.Errorf("failed to create target directory: %w", mkdirErr)
	}

	info, statErr := os.Stat(srcDir)
	if statErr != nil || !info.IsDir() {
		return Report{}, fmt.Errorf(errFmtSourceMissing, ErrSourceDirMissing, srcDir)
	}

	sources, globErr := listByExtension(srcDir, format.Extension())
	if globErr != nil {
		return Report{}, globErr
	}

	r.log.Info(logFmtFound, len(sources), format, srcDir)

	report := Report{Found: len(sources)}

	for idx, source := range sources {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		output := filepath.Join(dstDir, fmt.Sprintf(outputFormat, prefix, idx))
		r.log.Info(logFmtConverting, filepath.Base(source), filepath.Base(output))

		convErr := r.Convert(ctx, source, output)
		if convErr != nil {
			r.log.Error(logFmtConvertFailed, filepath.Base(source), convErr)
		} else {
			r.log.Info(logFmtConverted, filepath.Base(source), filepath.Base(output))
		}

		report.Conversions = append(report.Conversions, Conversion{Source: source, Output: output, Err: convErr})
	}

	return report, nil
}

// Resample converts data (any format the encoder reads) to the runner's
// quality and returns the resulting WAV bytes.
func (r *Runner) Resample(ctx context.Context, name string, data []byte) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "voice-resample-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create resample dir: %w", err)
	}

	defer func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			r.log.Warn("Failed to remove resample dir '%s': %v", workDir, removeErr)
		}
	}()

	in := filepath.Join(workDir, "in"+filepath.Ext(name))
	out := filepath.Join(workDir, "out.wav")

	writeErr := os.WriteFile(in, data, 0o600)
	if writeErr != nil {
		return nil, fmt.Errorf("failed to stage %s for resampling: %w", name, writeErr)
	}

	convErr := r.Convert(ctx, in, out)
	if convErr != nil {
		return nil, convErr
	}

	resampled, readErr := os.ReadFile(out)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read resampled %s: %w", name, readErr)
	}

	return resampled, nil
}

func listByExtension(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)

	return files, nil
}
