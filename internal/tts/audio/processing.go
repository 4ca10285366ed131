// Package audio provides audio formats and the conversion quality settings
// handed to the external encoder.
package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Constants for the voice-conditioning audio the model expects.
const (
	DEFAULT_SAMPLE_RATE = 22050 // Rate voice samples are loaded at.
	DEFAULT_CHANNELS    = 1     // Mono.
	OUTPUT_SAMPLE_RATE  = 24000 // Rate the model synthesizes at.
)

// Constants for quality validation limits.
const (
	MAX_SAMPLE_RATE      = 192000
	MAX_CHANNELS         = 8
	MAX_VOLUME           = 10.0
	MAX_FILTER_FREQUENCY = 20000
)

// Constants for error messages and formats.
const (
	ERR_FMT_SAMPLE_RATE_RANGE = "%w: sample rate must be between 1 and %d Hz"
	ERR_FMT_CHANNELS_RANGE    = "%w: channels must be between 1 and %d"
	ERR_FMT_HIGH_PASS_RANGE   = "%w: high pass filter must be between 0 and %d Hz"
	ERR_FMT_LOW_PASS_RANGE    = "%w: low pass filter must be between 0 and %d Hz"
	ERR_FMT_VOLUME_RANGE      = "%w: volume must be between 0.0 and %.1f"
	ERR_FMT_UNKNOWN_FORMAT    = "%w: %q"
)

// Common errors for the audio package.
var (
	ErrInvalidQuality = errors.New("invalid quality settings")
	ErrUnknownFormat  = errors.New("unknown audio format")
)

// Format represents supported audio container formats.
type Format string

const (
	FORMAT_WAV  Format = "wav"
	FORMAT_MP3  Format = "mp3"
	FORMAT_FLAC Format = "flac"
	FORMAT_OGG  Format = "ogg"
	FORMAT_M4A  Format = "m4a"
	FORMAT_AAC  Format = "aac"
)

var knownFormats = []Format{FORMAT_WAV, FORMAT_MP3, FORMAT_FLAC, FORMAT_OGG, FORMAT_M4A, FORMAT_AAC}

// Extension returns the file extension for the format, with the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseFormat accepts "m4a", ".m4a" or "M4A".
func ParseFormat(value string) (Format, error) {
	normalized := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), ".")))
	for _, f := range knownFormats {
		if f == normalized {
			return f, nil
		}
	}

	return "", fmt.Errorf(ERR_FMT_UNKNOWN_FORMAT, ErrUnknownFormat, value)
}

// FormatOf returns the format implied by a file name's extension.
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Quality is the target of a conversion: the sample layout plus optional
// filters applied by the encoder.
type Quality struct {
	SampleRate int     `json:"sampleRate" toml:"sample_rate"`
	Channels   int     `json:"channels"   toml:"channels"`
	Volume     float64 `json:"volume"     toml:"volume"`
	HighPass   int     `json:"highPass"   toml:"high_pass"`
	LowPass    int     `json:"lowPass"    toml:"low_pass"`
	Normalize  bool    `json:"normalize"  toml:"normalize"`
}

// NewDefaultQuality returns the layout voice samples are converted to.
func NewDefaultQuality() Quality {
	return Quality{
		SampleRate: DEFAULT_SAMPLE_RATE,
		Channels:   DEFAULT_CHANNELS,
		Volume:     1.0,
		Normalize:  false,
	}
}

// Validate checks if quality settings are within reasonable bounds.
func (q *Quality) Validate() error {
	sampleRateErr := validateSampleRate(q.SampleRate)
	if sampleRateErr != nil {
		return sampleRateErr
	}

	channelsErr := validateChannels(q.Channels)
	if channelsErr != nil {
		return channelsErr
	}

	volumeErr := validateVolume(q.Volume)
	if volumeErr != nil {
		return volumeErr
	}

	highPassErr := validateFilter(q.HighPass, ERR_FMT_HIGH_PASS_RANGE)
	if highPassErr != nil {
		return highPassErr
	}

	return validateFilter(q.LowPass, ERR_FMT_LOW_PASS_RANGE)
}

// EncoderArgs returns the output-side encoder flags for this quality, in the
// order "-ac <channels> -ar <rate> [-af <filters>]".
func (q *Quality) EncoderArgs() []string {
	args := []string{
		"-ac", strconv.Itoa(q.Channels),
		"-ar", strconv.Itoa(q.SampleRate),
	}

	filters := q.filters()
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	return args
}

func (q *Quality) filters() []string {
	var filters []string

	if q.HighPass > 0 {
		filters = append(filters, "highpass=f="+strconv.Itoa(q.HighPass))
	}

	if q.LowPass > 0 {
		filters = append(filters, "lowpass=f="+strconv.Itoa(q.LowPass))
	}

	if q.Volume != 0 && q.Volume != 1.0 {
		filters = append(filters, "volume="+strconv.FormatFloat(q.Volume, 'f', -1, 64))
	}

	if q.Normalize {
		filters = append(filters, "loudnorm")
	}

	return filters
}

//
// Validation Helpers
//

func validateSampleRate(sampleRate int) error {
	if sampleRate <= 0 || sampleRate > MAX_SAMPLE_RATE {
		return fmt.Errorf(ERR_FMT_SAMPLE_RATE_RANGE, ErrInvalidQuality, MAX_SAMPLE_RATE)
	}

	return nil
}

func validateChannels(channels int) error {
	if channels <= 0 || channels > MAX_CHANNELS {
		return fmt.Errorf(ERR_FMT_CHANNELS_RANGE, ErrInvalidQuality, MAX_CHANNELS)
	}

	return nil
}

func validateVolume(volume float64) error {
	if volume < 0.0 || volume > MAX_VOLUME {
		return fmt.Errorf(ERR_FMT_VOLUME_RANGE, ErrInvalidQuality, MAX_VOLUME)
	}

	return nil
}

func validateFilter(frequency int, errFmt string) error {
	if frequency < 0 || frequency > MAX_FILTER_FREQUENCY {
		return fmt.Errorf(errFmt, ErrInvalidQuality, MAX_FILTER_FREQUENCY)
	}

	return nil
}
